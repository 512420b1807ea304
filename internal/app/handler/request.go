package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"energycalc/internal/app/ds"
	"energycalc/internal/app/dto"
	"energycalc/internal/app/repository"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
)

func requestToDTO(r *ds.CalculationRequest) dto.RequestResponse {
	client := "unknown"
	if r.Client.Login != "" {
		client = r.Client.Login
	}

	moderator := ""
	if r.Moderator != nil && r.Moderator.Login != "" {
		moderator = r.Moderator.Login
	}

	return dto.RequestResponse{
		ID:          r.ID,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		FormedAt:    r.FormedAt,
		CompletedAt: r.CompletedAt,
		Client:      client,
		Moderator:   moderator,
		Residents:   r.Residents,
		Temperature: r.Temperature,
		Result:      r.Result,
	}
}

func deviceLinesToDTO(devices []repository.DeviceInRequestInfo) []dto.DeviceInRequestResp {
	result := make([]dto.DeviceInRequestResp, len(devices))
	for i, d := range devices {
		imageURL := ""
		if d.ImageURL != nil {
			imageURL = *d.ImageURL
		}
		result[i] = dto.DeviceInRequestResp{
			DeviceID:    d.DeviceID,
			Name:        d.Name,
			Category:    d.Category,
			ImageURL:    imageURL,
			Power:       d.Power,
			Consumption: d.Consumption,
			EnergyClass: d.EnergyClass,
			Quantity:    d.Quantity,
		}
	}
	return result
}

// getOwnedRequest загружает заявку и проверяет, что вызывающий — ее создатель
func (h *APIHandler) getOwnedRequest(c *gin.Context, requestID, userID uint) *ds.CalculationRequest {
	request, err := h.Repository.GetRequestByID(requestID)
	if err != nil {
		h.repoErrorResponse(c, err)
		return nil
	}
	if request.ClientID != userID {
		h.errorResponse(c, http.StatusForbidden, "Заявка принадлежит другому пользователю")
		return nil
	}
	return request
}

// ============ ДОМЕН ЗАЯВКИ ============

// GetCartIcon получает информацию о корзине
// @Summary Получение иконки корзины
// @Description Возвращает ID черновика и количество устройств в нем; для гостя отдает пустую корзину
// @Tags Requests
// @Produce json
// @Success 200 {object} dto.CartIconResponse
// @Router /api/cart-icon [get]
func (h *APIHandler) GetCartIcon(c *gin.Context) {
	userID, _, err := h.getUserFromContext(c)
	if err != nil || userID == 0 {
		// Гость — пустая корзина, без ошибки
		c.JSON(http.StatusOK, dto.CartIconResponse{
			DraftRequestID: nil,
			DevicesCount:   0,
		})
		return
	}

	draftID, count := h.Repository.GetCartInfo(userID)
	if draftID == 0 {
		c.JSON(http.StatusOK, dto.CartIconResponse{
			DraftRequestID: nil,
			DevicesCount:   0,
		})
		return
	}

	c.JSON(http.StatusOK, dto.CartIconResponse{
		DraftRequestID: &draftID,
		DevicesCount:   count,
	})
}

// GetRequests получает список заявок
// @Summary Получение списка заявок
// @Description Модератор видит все заявки, клиент — только свои; удаленные не возвращаются никому
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param status query string false "Фильтр по статусу"
// @Param date_start query string false "Дата начала (формат: 2006-01-02)"
// @Param date_end query string false "Дата окончания (формат: 2006-01-02)"
// @Success 200 {object} dto.RequestListResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/requests [get]
func (h *APIHandler) GetRequests(c *gin.Context) {
	userID, isModerator, err := h.getUserFromContext(c)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "Ошибка авторизации")
		return
	}

	status := c.Query("status")

	var dateStart, dateEnd *time.Time
	if s := c.Query("date_start"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			dateStart = &parsed
		}
	}
	if s := c.Query("date_end"); s != "" {
		if parsed, err := time.Parse("2006-01-02", s); err == nil {
			dateEnd = &parsed
		}
	}

	// Клиент видит только свои заявки
	var clientID *uint
	if !isModerator {
		clientID = &userID
	}

	requests, err := h.Repository.SearchRequests(clientID, status, dateStart, dateEnd)
	if err != nil {
		logrus.Error("Error getting requests: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка получения заявок")
		return
	}

	dtoRequests := make([]dto.RequestResponse, len(requests))
	for i := range requests {
		dtoRequests[i] = requestToDTO(&requests[i])
	}

	c.JSON(http.StatusOK, dto.RequestListResponse{
		Requests: dtoRequests,
		Total:    len(dtoRequests),
	})
}

// GetRequest получает одну заявку
// @Summary Получение заявки по ID
// @Description Возвращает заявку с устройствами; доступна создателю и модератору
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} dto.RequestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/requests/{id} [get]
func (h *APIHandler) GetRequest(c *gin.Context) {
	userID, isModerator, err := h.getUserFromContext(c)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "Ошибка авторизации")
		return
	}

	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID заявки")
		return
	}

	request, err := h.Repository.GetRequestByID(uint(id))
	if err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	if !isModerator && request.ClientID != userID {
		h.errorResponse(c, http.StatusForbidden, "Заявка принадлежит другому пользователю")
		return
	}

	devices, err := h.Repository.GetRequestDevices(request.ID)
	if err != nil {
		logrus.Error("Error getting request devices: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка загрузки устройств")
		return
	}

	response := requestToDTO(request)
	response.Devices = deviceLinesToDTO(devices)

	c.JSON(http.StatusOK, response)
}

// Системные поля заявки, запрещенные к изменению через PUT
var protectedRequestFields = []string{
	"id", "status", "client", "client_id", "moderator", "moderator_id",
	"created_at", "formed_at", "completed_at", "result",
}

// UpdateRequestFields обновляет поля заявки
// @Summary Обновление полей заявки
// @Description Обновляет параметры расчета (жильцы, температура); попытка изменить системные поля отклоняется целиком
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param request body dto.UpdateRequestFieldsRequest true "Данные для обновления"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/requests/{id} [put]
func (h *APIHandler) UpdateRequestFields(c *gin.Context) {
	userID, _, err := h.getUserFromContext(c)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "Ошибка авторизации")
		return
	}

	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID заявки")
		return
	}

	// Сначала проверяем, что в теле нет системных полей
	var raw map[string]json.RawMessage
	if err := c.ShouldBindBodyWith(&raw, binding.JSON); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Неверные данные: "+err.Error())
		return
	}
	for _, field := range protectedRequestFields {
		if _, ok := raw[field]; ok {
			h.errorResponse(c, http.StatusBadRequest, "Системные поля заявки изменять нельзя")
			return
		}
	}

	var req dto.UpdateRequestFieldsRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Неверные данные: "+err.Error())
		return
	}

	if h.getOwnedRequest(c, uint(id), userID) == nil {
		return
	}

	if err := h.Repository.UpdateRequestFields(uint(id), req.Residents, req.Temperature); err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "Заявка успешно обновлена", nil)
}

// FormRequest формирует заявку
// @Summary Формирование заявки
// @Description Переводит черновик в статус FORMED (2 действие создателя); требуется хотя бы одно устройство
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} dto.RequestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/requests/{id}/form [put]
func (h *APIHandler) FormRequest(c *gin.Context) {
	userID, _, err := h.getUserFromContext(c)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "Ошибка авторизации")
		return
	}

	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID заявки")
		return
	}

	if h.getOwnedRequest(c, uint(id), userID) == nil {
		return
	}

	if err := h.Repository.FormRequest(uint(id)); err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	request, err := h.Repository.GetRequestByID(uint(id))
	if err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, requestToDTO(request))
}

// completeRequest выполняет решение модератора "завершить": фиксирует модератора
// и время, затем отправляет задачу на расчет. Статус остается FORMED до колбэка.
func (h *APIHandler) completeRequest(c *gin.Context, requestID, moderatorID uint) bool {
	if err := h.Repository.CompleteRequest(requestID, moderatorID); err != nil {
		h.repoErrorResponse(c, err)
		return false
	}

	request, err := h.Repository.GetRequestByID(requestID)
	if err != nil {
		h.repoErrorResponse(c, err)
		return false
	}

	devices, err := h.Repository.GetRequestDevices(requestID)
	if err != nil {
		logrus.Error("Error loading devices for dispatch: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка загрузки устройств")
		return false
	}

	h.CalcClient.Dispatch(request, devices)
	return true
}

// ModerateRequest завершает или отклоняет заявку
// @Summary Завершение/отклонение заявки
// @Description Модератор завершает (с запуском асинхронного расчета) или отклоняет сформированную заявку
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param request body dto.ModerateRequest true "Действие: complete или reject"
// @Success 200 {object} dto.RequestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/requests/{id}/complete [put]
func (h *APIHandler) ModerateRequest(c *gin.Context) {
	moderatorID, _, err := h.getUserFromContext(c)
	if err != nil || moderatorID == 0 {
		h.errorResponse(c, http.StatusUnauthorized, "Ошибка авторизации")
		return
	}

	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID заявки")
		return
	}

	var req dto.ModerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Неверные данные: "+err.Error())
		return
	}

	switch req.Action {
	case "complete":
		if !h.completeRequest(c, uint(id), moderatorID) {
			return
		}
	case "reject":
		if err := h.Repository.RejectRequest(uint(id), moderatorID); err != nil {
			h.repoErrorResponse(c, err)
			return
		}
	}

	request, err := h.Repository.GetRequestByID(uint(id))
	if err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, requestToDTO(request))
}

// UpdateRequestStatus изменяет статус заявки модератором
// @Summary Прямое изменение статуса заявки
// @Description Альтернативная точка входа модератора; действует только на сформированные заявки и использует те же проверки, что и complete/reject
// @Tags Requests
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param request body dto.UpdateStatusRequest true "Целевой статус: COMPLETED или REJECTED"
// @Success 200 {object} dto.RequestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/requests/{id}/status [put]
func (h *APIHandler) UpdateRequestStatus(c *gin.Context) {
	moderatorID, _, err := h.getUserFromContext(c)
	if err != nil || moderatorID == 0 {
		h.errorResponse(c, http.StatusUnauthorized, "Ошибка авторизации")
		return
	}

	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID заявки")
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Неверные данные: "+err.Error())
		return
	}

	switch req.Status {
	case ds.StatusCompleted:
		if !h.completeRequest(c, uint(id), moderatorID) {
			return
		}
	case ds.StatusRejected:
		if err := h.Repository.RejectRequest(uint(id), moderatorID); err != nil {
			h.repoErrorResponse(c, err)
			return
		}
	}

	request, err := h.Repository.GetRequestByID(uint(id))
	if err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, requestToDTO(request))
}

// DeleteRequest удаляет заявку
// @Summary Удаление заявки
// @Description Логически удаляет черновик заявки; удаленная заявка исчезает из всех выборок
// @Tags Requests
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/requests/{id} [delete]
func (h *APIHandler) DeleteRequest(c *gin.Context) {
	userID, _, err := h.getUserFromContext(c)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "Ошибка авторизации")
		return
	}

	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID заявки")
		return
	}

	if h.getOwnedRequest(c, uint(id), userID) == nil {
		return
	}

	if err := h.Repository.DeleteRequest(uint(id)); err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "Заявка успешно удалена", nil)
}

// ReceiveCalculationResult принимает результат асинхронного сервиса
// @Summary Прием результата расчета
// @Description Колбэк внешнего сервиса расчета; авторизация по секретному токену, не по сессии
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "ID заявки"
// @Param request body dto.CalculationResultRequest true "Токен и рассчитанный результат"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/requests/result/{id} [put]
func (h *APIHandler) ReceiveCalculationResult(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID заявки")
		return
	}

	var req dto.CalculationResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Неверные данные: "+err.Error())
		return
	}

	if req.Token != h.CalcToken {
		h.errorResponse(c, http.StatusForbidden, "Неверный токен")
		return
	}

	if err := h.Repository.SetRequestResult(uint(id), *req.Result); err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "Результат сохранен", nil)
}

// ============ ДОМЕН М-М (Devices in Request) ============

// RemoveDeviceFromRequest удаляет устройство из заявки
// @Summary Удаление устройства из заявки
// @Description Удаляет позицию устройства из заявки создателя, возвращает оставшиеся позиции
// @Tags Devices-In-Request
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param device_id path int true "ID устройства"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/requests/{id}/devices/{device_id} [delete]
func (h *APIHandler) RemoveDeviceFromRequest(c *gin.Context) {
	userID, _, err := h.getUserFromContext(c)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "Ошибка авторизации")
		return
	}

	requestID, err1 := strconv.ParseUint(c.Param("id"), 10, 32)
	deviceID, err2 := strconv.ParseUint(c.Param("device_id"), 10, 32)
	if err1 != nil || err2 != nil || requestID == 0 || deviceID == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверные ID")
		return
	}

	if h.getOwnedRequest(c, uint(requestID), userID) == nil {
		return
	}

	if err := h.Repository.RemoveDeviceFromRequest(uint(requestID), uint(deviceID)); err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	devices, err := h.Repository.GetRequestDevices(uint(requestID))
	if err != nil {
		logrus.Error("Error getting request devices: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка загрузки устройств")
		return
	}

	h.successResponse(c, http.StatusOK, "Устройство удалено из заявки", gin.H{
		"devices":       deviceLinesToDTO(devices),
		"devices_count": len(devices),
	})
}

// UpdateDeviceInRequest изменяет количество устройства в заявке
// @Summary Изменение количества устройства
// @Description Устанавливает количество устройства в заявке создателя (только положительное)
// @Tags Devices-In-Request
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID заявки"
// @Param device_id path int true "ID устройства"
// @Param request body dto.UpdateDeviceInRequestRequest true "Новое количество"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/requests/{id}/devices/{device_id} [put]
func (h *APIHandler) UpdateDeviceInRequest(c *gin.Context) {
	userID, _, err := h.getUserFromContext(c)
	if err != nil {
		h.errorResponse(c, http.StatusUnauthorized, "Ошибка авторизации")
		return
	}

	requestID, err1 := strconv.ParseUint(c.Param("id"), 10, 32)
	deviceID, err2 := strconv.ParseUint(c.Param("device_id"), 10, 32)
	if err1 != nil || err2 != nil || requestID == 0 || deviceID == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверные ID")
		return
	}

	var req dto.UpdateDeviceInRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Неверные данные: "+err.Error())
		return
	}

	if h.getOwnedRequest(c, uint(requestID), userID) == nil {
		return
	}

	if err := h.Repository.UpdateDeviceQuantity(uint(requestID), uint(deviceID), req.Quantity); err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "Количество обновлено", nil)
}
