package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"energycalc/internal/app/ds"
	"energycalc/internal/app/dto"
	"energycalc/internal/app/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func deviceToDTO(d *ds.Device) dto.DeviceResponse {
	imageURL := ""
	if d.ImageURL != nil {
		imageURL = *d.ImageURL
	}
	return dto.DeviceResponse{
		ID:          d.ID,
		Name:        d.Name,
		Category:    d.Category,
		ImageURL:    imageURL,
		Power:       d.Power,
		Consumption: d.Consumption,
		PeakPower:   d.PeakPower,
		Voltage:     d.Voltage,
		WorkPerDay:  d.WorkPerDay,
		EnergyClass: d.EnergyClass,
	}
}

// GetDevices получает список устройств
// @Summary Получение списка устройств
// @Description Возвращает список всех устройств с возможностью поиска по названию
// @Tags Devices
// @Produce json
// @Param name query string false "Поиск по названию устройства"
// @Success 200 {object} dto.DeviceListResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/devices [get]
func (h *APIHandler) GetDevices(c *gin.Context) {
	searchQuery := c.Query("name")

	var devices []ds.Device
	var err error

	if searchQuery == "" {
		devices, err = h.Repository.GetAllDevices()
	} else {
		devices, err = h.Repository.SearchDevicesByName(searchQuery)
	}

	if err != nil {
		logrus.Error("Error getting devices: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка получения устройств")
		return
	}

	dtoDevices := make([]dto.DeviceResponse, len(devices))
	for i := range devices {
		dtoDevices[i] = deviceToDTO(&devices[i])
	}

	c.JSON(http.StatusOK, dto.DeviceListResponse{
		Devices: dtoDevices,
		Total:   len(dtoDevices),
	})
}

// GetDevice получает одно устройство
// @Summary Получение устройства по ID
// @Description Возвращает детальную информацию об устройстве
// @Tags Devices
// @Produce json
// @Param id path int true "ID устройства"
// @Success 200 {object} dto.DeviceResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/devices/{id} [get]
func (h *APIHandler) GetDevice(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID устройства")
		return
	}

	device, err := h.Repository.GetDeviceByID(uint(id))
	if err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, deviceToDTO(device))
}

// CreateDevice создает новое устройство
// @Summary Создание устройства
// @Description Создает новое устройство в справочнике (только для модераторов)
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateDeviceRequest true "Данные устройства"
// @Success 201 {object} dto.DeviceResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/devices [post]
func (h *APIHandler) CreateDevice(c *gin.Context) {
	var req dto.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Неверные данные: "+err.Error())
		return
	}

	device := ds.Device{
		Name:        req.Name,
		Category:    req.Category,
		Power:       req.Power,
		Consumption: req.Consumption,
		PeakPower:   req.PeakPower,
		Voltage:     req.Voltage,
		WorkPerDay:  req.WorkPerDay,
		EnergyClass: req.EnergyClass,
	}

	if err := h.Repository.CreateDevice(&device); err != nil {
		logrus.Error("Error creating device: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка создания устройства")
		return
	}

	c.JSON(http.StatusCreated, deviceToDTO(&device))
}

// UpdateDevice обновляет устройство
// @Summary Обновление устройства
// @Description Обновляет данные устройства (только для модераторов)
// @Tags Devices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID устройства"
// @Param request body dto.UpdateDeviceRequest true "Данные для обновления"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/devices/{id} [put]
func (h *APIHandler) UpdateDevice(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID устройства")
		return
	}

	var req dto.UpdateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Неверные данные: "+err.Error())
		return
	}

	updates := map[string]interface{}{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Power > 0 {
		updates["power"] = req.Power
	}
	if req.Consumption > 0 {
		updates["consumption"] = req.Consumption
	}
	if req.PeakPower > 0 {
		updates["peak_power"] = req.PeakPower
	}
	if req.Voltage != "" {
		updates["voltage"] = req.Voltage
	}
	if req.WorkPerDay != "" {
		updates["work_per_day"] = req.WorkPerDay
	}
	if req.EnergyClass != "" {
		updates["energy_class"] = req.EnergyClass
	}

	if err := h.Repository.UpdateDevice(uint(id), updates); err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "Устройство успешно обновлено", nil)
}

// DeleteDevice удаляет устройство
// @Summary Удаление устройства
// @Description Логически удаляет устройство из справочника (только для модераторов)
// @Tags Devices
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID устройства"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/devices/{id} [delete]
func (h *APIHandler) DeleteDevice(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID устройства")
		return
	}

	// Сначала удаляем изображение, если оно есть
	device, err := h.Repository.GetDeviceByID(uint(id))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		// Временная ошибка БД — не путаем с отсутствием изображения
		logrus.Warnf("Failed to load device %d before delete: %v", id, err)
	}
	if device != nil && device.ImageURL != nil && *device.ImageURL != "" {
		if h.MinIOClient != nil {
			if err := h.MinIOClient.DeleteFile(*device.ImageURL); err != nil {
				logrus.Warnf("Failed to delete image from MinIO: %v", err)
			}
		}
		if err := h.Repository.DeleteDeviceImage(uint(id)); err != nil {
			logrus.Warnf("Failed to clear image url: %v", err)
		}
	}

	if err := h.Repository.DeleteDevice(uint(id)); err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "Устройство успешно удалено", nil)
}

// UploadDeviceImage загружает изображение для устройства
// @Summary Загрузка изображения устройства
// @Description Загружает изображение устройства в MinIO (только для модераторов)
// @Tags Devices
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID устройства"
// @Param image formData file true "Файл изображения"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/devices/{id}/image [post]
func (h *APIHandler) UploadDeviceImage(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID устройства")
		return
	}

	device, err := h.Repository.GetDeviceByID(uint(id))
	if err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, "Файл не найден в запросе")
		return
	}

	openedFile, err := file.Open()
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка чтения файла")
		return
	}
	defer openedFile.Close()

	fileData, err := io.ReadAll(openedFile)
	if err != nil {
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка чтения файла")
		return
	}

	// Удаляем старое изображение из MinIO (если есть)
	if device.ImageURL != nil && *device.ImageURL != "" && h.MinIOClient != nil {
		if err := h.MinIOClient.DeleteFile(*device.ImageURL); err != nil {
			logrus.Warnf("Failed to delete old image %s: %v", *device.ImageURL, err)
		}
	}

	if h.MinIOClient == nil {
		h.errorResponse(c, http.StatusInternalServerError, "Хранилище изображений недоступно")
		return
	}

	imageURL, err := h.MinIOClient.UploadFile(fileData, file.Filename)
	if err != nil {
		logrus.Error("Error uploading to MinIO: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка загрузки изображения")
		return
	}

	if err := h.Repository.UpdateDeviceImage(uint(id), imageURL); err != nil {
		h.repoErrorResponse(c, err)
		return
	}

	h.successResponse(c, http.StatusOK, "Изображение успешно загружено", gin.H{
		"image_url": imageURL,
	})
}

// AddDeviceToDraft добавляет устройство в заявку-черновик
// @Summary Добавление устройства в заявку
// @Description Добавляет устройство в черновик заявки текущего пользователя; повторное добавление увеличивает количество
// @Tags Devices
// @Produce json
// @Security BearerAuth
// @Param id path int true "ID устройства"
// @Success 200 {object} dto.RequestResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/devices/{id}/add-to-draft [post]
func (h *APIHandler) AddDeviceToDraft(c *gin.Context) {
	userID, _, err := h.getUserFromContext(c)
	if err != nil || userID == 0 {
		h.errorResponse(c, http.StatusUnauthorized, "Ошибка авторизации")
		return
	}

	idStr := c.Param("id")
	deviceID, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || deviceID == 0 {
		h.errorResponse(c, http.StatusBadRequest, "Неверный ID устройства")
		return
	}

	exists, err := h.Repository.DeviceExists(uint(deviceID))
	if err != nil || !exists {
		h.errorResponse(c, http.StatusNotFound, "Устройство не найдено")
		return
	}

	request, err := h.Repository.GetOrCreateDraftRequest(userID)
	if err != nil {
		logrus.Error("Error creating draft request: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка создания заявки")
		return
	}

	if err := h.Repository.AddDeviceToRequest(request.ID, uint(deviceID)); err != nil {
		logrus.Error("Error adding device to request: ", err)
		h.errorResponse(c, http.StatusInternalServerError, "Ошибка добавления устройства в заявку")
		return
	}

	h.successResponse(c, http.StatusOK, "Устройство добавлено в заявку", gin.H{
		"request_id": request.ID,
	})
}
