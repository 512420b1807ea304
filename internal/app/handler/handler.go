package handler

import (
	"errors"
	"net/http"

	"energycalc/internal/app/calc"
	"energycalc/internal/app/dto"
	"energycalc/internal/app/repository"
	"energycalc/internal/app/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// APIHandler содержит обработчики для REST API
type APIHandler struct {
	Repository  *repository.Repository
	MinIOClient *storage.MinIOClient
	CalcClient  *calc.Client
	AuthHandler *AuthHandler
	CalcToken   string // секретный токен колбэка асинхронного сервиса
}

func NewAPIHandler(r *repository.Repository, minioClient *storage.MinIOClient, calcClient *calc.Client, authHandler *AuthHandler, calcToken string) *APIHandler {
	return &APIHandler{
		Repository:  r,
		MinIOClient: minioClient,
		CalcClient:  calcClient,
		AuthHandler: authHandler,
		CalcToken:   calcToken,
	}
}

// Получение текущего пользователя из контекста
func (h *APIHandler) getUserFromContext(c *gin.Context) (uint, bool, error) {
	userID, exists := c.Get("userID")
	if !exists {
		return 0, false, errors.New("user not authenticated")
	}

	id, ok := userID.(uint)
	if !ok {
		logrus.Errorf("getUserFromContext: invalid userID type: %T", userID)
		return 0, false, errors.New("invalid user ID")
	}

	isModerator, _ := c.Get("isModerator")
	moderator, _ := isModerator.(bool)

	return id, moderator, nil
}

// ============ Вспомогательные функции ============

func (h *APIHandler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.ErrorResponse{
		Status:  "fail",
		Message: message,
	})
}

func (h *APIHandler) successResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	response := dto.SuccessResponse{
		Status:  "success",
		Message: message,
	}
	if data != nil {
		response.Data = data
	}
	c.JSON(statusCode, response)
}

// repoErrorResponse транслирует ошибки хранилища в коды ответов
func (h *APIHandler) repoErrorResponse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.errorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrBadStatus),
		errors.Is(err, repository.ErrEmptyRequest),
		errors.Is(err, repository.ErrFieldsMissing):
		h.errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		logrus.Error(err)
		h.errorResponse(c, http.StatusInternalServerError, "внутренняя ошибка сервера")
	}
}
