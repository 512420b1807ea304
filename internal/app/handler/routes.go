package handler

import (
	"energycalc/internal/app/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RegisterAPIRoutes регистрирует все REST API маршруты с авторизацией
func (h *APIHandler) RegisterAPIRoutes(router *gin.Engine, authMiddleware *middleware.AuthMiddleware) {
	// REST API маршруты
	api := router.Group("/api")

	// ============ Устройства (Devices) - публичные и для модераторов ============
	devices := api.Group("/devices")
	{
		// Публичные эндпоинты (без авторизации)
		devices.GET("", h.GetDevices)    // GET список с фильтрацией
		devices.GET("/:id", h.GetDevice) // GET одна запись

		// Для авторизованных пользователей (добавление в черновик заявки)
		devices.POST("/:id/add-to-draft", authMiddleware.WithAuthCheck(), h.AddDeviceToDraft)

		// Только для модераторов (управление каталогом)
		devices.POST("", authMiddleware.WithModeratorCheck(), h.CreateDevice)                // POST создание
		devices.PUT("/:id", authMiddleware.WithModeratorCheck(), h.UpdateDevice)             // PUT изменение
		devices.DELETE("/:id", authMiddleware.WithModeratorCheck(), h.DeleteDevice)          // DELETE удаление
		devices.POST("/:id/image", authMiddleware.WithModeratorCheck(), h.UploadDeviceImage) // POST изображение
	}

	// Иконка корзины — доступна и гостям (у гостя всегда пустая)
	api.GET("/cart-icon", authMiddleware.WithOptionalAuth(), h.GetCartIcon)

	// ============ Заявки (Requests) - для авторизованных пользователей ============
	requests := api.Group("/requests")
	{
		// Колбэк асинхронного сервиса расчета (авторизация по токену в теле)
		requests.PUT("/result/:id", h.ReceiveCalculationResult)

		// Для всех авторизованных пользователей
		requests.GET("", authMiddleware.WithAuthCheck(), h.GetRequests)
		requests.GET("/:id", authMiddleware.WithAuthCheck(), h.GetRequest)
		requests.PUT("/:id", authMiddleware.WithAuthCheck(), h.UpdateRequestFields)
		requests.PUT("/:id/form", authMiddleware.WithAuthCheck(), h.FormRequest)
		requests.DELETE("/:id", authMiddleware.WithAuthCheck(), h.DeleteRequest)

		// Только для модераторов
		requests.PUT("/:id/complete", authMiddleware.WithModeratorCheck(), h.ModerateRequest)    // PUT завершить/отклонить
		requests.PUT("/:id/status", authMiddleware.WithModeratorCheck(), h.UpdateRequestStatus)  // PUT прямая смена статуса

		// М-М связь (устройства в заявке)
		requests.DELETE("/:id/devices/:device_id", authMiddleware.WithAuthCheck(), h.RemoveDeviceFromRequest)
		requests.PUT("/:id/devices/:device_id", authMiddleware.WithAuthCheck(), h.UpdateDeviceInRequest)
	}

	// ============ Аутентификация ============
	auth := api.Group("/auth")
	{
		// Публичные эндпоинты
		auth.POST("/register", h.AuthHandler.RegisterUser) // POST регистрация
		auth.POST("/login", h.AuthHandler.LoginUser)       // POST аутентификация JWT + сессия

		// Защищенные эндпоинты
		auth.GET("/profile", authMiddleware.WithAuthCheck(), h.AuthHandler.GetUserProfile)
		auth.PUT("/profile", authMiddleware.WithAuthCheck(), h.AuthHandler.UpdateUserProfile)
		auth.POST("/logout", h.AuthHandler.LogoutUser)
	}

	// Swagger документация
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Ping эндпоинт для проверки
	router.GET("/ping", h.Ping)
}

// Ping проверяет работоспособность API
// @Summary Проверка работоспособности
// @Description Возвращает простой ответ для проверки работы сервера
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /ping [get]
func (h *APIHandler) Ping(ctx *gin.Context) {
	ctx.JSON(200, gin.H{"message": "pong"})
}
