package dto

import "time"

// ============ Общие структуры ============

type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ============ Устройства (Devices) ============

type DeviceResponse struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Power       int     `json:"power"`
	Consumption float64 `json:"consumption"`
	PeakPower   int     `json:"peak_power"`
	Voltage     string  `json:"voltage"`
	WorkPerDay  string  `json:"work_per_day"`
	EnergyClass string  `json:"energy_class"`
}

type DeviceListResponse struct {
	Devices []DeviceResponse `json:"devices"`
	Total   int              `json:"total"`
}

type CreateDeviceRequest struct {
	Name        string  `json:"name" binding:"required"`
	Category    string  `json:"category"`
	Power       int     `json:"power" binding:"required,gt=0"`
	Consumption float64 `json:"consumption" binding:"required,gt=0"`
	PeakPower   int     `json:"peak_power" binding:"omitempty,gt=0"`
	Voltage     string  `json:"voltage"`
	WorkPerDay  string  `json:"work_per_day"`
	EnergyClass string  `json:"energy_class"`
}

type UpdateDeviceRequest struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Power       int     `json:"power" binding:"omitempty,gt=0"`
	Consumption float64 `json:"consumption" binding:"omitempty,gt=0"`
	PeakPower   int     `json:"peak_power" binding:"omitempty,gt=0"`
	Voltage     string  `json:"voltage"`
	WorkPerDay  string  `json:"work_per_day"`
	EnergyClass string  `json:"energy_class"`
}

// ============ Заявки (Calculation Requests) ============

type RequestResponse struct {
	ID          uint                  `json:"id"`
	Status      string                `json:"status"`
	CreatedAt   time.Time             `json:"created_at"`
	FormedAt    *time.Time            `json:"formed_at,omitempty"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	Client      string                `json:"client"`    // Логин создателя
	Moderator   string                `json:"moderator"` // Логин модератора (если есть)
	Residents   int                   `json:"residents"`
	Temperature int                   `json:"temperature"`
	Result      *int                  `json:"result"`
	Devices     []DeviceInRequestResp `json:"devices,omitempty"` // Только для GET одной заявки
}

type DeviceInRequestResp struct {
	DeviceID    uint    `json:"device_id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"image_url"`
	Power       int     `json:"power"`
	Consumption float64 `json:"consumption"`
	EnergyClass string  `json:"energy_class"`
	Quantity    int     `json:"quantity"`
}

type RequestListResponse struct {
	Requests []RequestResponse `json:"requests"`
	Total    int               `json:"total"`
}

type CartIconResponse struct {
	DraftRequestID *uint `json:"draft_request_id"` // null если черновика нет
	DevicesCount   int   `json:"devices_count"`
}

// UpdateRequestFieldsRequest — изменяемые создателем поля заявки.
// Системные поля (id, status, client, moderator, даты) менять нельзя,
// их присутствие в запросе отклоняется целиком.
type UpdateRequestFieldsRequest struct {
	Residents   *int `json:"residents" binding:"omitempty,gt=0"`
	Temperature *int `json:"temperature"`
}

type ModerateRequest struct {
	Action string `json:"action" binding:"required,oneof=complete reject"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=COMPLETED REJECTED"`
}

type CalculationResultRequest struct {
	Token  string `json:"token" binding:"required"`
	Result *int   `json:"result" binding:"required"`
}

// ============ М-М связь (Devices in Request) ============

type UpdateDeviceInRequestRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

// ============ Пользователи (Users) ============

type UserResponse struct {
	ID          uint   `json:"id"`
	Login       string `json:"login"`
	FullName    string `json:"full_name"`
	IsModerator bool   `json:"is_moderator"`
}

type RegisterRequest struct {
	Login       string `json:"login" binding:"required,min=3,max=50"`
	Password    string `json:"password" binding:"required,min=6"`
	FullName    string `json:"full_name" binding:"required"`
	IsModerator bool   `json:"is_moderator"`
}

type UpdateUserRequest struct {
	FullName string `json:"full_name"`
	Password string `json:"password" binding:"omitempty,min=6"`
}

type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
}
