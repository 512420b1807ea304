package ds

// 3. Таблица многие-ко-многим (заявки-устройства)
// Повторное добавление устройства увеличивает quantity, а не создает новую строку.
type DeviceInRequest struct {
	ID        uint `gorm:"primaryKey"`
	RequestID uint `gorm:"not null;index;uniqueIndex:idx_request_device"`
	DeviceID  uint `gorm:"not null;index;uniqueIndex:idx_request_device"`
	Quantity  int  `gorm:"type:int;not null;default:1"`

	Request CalculationRequest `gorm:"foreignKey:RequestID"`
	Device  Device             `gorm:"foreignKey:DeviceID"`
}
