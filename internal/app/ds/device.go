package ds

// 1. Таблица устройств (справочник бытовой техники)
type Device struct {
	ID          uint    `gorm:"primaryKey"`
	Name        string  `gorm:"type:varchar(255);not null"`
	Category    string  `gorm:"type:varchar(100)"`
	ImageURL    *string `gorm:"type:varchar(500)"` // Nullable
	Power       int     `gorm:"type:int;not null"` // Мощность (Вт)
	Consumption float64 `gorm:"type:decimal(10,2);not null"` // Потребление в месяц (кВт)
	PeakPower   int     `gorm:"type:int"`                    // Пиковая мощность (Вт)
	Voltage     string  `gorm:"type:varchar(50)"`
	WorkPerDay  string  `gorm:"type:varchar(50)"`
	EnergyClass string  `gorm:"type:varchar(10)"`
	IsDeleted   bool    `gorm:"type:boolean;default:false;not null"`
}
