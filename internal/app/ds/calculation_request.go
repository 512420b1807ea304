package ds

import "time"

// Статусы заявки на расчет
const (
	StatusDraft     = "DRAFT"
	StatusFormed    = "FORMED"
	StatusCompleted = "COMPLETED"
	StatusRejected  = "REJECTED"
	StatusDeleted   = "DELETED"
)

// 2. Таблица заявок на расчет энергопотребления
// Частичный уникальный индекс гарантирует не более одного черновика на клиента.
type CalculationRequest struct {
	ID          uint       `gorm:"primaryKey"`
	Status      string     `gorm:"type:varchar(10);not null;default:'DRAFT'"`
	Residents   int        `gorm:"type:int;default:1"`
	Temperature int        `gorm:"type:int;default:20"`
	Result      *int       `gorm:"default:null"` // Заполняется только асинхронным сервисом
	CreatedAt   time.Time  `gorm:"not null"`
	FormedAt    *time.Time `gorm:"default:null"` // Дата формирования (2 действия создателя)
	CompletedAt *time.Time `gorm:"default:null"` // Дата завершения (2 действия модератора)
	ClientID    uint       `gorm:"not null;index:idx_one_draft_per_client,unique,where:status = 'DRAFT'"`
	ModeratorID *uint      `gorm:"default:null"`

	Client    User  `gorm:"foreignKey:ClientID"`
	Moderator *User `gorm:"foreignKey:ModeratorID"`
}
