package repository

import (
	"errors"
	"fmt"

	"energycalc/internal/app/ds"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Ошибки уровня хранилища; хендлеры транслируют их в коды ответов
var (
	ErrNotFound      = errors.New("запись не найдена")
	ErrBadStatus     = errors.New("недопустимый статус заявки для этой операции")
	ErrEmptyRequest  = errors.New("в заявке нет устройств")
	ErrFieldsMissing = errors.New("не заполнены обязательные поля заявки")
)

type Repository struct {
	db *gorm.DB
}

func New(dsn string) (*Repository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Автоматическая миграция всех таблиц
	err = db.AutoMigrate(
		&ds.User{},
		&ds.Device{},
		&ds.CalculationRequest{},
		&ds.DeviceInRequest{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Repository{
		db: db,
	}, nil
}

// NewWithDB оборачивает готовое соединение (используется в тестах)
func NewWithDB(db *gorm.DB) *Repository {
	return &Repository{db: db}
}
