package repository

import (
	"errors"
	"time"

	"energycalc/internal/app/ds"

	"gorm.io/gorm"
)

// Методы для работы с заявками на расчет.
// Переходы статусов выполняются защищенными UPDATE с проверкой RowsAffected,
// чтобы параллельные вызовы не могли выполнить один переход дважды.

// Получить черновик заявки для пользователя (если есть)
func (r *Repository) GetDraftRequest(userID uint) (*ds.CalculationRequest, error) {
	var request ds.CalculationRequest
	err := r.db.Where("client_id = ? AND status = ?", userID, ds.StatusDraft).First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// Создать новую заявку в статусе черновик
func (r *Repository) CreateDraftRequest(userID uint) (*ds.CalculationRequest, error) {
	request := ds.CalculationRequest{
		Status:      ds.StatusDraft,
		Residents:   1,
		Temperature: 20,
		Result:      nil,
		CreatedAt:   time.Now(),
		ClientID:    userID,
	}

	err := r.db.Create(&request).Error
	if err != nil {
		return nil, err
	}

	return &request, nil
}

// GetOrCreateDraftRequest находит черновик пользователя или создает новый.
// Инвариант "не более одного черновика" держит частичный уникальный индекс:
// при гонке двух первых добавлений Create падает, и мы перечитываем существующий черновик.
func (r *Repository) GetOrCreateDraftRequest(userID uint) (*ds.CalculationRequest, error) {
	request, err := r.GetDraftRequest(userID)
	if err == nil {
		return request, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	request, err = r.CreateDraftRequest(userID)
	if err == nil {
		return request, nil
	}

	// Проиграли гонку создания — черновик уже есть
	return r.GetDraftRequest(userID)
}

// Получить заявку по ID (удаленные невидимы)
func (r *Repository) GetRequestByID(requestID uint) (*ds.CalculationRequest, error) {
	var request ds.CalculationRequest
	err := r.db.Preload("Client").Preload("Moderator").
		Where("id = ? AND status != ?", requestID, ds.StatusDeleted).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// SearchRequests возвращает заявки без удаленных.
// clientID != nil ограничивает выборку заявками одного клиента,
// дата фильтруется по дню создания включительно.
func (r *Repository) SearchRequests(clientID *uint, status string, dateStart, dateEnd *time.Time) ([]ds.CalculationRequest, error) {
	query := r.db.Preload("Client").Preload("Moderator").
		Where("status != ?", ds.StatusDeleted)

	if clientID != nil {
		query = query.Where("client_id = ?", *clientID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if dateStart != nil {
		query = query.Where("created_at::date >= ?", dateStart.Format("2006-01-02"))
	}
	if dateEnd != nil {
		query = query.Where("created_at::date <= ?", dateEnd.Format("2006-01-02"))
	}

	var requests []ds.CalculationRequest
	err := query.Order("id").Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

// UpdateRequestFields обновляет поля расчета (residents, temperature).
// Разрешено только пока заявка не в терминальном статусе.
func (r *Repository) UpdateRequestFields(requestID uint, residents, temperature *int) error {
	updates := map[string]interface{}{}
	if residents != nil {
		updates["residents"] = *residents
	}
	if temperature != nil {
		updates["temperature"] = *temperature
	}
	if len(updates) == 0 {
		return nil
	}

	result := r.db.Model(&ds.CalculationRequest{}).
		Where("id = ? AND status IN ?", requestID, []string{ds.StatusDraft, ds.StatusFormed}).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBadStatus
	}
	return nil
}

// FormRequest переводит черновик в статус FORMED (2 действие создателя)
func (r *Repository) FormRequest(requestID uint) error {
	request, err := r.GetRequestByID(requestID)
	if err != nil {
		return err
	}
	if request.Status != ds.StatusDraft {
		return ErrBadStatus
	}
	if request.Residents <= 0 || request.Temperature == 0 {
		return ErrFieldsMissing
	}

	count, err := r.CountRequestDevices(requestID)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrEmptyRequest
	}

	result := r.db.Exec(
		"UPDATE calculation_requests SET status = ?, formed_at = ? WHERE id = ? AND status = ?",
		ds.StatusFormed, time.Now(), requestID, ds.StatusDraft,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBadStatus
	}
	return nil
}

// CompleteRequest фиксирует решение модератора "завершить".
// Статус остается FORMED до колбэка асинхронного сервиса с результатом.
func (r *Repository) CompleteRequest(requestID, moderatorID uint) error {
	result := r.db.Exec(
		"UPDATE calculation_requests SET moderator_id = ?, completed_at = ? WHERE id = ? AND status = ?",
		moderatorID, time.Now(), requestID, ds.StatusFormed,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBadStatus
	}
	return nil
}

// RejectRequest отклоняет сформированную заявку модератором
func (r *Repository) RejectRequest(requestID, moderatorID uint) error {
	result := r.db.Exec(
		"UPDATE calculation_requests SET status = ?, moderator_id = ?, completed_at = ? WHERE id = ? AND status = ?",
		ds.StatusRejected, moderatorID, time.Now(), requestID, ds.StatusFormed,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBadStatus
	}
	return nil
}

// SQL операция для логического удаления черновика
func (r *Repository) DeleteRequest(requestID uint) error {
	result := r.db.Exec(
		"UPDATE calculation_requests SET status = ? WHERE id = ? AND status = ?",
		ds.StatusDeleted, requestID, ds.StatusDraft,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBadStatus
	}
	return nil
}

// SetRequestResult записывает результат расчета от асинхронного сервиса.
// Единственный путь, по которому заявка получает статус COMPLETED с результатом;
// повторная доставка того же результата — наблюдаемый no-op.
func (r *Repository) SetRequestResult(requestID uint, resultValue int) error {
	result := r.db.Exec(
		"UPDATE calculation_requests SET result = ?, status = ? WHERE id = ?",
		resultValue, ds.StatusCompleted, requestID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Получить ID черновика заявки (или 0 если нет)
func (r *Repository) GetDraftRequestID(userID uint) uint {
	request, err := r.GetDraftRequest(userID)
	if err != nil {
		return 0
	}
	return request.ID
}

// Получить содержимое иконки корзины: ID черновика и количество позиций.
// Для пользователя без черновика возвращает нули без ошибки.
func (r *Repository) GetCartInfo(userID uint) (uint, int) {
	request, err := r.GetDraftRequest(userID)
	if err != nil {
		return 0, 0
	}

	count, err := r.CountRequestDevices(request.ID)
	if err != nil {
		return request.ID, 0
	}

	return request.ID, int(count)
}
