package repository

import (
	"energycalc/internal/app/ds"
)

// Методы для М-М связи (устройства в заявке)

// Позиция заявки вместе с данными устройства
type DeviceInRequestInfo struct {
	DeviceID    uint
	Name        string
	Category    string
	ImageURL    *string
	Power       int
	Consumption float64
	EnergyClass string
	Quantity    int
}

// AddDeviceToRequest добавляет устройство в заявку.
// Повторное добавление увеличивает quantity на 1 атомарным UPDATE;
// гонка двух первых добавлений разрешается уникальным индексом (request, device).
func (r *Repository) AddDeviceToRequest(requestID, deviceID uint) error {
	result := r.db.Exec(
		"UPDATE device_in_requests SET quantity = quantity + 1 WHERE request_id = ? AND device_id = ?",
		requestID, deviceID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	deviceInRequest := ds.DeviceInRequest{
		RequestID: requestID,
		DeviceID:  deviceID,
		Quantity:  1,
	}
	err := r.db.Create(&deviceInRequest).Error
	if err == nil {
		return nil
	}

	// Проиграли гонку вставки — строка уже появилась, инкрементируем ее
	retry := r.db.Exec(
		"UPDATE device_in_requests SET quantity = quantity + 1 WHERE request_id = ? AND device_id = ?",
		requestID, deviceID,
	)
	if retry.Error != nil {
		return retry.Error
	}
	if retry.RowsAffected == 0 {
		return err
	}
	return nil
}

// Удалить устройство из заявки
func (r *Repository) RemoveDeviceFromRequest(requestID, deviceID uint) error {
	result := r.db.Exec(
		"DELETE FROM device_in_requests WHERE request_id = ? AND device_id = ?",
		requestID, deviceID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Изменить количество устройства в заявке (только положительное)
func (r *Repository) UpdateDeviceQuantity(requestID, deviceID uint, quantity int) error {
	result := r.db.Exec(
		"UPDATE device_in_requests SET quantity = ? WHERE request_id = ? AND device_id = ?",
		quantity, requestID, deviceID,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Получить количество позиций в заявке (количество записей, не сумму quantity)
func (r *Repository) CountRequestDevices(requestID uint) (int64, error) {
	var count int64
	err := r.db.Model(&ds.DeviceInRequest{}).Where("request_id = ?", requestID).Count(&count).Error
	return count, err
}

// Получить устройства в заявке (с данными из М-М таблицы)
func (r *Repository) GetRequestDevices(requestID uint) ([]DeviceInRequestInfo, error) {
	var lines []ds.DeviceInRequest
	err := r.db.Where("request_id = ?", requestID).Order("id").Find(&lines).Error
	if err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return []DeviceInRequestInfo{}, nil
	}

	var deviceIDs []uint
	for _, line := range lines {
		deviceIDs = append(deviceIDs, line.DeviceID)
	}

	var dbDevices []ds.Device
	err = r.db.Where("id IN ?", deviceIDs).Find(&dbDevices).Error
	if err != nil {
		return nil, err
	}

	deviceMap := make(map[uint]ds.Device)
	for _, d := range dbDevices {
		deviceMap[d.ID] = d
	}

	infos := make([]DeviceInRequestInfo, 0, len(lines))
	for _, line := range lines {
		d, exists := deviceMap[line.DeviceID]
		if !exists {
			continue
		}

		infos = append(infos, DeviceInRequestInfo{
			DeviceID:    d.ID,
			Name:        d.Name,
			Category:    d.Category,
			ImageURL:    d.ImageURL,
			Power:       d.Power,
			Consumption: d.Consumption,
			EnergyClass: d.EnergyClass,
			Quantity:    line.Quantity,
		})
	}
	return infos, nil
}
