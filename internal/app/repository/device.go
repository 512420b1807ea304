package repository

import (
	"database/sql"
	"errors"

	"energycalc/internal/app/ds"
)

// Методы для работы с устройствами (справочник)

// Получить все устройства из БД
func (r *Repository) GetAllDevices() ([]ds.Device, error) {
	var devices []ds.Device
	err := r.db.Where("is_deleted = ?", false).Order("id").Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// Поиск устройств по названию
func (r *Repository) SearchDevicesByName(name string) ([]ds.Device, error) {
	var devices []ds.Device
	err := r.db.Where("name ILIKE ? AND is_deleted = ?", "%"+name+"%", false).Order("id").Find(&devices).Error
	if err != nil {
		return nil, err
	}
	return devices, nil
}

// Получить устройство по ID
func (r *Repository) GetDeviceByID(id uint) (*ds.Device, error) {
	// Используем курсор
	query := `SELECT id, name, category, image_url, power, consumption, peak_power, voltage, work_per_day, energy_class
	          FROM devices
	          WHERE id = $1 AND is_deleted = false`

	row := r.db.Raw(query, id).Row()

	var device ds.Device
	err := row.Scan(&device.ID, &device.Name, &device.Category, &device.ImageURL,
		&device.Power, &device.Consumption, &device.PeakPower,
		&device.Voltage, &device.WorkPerDay, &device.EnergyClass)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &device, nil
}

func (r *Repository) DeviceExists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&ds.Device{}).Where("id = ? AND is_deleted = ?", id, false).Count(&count).Error
	return count > 0, err
}

func (r *Repository) CreateDevice(device *ds.Device) error {
	return r.db.Create(device).Error
}

// UpdateDevice частично обновляет поля устройства
func (r *Repository) UpdateDevice(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}

	result := r.db.Model(&ds.Device{}).Where("id = ? AND is_deleted = ?", id, false).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SQL операция для логического удаления устройства
func (r *Repository) DeleteDevice(id uint) error {
	result := r.db.Exec("UPDATE devices SET is_deleted = true WHERE id = ? AND is_deleted = false", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateDeviceImage(id uint, imageURL string) error {
	result := r.db.Model(&ds.Device{}).Where("id = ?", id).Update("image_url", imageURL)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteDeviceImage(id uint) error {
	return r.db.Model(&ds.Device{}).Where("id = ?", id).Update("image_url", nil).Error
}
