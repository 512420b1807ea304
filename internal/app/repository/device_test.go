package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deviceColumns() []string {
	return []string{
		"id", "name", "category", "image_url", "power", "consumption",
		"peak_power", "voltage", "work_per_day", "energy_class",
	}
}

func TestSearchDevicesByName(t *testing.T) {
	repo, mock, db := setupMockRepo(t)
	defer db.Close()

	// Поиск подстроки без учета регистра, удаленные не попадают в выборку
	mock.ExpectQuery(`SELECT \* FROM "devices" WHERE name ILIKE \$1 AND is_deleted = \$2`).
		WithArgs("%холод%", false).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_deleted"}).
			AddRow(1, "Холодильник Samsung RB37", false))

	devices, err := repo.SearchDevicesByName("холод")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Холодильник Samsung RB37", devices[0].Name)
}

func TestGetDeviceByID(t *testing.T) {
	t.Run("устройство читается курсором", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, name, category, image_url`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows(deviceColumns()).
				AddRow(1, "Холодильник Samsung RB37", "Крупная бытовая техника", nil, 150, 25.5, 400, "220 В", "24 часа", "A++"))

		device, err := repo.GetDeviceByID(1)
		require.NoError(t, err)
		assert.Equal(t, uint(1), device.ID)
		assert.Equal(t, 150, device.Power)
		assert.Nil(t, device.ImageURL)
	})

	t.Run("удаленное или несуществующее устройство дает ErrNotFound", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, name, category, image_url`).
			WillReturnRows(sqlmock.NewRows(deviceColumns()))

		_, err := repo.GetDeviceByID(99)
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDeleteDevice(t *testing.T) {
	t.Run("логическое удаление", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE devices SET is_deleted = true WHERE id = \$1 AND is_deleted = false`).
			WithArgs(1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.DeleteDevice(1))
	})

	t.Run("повторное удаление дает ErrNotFound", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE devices SET is_deleted = true`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.ErrorIs(t, repo.DeleteDevice(1), ErrNotFound)
	})
}

func TestUpdateDevice(t *testing.T) {
	t.Run("пустое обновление — no-op", func(t *testing.T) {
		repo, _, db := setupMockRepo(t)
		defer db.Close()

		require.NoError(t, repo.UpdateDevice(1, map[string]interface{}{}))
	})

	t.Run("удаленное устройство не обновляется", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE "devices" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateDevice(1, map[string]interface{}{"power": 200})
		require.ErrorIs(t, err, ErrNotFound)
	})
}
