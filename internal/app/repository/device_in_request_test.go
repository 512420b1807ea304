package repository

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddDeviceToRequest(t *testing.T) {
	t.Run("повторное добавление инкрементирует quantity", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE device_in_requests SET quantity = quantity \+ 1`).
			WithArgs(5, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AddDeviceToRequest(5, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("первое добавление создает позицию с quantity 1", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE device_in_requests SET quantity = quantity \+ 1`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO "device_in_requests"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		require.NoError(t, repo.AddDeviceToRequest(5, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("проигранная гонка вставки завершается повторным инкрементом", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE device_in_requests SET quantity = quantity \+ 1`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`INSERT INTO "device_in_requests"`).
			WillReturnError(errors.New("duplicate key value violates unique constraint"))
		mock.ExpectExec(`UPDATE device_in_requests SET quantity = quantity \+ 1`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.AddDeviceToRequest(5, 3))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemoveDeviceFromRequest(t *testing.T) {
	t.Run("позиция удаляется", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM device_in_requests WHERE request_id = \$1 AND device_id = \$2`).
			WithArgs(5, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.RemoveDeviceFromRequest(5, 3))
	})

	t.Run("отсутствующая позиция дает ErrNotFound", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectExec(`DELETE FROM device_in_requests`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.ErrorIs(t, repo.RemoveDeviceFromRequest(5, 99), ErrNotFound)
	})
}

func TestUpdateDeviceQuantity(t *testing.T) {
	t.Run("количество обновляется", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE device_in_requests SET quantity = \$1 WHERE request_id = \$2 AND device_id = \$3`).
			WithArgs(4, 5, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdateDeviceQuantity(5, 3, 4))
	})

	t.Run("отсутствующая позиция дает ErrNotFound", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE device_in_requests SET quantity`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.ErrorIs(t, repo.UpdateDeviceQuantity(5, 99, 4), ErrNotFound)
	})
}

func TestGetRequestDevices(t *testing.T) {
	t.Run("позиции соединяются с данными устройств", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT \* FROM "device_in_requests"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "request_id", "device_id", "quantity"}).
				AddRow(1, 5, 3, 2).
				AddRow(2, 5, 4, 1))
		mock.ExpectQuery(`SELECT \* FROM "devices"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "power", "consumption", "energy_class"}).
				AddRow(3, "Холодильник", "Крупная бытовая техника", 150, 25.5, "A++").
				AddRow(4, "Чайник", "Мелкая бытовая техника", 2200, 9.9, "B"))

		infos, err := repo.GetRequestDevices(5)
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, "Холодильник", infos[0].Name)
		assert.Equal(t, 2, infos[0].Quantity)
		assert.Equal(t, 25.5, infos[0].Consumption)
		assert.Equal(t, "Чайник", infos[1].Name)
	})

	t.Run("пустая заявка дает пустой срез", func(t *testing.T) {
		repo, mock, db := setupMockRepo(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT \* FROM "device_in_requests"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		infos, err := repo.GetRequestDevices(5)
		require.NoError(t, err)
		assert.Empty(t, infos)
	})
}
