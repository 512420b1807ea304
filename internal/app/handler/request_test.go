package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"energycalc/internal/app/calc"
	"energycalc/internal/app/config"
	"energycalc/internal/app/ds"
	"energycalc/internal/app/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHandler(t *testing.T) (*APIHandler, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}

	repo := repository.NewWithDB(gormDB)
	return NewAPIHandler(repo, nil, nil, nil, "secret-token"), mock, db
}

func testContext(t *testing.T, method, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, "/", reader)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func authorize(c *gin.Context, userID uint, isModerator bool) {
	c.Set("userID", userID)
	c.Set("isModerator", isModerator)
}

func requestRow(id uint, status string, clientID uint) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "status", "residents", "temperature", "result",
		"created_at", "formed_at", "completed_at", "client_id", "moderator_id",
	}).AddRow(id, status, 2, 21, nil, time.Now(), nil, nil, clientID, nil)
}

func clientRow(id uint) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "login", "password", "is_moderator", "full_name"}).
		AddRow(id, "client", "hash", false, "Тестовый Клиент")
}

func TestReceiveCalculationResult(t *testing.T) {
	t.Run("неверный токен отклоняется", func(t *testing.T) {
		h, _, db := setupHandler(t)
		defer db.Close()

		c, w := testContext(t, http.MethodPut, `{"token":"wrong","result":340}`)
		c.Params = gin.Params{{Key: "id", Value: "7"}}

		h.ReceiveCalculationResult(c)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("без result запрос отклоняется", func(t *testing.T) {
		h, _, db := setupHandler(t)
		defer db.Close()

		c, w := testContext(t, http.MethodPut, `{"token":"secret-token"}`)
		c.Params = gin.Params{{Key: "id", Value: "7"}}

		h.ReceiveCalculationResult(c)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("неизвестная заявка дает 404", func(t *testing.T) {
		h, mock, db := setupHandler(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE calculation_requests SET result`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		c, w := testContext(t, http.MethodPut, `{"token":"secret-token","result":340}`)
		c.Params = gin.Params{{Key: "id", Value: "999"}}

		h.ReceiveCalculationResult(c)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("валидный колбэк сохраняет результат", func(t *testing.T) {
		h, mock, db := setupHandler(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE calculation_requests SET result = \$1, status = \$2 WHERE id = \$3`).
			WithArgs(340, ds.StatusCompleted, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))

		c, w := testContext(t, http.MethodPut, `{"token":"secret-token","result":340}`)
		c.Params = gin.Params{{Key: "id", Value: "7"}}

		h.ReceiveCalculationResult(c)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("нулевой результат — валидное значение", func(t *testing.T) {
		h, mock, db := setupHandler(t)
		defer db.Close()

		mock.ExpectExec(`UPDATE calculation_requests SET result`).
			WithArgs(0, ds.StatusCompleted, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))

		c, w := testContext(t, http.MethodPut, `{"token":"secret-token","result":0}`)
		c.Params = gin.Params{{Key: "id", Value: "7"}}

		h.ReceiveCalculationResult(c)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGetCartIcon(t *testing.T) {
	t.Run("гость получает пустую корзину", func(t *testing.T) {
		h, _, db := setupHandler(t)
		defer db.Close()

		c, w := testContext(t, http.MethodGet, "")

		h.GetCartIcon(c)
		require.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Nil(t, response["draft_request_id"])
		assert.Equal(t, float64(0), response["devices_count"])
	})

	t.Run("пользователь с черновиком получает id и количество", func(t *testing.T) {
		h, mock, db := setupHandler(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
			WillReturnRows(requestRow(5, ds.StatusDraft, 1))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "device_in_requests"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		c, w := testContext(t, http.MethodGet, "")
		authorize(c, 1, false)

		h.GetCartIcon(c)
		require.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(5), response["draft_request_id"])
		assert.Equal(t, float64(2), response["devices_count"])
	})
}

func TestGetRequestAccess(t *testing.T) {
	t.Run("чужая заявка недоступна клиенту", func(t *testing.T) {
		h, mock, db := setupHandler(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
			WillReturnRows(requestRow(7, ds.StatusFormed, 1))
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(clientRow(1))

		c, w := testContext(t, http.MethodGet, "")
		c.Params = gin.Params{{Key: "id", Value: "7"}}
		authorize(c, 2, false)

		h.GetRequest(c)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("модератору доступна любая заявка", func(t *testing.T) {
		h, mock, db := setupHandler(t)
		defer db.Close()

		mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
			WillReturnRows(requestRow(7, ds.StatusFormed, 1))
		mock.ExpectQuery(`SELECT \* FROM "users"`).
			WillReturnRows(clientRow(1))
		mock.ExpectQuery(`SELECT \* FROM "device_in_requests"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		c, w := testContext(t, http.MethodGet, "")
		c.Params = gin.Params{{Key: "id", Value: "7"}}
		authorize(c, 2, true)

		h.GetRequest(c)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestUpdateRequestFieldsProtectsSystemFields(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"статус менять нельзя", `{"status":"COMPLETED"}`},
		{"создателя менять нельзя", `{"client_id":99}`},
		{"модератора менять нельзя", `{"moderator_id":99}`},
		{"результат менять нельзя", `{"result":100}`},
		{"даты менять нельзя", `{"formed_at":"2026-01-01T00:00:00Z"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _, db := setupHandler(t)
			defer db.Close()

			c, w := testContext(t, http.MethodPut, tc.body)
			c.Params = gin.Params{{Key: "id", Value: "7"}}
			authorize(c, 1, false)

			h.UpdateRequestFields(c)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestUpdateRequestFieldsAllowed(t *testing.T) {
	h, mock, db := setupHandler(t)
	defer db.Close()

	// Загрузка заявки для проверки владельца
	mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
		WillReturnRows(requestRow(7, ds.StatusDraft, 1))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(clientRow(1))
	mock.ExpectExec(`UPDATE "calculation_requests" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, w := testContext(t, http.MethodPut, `{"residents":3,"temperature":18}`)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	authorize(c, 1, false)

	h.UpdateRequestFields(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func moderatorRow() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "login", "password", "is_moderator", "full_name"}).
		AddRow(2, "moderator", "hash", true, "Тестовый Модератор")
}

// lifecycleRow — заявка 7 клиента 1 в произвольной точке жизненного цикла
func lifecycleRow(status string, moderatorID, result interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "status", "residents", "temperature", "result",
		"created_at", "formed_at", "completed_at", "client_id", "moderator_id",
	}).AddRow(7, status, 2, 21, result, time.Now(), nil, nil, 1, moderatorID)
}

func lineRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "request_id", "device_id", "quantity"}).
		AddRow(1, 7, 3, 2)
}

func lineDeviceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "category", "power", "consumption", "energy_class"}).
		AddRow(3, "Холодильник Samsung RB37", "Крупная бытовая техника", 150, 25.5, "A++")
}

// Полный цикл заявки: формирование создателем, завершение модератором
// (статус остается FORMED, задача уходит в async-сервис), колбэк с результатом,
// итоговое чтение завершенной заявки с результатом, модератором и позициями.
func TestRequestLifecycleFlow(t *testing.T) {
	h, mock, db := setupHandler(t)
	defer db.Close()

	dispatched := make(chan []byte, 1)
	calcServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		dispatched <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer calcServer.Close()
	h.CalcClient = calc.NewClient(config.CalcConfig{ServiceURL: calcServer.URL, Token: "secret-token"})

	// --- Шаг 1: создатель формирует черновик ---
	mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
		WillReturnRows(lifecycleRow(ds.StatusDraft, nil, nil))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(clientRow(1))
	mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
		WillReturnRows(lifecycleRow(ds.StatusDraft, nil, nil))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(clientRow(1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "device_in_requests"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`UPDATE calculation_requests SET status = \$1, formed_at = \$2 WHERE id = \$3 AND status = \$4`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
		WillReturnRows(lifecycleRow(ds.StatusFormed, nil, nil))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(clientRow(1))

	c, w := testContext(t, http.MethodPut, "")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	authorize(c, 1, false)
	h.FormRequest(c)

	require.Equal(t, http.StatusOK, w.Code)
	var formed map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &formed))
	assert.Equal(t, ds.StatusFormed, formed["status"])

	// --- Шаг 2: модератор завершает — статус остается FORMED до колбэка ---
	mock.ExpectExec(`UPDATE calculation_requests SET moderator_id = \$1, completed_at = \$2 WHERE id = \$3 AND status = \$4`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
		WillReturnRows(lifecycleRow(ds.StatusFormed, 2, nil))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(clientRow(1))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(moderatorRow())
	mock.ExpectQuery(`SELECT \* FROM "device_in_requests"`).WillReturnRows(lineRows())
	mock.ExpectQuery(`SELECT \* FROM "devices"`).WillReturnRows(lineDeviceRows())
	mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
		WillReturnRows(lifecycleRow(ds.StatusFormed, 2, nil))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(clientRow(1))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(moderatorRow())

	c, w = testContext(t, http.MethodPut, `{"action":"complete"}`)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	authorize(c, 2, true)
	h.ModerateRequest(c)

	require.Equal(t, http.StatusOK, w.Code)
	var completed map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &completed))
	assert.Equal(t, ds.StatusFormed, completed["status"])
	assert.Equal(t, "moderator", completed["moderator"])
	assert.Nil(t, completed["result"])

	select {
	case body := <-dispatched:
		var task map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &task))
		assert.Equal(t, float64(7), task["request_id"])
		assert.Equal(t, "secret-token", task["token"])
		require.Len(t, task["devices"], 1)
	case <-time.After(2 * time.Second):
		t.Fatal("задача не была отправлена в async-сервис")
	}

	// --- Шаг 3: колбэк async-сервиса записывает результат ---
	mock.ExpectExec(`UPDATE calculation_requests SET result = \$1, status = \$2 WHERE id = \$3`).
		WithArgs(340, ds.StatusCompleted, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, w = testContext(t, http.MethodPut, `{"token":"secret-token","result":340}`)
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	h.ReceiveCalculationResult(c)
	require.Equal(t, http.StatusOK, w.Code)

	// --- Шаг 4: завершенная заявка читается с результатом и позициями ---
	mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
		WillReturnRows(lifecycleRow(ds.StatusCompleted, 2, 340))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(clientRow(1))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(moderatorRow())
	mock.ExpectQuery(`SELECT \* FROM "device_in_requests"`).WillReturnRows(lineRows())
	mock.ExpectQuery(`SELECT \* FROM "devices"`).WillReturnRows(lineDeviceRows())

	c, w = testContext(t, http.MethodGet, "")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	authorize(c, 2, true)
	h.GetRequest(c)

	require.Equal(t, http.StatusOK, w.Code)
	var final map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &final))
	assert.Equal(t, ds.StatusCompleted, final["status"])
	assert.Equal(t, float64(340), final["result"])
	assert.Equal(t, "moderator", final["moderator"])
	assert.Equal(t, "client", final["client"])
	require.Len(t, final["devices"], 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRemoveDeviceReturnsRemainingLines(t *testing.T) {
	h, mock, db := setupHandler(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
		WillReturnRows(requestRow(7, ds.StatusDraft, 1))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(clientRow(1))
	mock.ExpectExec(`DELETE FROM device_in_requests WHERE request_id = \$1 AND device_id = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "device_in_requests"`).WillReturnRows(lineRows())
	mock.ExpectQuery(`SELECT \* FROM "devices"`).WillReturnRows(lineDeviceRows())

	c, w := testContext(t, http.MethodDelete, "")
	c.Params = gin.Params{{Key: "id", Value: "7"}, {Key: "device_id", Value: "4"}}
	authorize(c, 1, false)

	h.RemoveDeviceFromRequest(c)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), data["devices_count"])

	devices, ok := data["devices"].([]interface{})
	require.True(t, ok)
	require.Len(t, devices, 1)
	line := devices[0].(map[string]interface{})
	assert.Equal(t, float64(3), line["device_id"])
	assert.Equal(t, float64(2), line["quantity"])
}

func TestDeleteRequestOwnership(t *testing.T) {
	h, mock, db := setupHandler(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT \* FROM "calculation_requests"`).
		WillReturnRows(requestRow(7, ds.StatusDraft, 1))
	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(clientRow(1))

	c, w := testContext(t, http.MethodDelete, "")
	c.Params = gin.Params{{Key: "id", Value: "7"}}
	authorize(c, 2, false)

	h.DeleteRequest(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
