package calc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"energycalc/internal/app/config"
	"energycalc/internal/app/ds"
	"energycalc/internal/app/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchSendsTask(t *testing.T) {
	received := make(chan taskPayload, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload taskPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(config.CalcConfig{
		ServiceURL: server.URL,
		Token:      "secret-token",
	})

	request := &ds.CalculationRequest{
		ID:          7,
		Status:      ds.StatusFormed,
		Residents:   3,
		Temperature: 22,
	}
	devices := []repository.DeviceInRequestInfo{
		{DeviceID: 1, Consumption: 25.5, Quantity: 2},
		{DeviceID: 4, Consumption: 9.9, Quantity: 1},
	}

	client.Dispatch(request, devices)

	select {
	case payload := <-received:
		assert.Equal(t, uint(7), payload.RequestID)
		assert.Equal(t, 3, payload.Residents)
		assert.Equal(t, 22, payload.Temperature)
		assert.Equal(t, "secret-token", payload.Token)
		require.Len(t, payload.Devices, 2)
		assert.Equal(t, uint(1), payload.Devices[0].DeviceID)
		assert.Equal(t, 25.5, payload.Devices[0].Consumption)
		assert.Equal(t, 2, payload.Devices[0].Quantity)
	case <-time.After(2 * time.Second):
		t.Fatal("задача не была отправлена в async-сервис")
	}
}

func TestDispatchSwallowsServerError(t *testing.T) {
	received := make(chan struct{}, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received <- struct{}{}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(config.CalcConfig{ServiceURL: server.URL, Token: "secret-token"})

	// Ошибка async-сервиса не должна влиять на вызывающего
	client.Dispatch(&ds.CalculationRequest{ID: 7}, nil)

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("задача не была отправлена в async-сервис")
	}
}

func TestDispatchSwallowsUnreachableService(t *testing.T) {
	client := NewClient(config.CalcConfig{
		ServiceURL: "http://127.0.0.1:1/api/calculate",
		Token:      "secret-token",
	})

	// Недоступный сервис: ошибка логируется и глотается, паники нет
	client.Dispatch(&ds.CalculationRequest{ID: 7}, nil)
	time.Sleep(100 * time.Millisecond)
}
