package calc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"energycalc/internal/app/config"
	"energycalc/internal/app/ds"
	"energycalc/internal/app/repository"

	"github.com/sirupsen/logrus"
)

// Client отправляет задачи на расчет во внешний асинхронный сервис.
// Результат приходит обратно отдельным колбэком (PUT /api/requests/result/{id}),
// подписанным тем же секретным токеном.
type Client struct {
	serviceURL string
	token      string
	httpClient *http.Client
}

func NewClient(cfg config.CalcConfig) *Client {
	return &Client{
		serviceURL: cfg.ServiceURL,
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type taskDevice struct {
	DeviceID    uint    `json:"device_id"`
	Consumption float64 `json:"consumption"`
	Quantity    int     `json:"quantity"`
}

// taskPayload описывает задачу, которую основной сервис отправляет в async-сервис
type taskPayload struct {
	RequestID   uint         `json:"request_id"`
	Residents   int          `json:"residents"`
	Temperature int          `json:"temperature"`
	Devices     []taskDevice `json:"devices"`
	Token       string       `json:"token"`
}

// Dispatch отправляет задачу на расчет в отдельной горутине и сразу возвращает
// управление. Доставка at-most-once: ошибки сети и неуспешные ответы логируются
// и глотаются, повторов нет — действие модератора не должно зависеть от
// доступности внешнего сервиса.
func (c *Client) Dispatch(request *ds.CalculationRequest, devices []repository.DeviceInRequestInfo) {
	taskDevices := make([]taskDevice, 0, len(devices))
	for _, d := range devices {
		taskDevices = append(taskDevices, taskDevice{
			DeviceID:    d.DeviceID,
			Consumption: d.Consumption,
			Quantity:    d.Quantity,
		})
	}

	payload := taskPayload{
		RequestID:   request.ID,
		Residents:   request.Residents,
		Temperature: request.Temperature,
		Devices:     taskDevices,
		Token:       c.token,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		logrus.Errorf("calc dispatch: marshal error for request %d: %v", request.ID, err)
		return
	}

	go c.send(payload.RequestID, body)
}

func (c *Client) send(requestID uint, body []byte) {
	req, err := http.NewRequest(http.MethodPost, c.serviceURL, bytes.NewBuffer(body))
	if err != nil {
		logrus.Errorf("calc dispatch: build request failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logrus.Errorf("calc dispatch: request failed for request %d: %v", requestID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		logrus.Warnf("calc dispatch: async service responded %d: %s", resp.StatusCode, string(respBody))
		return
	}

	logrus.Infof("calc dispatch: task for request %d accepted", requestID)
}
