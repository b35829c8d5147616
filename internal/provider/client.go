package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"vibe-server/internal/model"
)

// ErrSubmitFailed - провайдер не принял задачу на генерацию.
var ErrSubmitFailed = errors.New("provider rejected generation task")

// Client определяет интерфейс клиента внешнего API генерации музыки.
type Client interface {
	// Submit отправляет задачу на генерацию и возвращает task id провайдера.
	Submit(ctx context.Context, req SubmitRequest) (string, error)

	// FetchStatus запрашивает статус задачи по task id. Ошибки транспорта и
	// 5xx заворачиваются в model.ErrProviderUnavailable.
	FetchStatus(ctx context.Context, taskID string) (model.GenerationResult, error)
}

// SubmitRequest - параметры отправки задачи на генерацию.
type SubmitRequest struct {
	Prompt      string `json:"prompt"`
	Style       string `json:"style,omitempty"`
	Title       string `json:"title,omitempty"`
	CallBackURL string `json:"callBackUrl"`
}

// Config содержит настройки HTTP клиента провайдера.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type httpClient struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// Compile-time check to ensure httpClient implements Client
var _ Client = (*httpClient)(nil)

// NewClient создает HTTP клиент музыкального провайдера.
func NewClient(cfg Config, logger *zap.Logger) (Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("provider base URL is not configured")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("provider API key is not configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &httpClient{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: logger.Named("ProviderClient"),
	}, nil
}

// submitResponse - ответ провайдера на отправку задачи.
type submitResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		TaskID      string `json:"task_id"`
		TaskIDCamel string `json:"taskId"`
	} `json:"data"`
}

// Submit отправляет задачу на генерацию.
func (c *httpClient) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации запроса генерации: %w", err)
	}

	respBody, status, err := c.do(ctx, http.MethodPost, "/api/v1/generate", body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrProviderUnavailable, err)
	}
	if status != http.StatusOK {
		c.logger.Error("Provider submit returned non-200",
			zap.Int("status", status), zap.ByteString("body", respBody))
		return "", fmt.Errorf("%w: status %d", ErrSubmitFailed, status)
	}

	var parsed submitResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: не удалось разобрать ответ: %v", ErrSubmitFailed, err)
	}

	taskID := parsed.Data.TaskID
	if taskID == "" {
		taskID = parsed.Data.TaskIDCamel
	}
	if taskID == "" {
		c.logger.Error("Provider submit response has no task id", zap.ByteString("body", respBody))
		return "", fmt.Errorf("%w: ответ без task id", ErrSubmitFailed)
	}

	c.logger.Info("Generation task submitted", zap.String("task_id", taskID))
	return taskID, nil
}

// FetchStatus запрашивает статус задачи у провайдера и нормализует ответ.
func (c *httpClient) FetchStatus(ctx context.Context, taskID string) (model.GenerationResult, error) {
	path := fmt.Sprintf("/api/v1/generate/record-info?taskId=%s", taskID)

	respBody, status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return model.GenerationResult{}, fmt.Errorf("%w: %v", model.ErrProviderUnavailable, err)
	}
	if status >= http.StatusInternalServerError {
		return model.GenerationResult{}, fmt.Errorf("%w: status %d", model.ErrProviderUnavailable, status)
	}
	if status != http.StatusOK {
		c.logger.Warn("Provider status returned non-200",
			zap.String("task_id", taskID), zap.Int("status", status))
		return model.GenerationResult{}, fmt.Errorf("%w: status %d", model.ErrProviderUnavailable, status)
	}

	result, err := ParseResultPayload(respBody)
	if err != nil {
		if errors.Is(err, model.ErrMissingTaskID) {
			// Ответ без task id считаем "задача еще не видна" - пусть клиент опрашивает дальше
			result.TaskID = taskID
			return result, nil
		}
		return model.GenerationResult{}, fmt.Errorf("%w: %v", model.ErrProviderUnavailable, err)
	}
	return result, nil
}

// do выполняет запрос с bearer-авторизацией и возвращает тело и статус.
func (c *httpClient) do(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("ошибка чтения ответа: %w", err)
	}
	return respBody, resp.StatusCode, nil
}
