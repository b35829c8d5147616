package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vibe-server/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func TestClient_Submit(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/generate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{"code": 200, "data": {"taskId": "task-42"}}`))
	})

	taskID, err := client.Submit(context.Background(), SubmitRequest{
		Prompt:      "calm lake at dawn",
		CallBackURL: "https://app.example/api/callback/music",
	})
	require.NoError(t, err)
	assert.Equal(t, "task-42", taskID)
}

func TestClient_SubmitRejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"code": 402, "msg": "insufficient provider credits"}`))
	})

	_, err := client.Submit(context.Background(), SubmitRequest{Prompt: "anything"})
	assert.ErrorIs(t, err, ErrSubmitFailed)
}

func TestClient_SubmitResponseWithoutTaskID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 200, "data": {}}`))
	})

	_, err := client.Submit(context.Background(), SubmitRequest{Prompt: "anything"})
	assert.ErrorIs(t, err, ErrSubmitFailed)
}

func TestClient_FetchStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/generate/record-info", r.URL.Path)
		assert.Equal(t, "task-42", r.URL.Query().Get("taskId"))
		w.Write([]byte(`{"data": {"taskId": "task-42", "status": "SUCCESS", "audio_url": "https://cdn/a.mp3"}}`))
	})

	result, err := client.FetchStatus(context.Background(), "task-42")
	require.NoError(t, err)
	assert.Equal(t, "task-42", result.TaskID)
	assert.Equal(t, "SUCCESS", result.Status)
	assert.True(t, result.HasMedia())
}

func TestClient_FetchStatusServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchStatus(context.Background(), "task-42")
	assert.ErrorIs(t, err, model.ErrProviderUnavailable)
}

func TestClient_FetchStatusTaskNotVisibleYet(t *testing.T) {
	// Ответ без task id: задача еще не видна на стороне провайдера,
	// клиент должен получить "еще pending", а не ошибку
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code": 200, "data": {}}`))
	})

	result, err := client.FetchStatus(context.Background(), "task-42")
	require.NoError(t, err)
	assert.Equal(t, "task-42", result.TaskID)
	assert.False(t, result.HasMedia())
	assert.False(t, result.IndicatesFailure())
}

func TestNewClient_RequiresConfig(t *testing.T) {
	_, err := NewClient(Config{APIKey: "k"}, zap.NewNop())
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "https://api.example"}, zap.NewNop())
	assert.Error(t, err)
}
