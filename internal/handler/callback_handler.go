package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibe-server/internal/model"
	"vibe-server/internal/provider"
	"vibe-server/internal/service"
)

// musicCallback обрабатывает POST /api/callback/music - входящий callback
// провайдера. Форма payload'а у провайдера плавает, поэтому тело разбирается
// толерантным нормализатором. На обработанные сигналы всегда отвечаем 200,
// чтобы провайдер не ретраил без необходимости; 400 - только на отсутствие
// task id.
func (h *TrackHandler) musicCallback(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "failed to read body"})
		return
	}

	result, err := provider.ParseResultPayload(body)
	if err != nil {
		if errors.Is(err, model.ErrMissingTaskID) {
			h.logger.Warn("Callback without task id", zap.ByteString("body", body))
			c.JSON(http.StatusBadRequest, APIError{Message: "task id is missing"})
			return
		}
		h.logger.Warn("Unparseable callback payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid payload"})
		return
	}

	reconciled, err := h.reconciler.Reconcile(c.Request.Context(), service.ChannelCallback, result)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrTrackNotFound):
			// Записи нет и не будет: сообщаем, но не просим провайдера ретраить
			h.logger.Warn("Callback for unknown task", zap.String("task_id", result.TaskID))
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		default:
			h.logger.Error("Callback reconcile failed",
				zap.String("task_id", result.TaskID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, APIError{Message: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "outcome": string(reconciled.Outcome)})
}
