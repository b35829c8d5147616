package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibe-server/internal/model"
	"vibe-server/internal/service"
)

// statusResponse - ответ poll-эндпоинта.
type statusResponse struct {
	Status string       `json:"status"`
	Track  *model.Track `json:"track,omitempty"`
}

// checkStatus обрабатывает GET /api/tracks/status?taskId=...
// Каждый вызов, пока трек не completed, активно опрашивает провайдера и
// оппортунистически завершает запись как side effect самого опроса.
func (h *TrackHandler) checkStatus(c *gin.Context) {
	taskID := c.Query("taskId")
	if taskID == "" {
		taskID = c.Query("task_id")
	}
	if taskID == "" {
		c.JSON(http.StatusBadRequest, APIError{Message: "taskId query parameter is required"})
		return
	}

	status, track, err := h.tracks.CheckStatus(c.Request.Context(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrMissingTaskID):
			c.JSON(http.StatusBadRequest, APIError{Message: "taskId query parameter is required"})
		case errors.Is(err, model.ErrTrackNotFound):
			c.JSON(http.StatusNotFound, APIError{Message: "track not found"})
		default:
			h.logger.Error("Status check failed", zap.String("task_id", taskID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, APIError{Message: "internal server error"})
		}
		return
	}

	resp := statusResponse{Status: string(status)}
	if status == service.PollStatusSuccess {
		resp.Track = track
	}
	c.JSON(http.StatusOK, resp)
}
