package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vibe-server/internal/model"
	"vibe-server/internal/service"
)

// submitGenerationRequest - тело запроса на генерацию.
type submitGenerationRequest struct {
	Prompt string `json:"prompt" binding:"required"`
	Style  string `json:"style"`
}

// submitGeneration обрабатывает POST /api/tracks.
func (h *TrackHandler) submitGeneration(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, APIError{Message: "user id missing from context"})
		return
	}

	var req submitGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "prompt is required"})
		return
	}

	track, err := h.tracks.SubmitGeneration(c.Request.Context(), userID, req.Prompt, req.Style)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPrompt):
			c.JSON(http.StatusBadRequest, APIError{Message: "prompt is required"})
		case errors.Is(err, model.ErrInsufficientCredits):
			c.JSON(http.StatusPaymentRequired, APIError{Message: "insufficient credits"})
		case errors.Is(err, model.ErrProviderUnavailable):
			c.JSON(http.StatusBadGateway, APIError{Message: "generation provider is unavailable"})
		default:
			h.logger.Error("Submit generation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, APIError{Message: "internal server error"})
		}
		return
	}

	c.JSON(http.StatusAccepted, track)
}

// listTracks обрабатывает GET /api/tracks.
func (h *TrackHandler) listTracks(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, APIError{Message: "user id missing from context"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, APIError{Message: "limit must be an integer"})
			return
		}
		limit = parsed
	}

	tracks, err := h.tracks.ListTracks(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("List tracks failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tracks": tracks})
}

// getTrack обрабатывает GET /api/tracks/:id.
func (h *TrackHandler) getTrack(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, APIError{Message: "user id missing from context"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, APIError{Message: "invalid track id"})
		return
	}

	track, err := h.tracks.GetTrack(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, model.ErrTrackNotFound) {
			c.JSON(http.StatusNotFound, APIError{Message: "track not found"})
			return
		}
		h.logger.Error("Get track failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, APIError{Message: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, track)
}
