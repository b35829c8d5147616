package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vibe-server/internal/auth"
	"vibe-server/internal/service"
)

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

// TrackHandler обрабатывает HTTP запросы vibe-server: отправку генераций,
// выборки треков, poll статуса и входящий callback провайдера.
type TrackHandler struct {
	tracks     service.TrackService
	reconciler *service.Reconciler
	verifier   *auth.JWTVerifier
	logger     *zap.Logger
}

// NewTrackHandler создает новый TrackHandler.
func NewTrackHandler(
	tracks service.TrackService,
	reconciler *service.Reconciler,
	verifier *auth.JWTVerifier,
	logger *zap.Logger,
) *TrackHandler {
	return &TrackHandler{
		tracks:     tracks,
		reconciler: reconciler,
		verifier:   verifier,
		logger:     logger.Named("TrackHandler"),
	}
}

// RegisterRoutes регистрирует маршруты. rateLimit применяется только к
// отправке генерации; callback провайдера аутентифицируется не пользовательским
// токеном и не лимитируется.
func (h *TrackHandler) RegisterRoutes(router *gin.Engine, rateLimit gin.HandlerFunc) {
	authMiddleware := AuthMiddleware(h.verifier, h.logger)

	api := router.Group("/api")
	{
		tracksGroup := api.Group("/tracks", authMiddleware)
		{
			if rateLimit != nil {
				tracksGroup.POST("", rateLimit, h.submitGeneration)
			} else {
				tracksGroup.POST("", h.submitGeneration)
			}
			tracksGroup.GET("", h.listTracks)
			tracksGroup.GET("/status", h.checkStatus)
			tracksGroup.GET("/:id", h.getTrack)
		}

		// Вызывается провайдером, без пользовательской аутентификации
		api.POST("/callback/music", h.musicCallback)
	}
}
