package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vibe-server/internal/model"
	"vibe-server/internal/provider"
	"vibe-server/internal/repository"
)

// Ошибки уровня сервиса треков.
var (
	ErrEmptyPrompt = errors.New("prompt must not be empty")
)

// PollStatus - статус, возвращаемый клиенту на poll-эндпоинте.
type PollStatus string

const (
	PollStatusPending PollStatus = "PENDING"
	PollStatusSuccess PollStatus = "SUCCESS"
	PollStatusFailed  PollStatus = "FAILED"
)

// TrackService определяет бизнес-логику треков: отправка генерации,
// выборки и опрос статуса.
type TrackService interface {
	// SubmitGeneration отправляет промпт провайдеру и создает pending-запись.
	SubmitGeneration(ctx context.Context, ownerID uuid.UUID, prompt, style string) (*model.Track, error)

	// GetTrack возвращает трек пользователя по id.
	GetTrack(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*model.Track, error)

	// ListTracks возвращает треки пользователя, новые первыми.
	ListTracks(ctx context.Context, ownerID uuid.UUID, limit int) ([]*model.Track, error)

	// CheckStatus - poll-канал реконсиляции: если трек еще не completed,
	// опрашивает провайдера и оппортунистически завершает запись.
	CheckStatus(ctx context.Context, taskID string) (PollStatus, *model.Track, error)
}

// TrackServiceConfig - настройки сервиса треков.
type TrackServiceConfig struct {
	CallbackURL    string // полный URL callback-эндпоинта, передается провайдеру
	GenerationCost int64
	MaxListLimit   int
}

type trackServiceImpl struct {
	tracks     repository.TrackRepository
	credits    repository.CreditRepository
	provider   provider.Client
	reconciler *Reconciler
	cfg        TrackServiceConfig
	logger     *zap.Logger
}

// Compile-time check to ensure trackServiceImpl implements TrackService
var _ TrackService = (*trackServiceImpl)(nil)

// NewTrackService создает сервис треков.
func NewTrackService(
	tracks repository.TrackRepository,
	credits repository.CreditRepository,
	providerClient provider.Client,
	reconciler *Reconciler,
	cfg TrackServiceConfig,
	logger *zap.Logger,
) TrackService {
	if cfg.MaxListLimit <= 0 {
		cfg.MaxListLimit = 50
	}
	return &trackServiceImpl{
		tracks:     tracks,
		credits:    credits,
		provider:   providerClient,
		reconciler: reconciler,
		cfg:        cfg,
		logger:     logger.Named("TrackService"),
	}
}

// SubmitGeneration отправляет задачу провайдеру и создает pending-запись.
// Баланс здесь только проверяется; авторитетное списание происходит при
// подтвержденном завершении (в реконсиляции), поэтому незавершенные
// генерации пользователю не стоят ничего.
func (s *trackServiceImpl) SubmitGeneration(ctx context.Context, ownerID uuid.UUID, prompt, style string) (*model.Track, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	log := s.logger.With(zap.String("owner_id", ownerID.String()))

	balance, err := s.credits.GetBalance(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки баланса: %w", err)
	}
	if balance < s.cfg.GenerationCost {
		log.Info("Generation rejected, insufficient credits", zap.Int64("balance", balance))
		return nil, model.ErrInsufficientCredits
	}

	taskID, err := s.provider.Submit(ctx, provider.SubmitRequest{
		Prompt:      prompt,
		Style:       style,
		CallBackURL: s.cfg.CallbackURL,
	})
	if err != nil {
		return nil, err
	}

	extendedPrompt := prompt
	if style != "" {
		extendedPrompt = prompt + ", " + style
	}

	track := &model.Track{
		ID:                  uuid.New(),
		TaskID:              taskID,
		OwnerID:             &ownerID,
		Status:              model.TrackStatusPending,
		Prompt:              prompt,
		ExtendedPrompt:      extendedPrompt,
		ExtendedImagePrompt: "album cover art, " + extendedPrompt,
	}
	if err := s.tracks.Create(ctx, track); err != nil {
		// Задача у провайдера уже запущена, а записи нет - сигнал о ней
		// будет отвергнут как ErrTrackNotFound. Логируем для разбора.
		log.Error("Track insert failed after provider submit",
			zap.String("task_id", taskID), zap.Error(err))
		return nil, err
	}

	log.Info("Generation submitted", zap.String("task_id", taskID), zap.String("id", track.ID.String()))
	return track, nil
}

// GetTrack возвращает трек пользователя. Чужой трек неотличим от отсутствующего.
func (s *trackServiceImpl) GetTrack(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) (*model.Track, error) {
	track, err := s.tracks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if track.OwnerID == nil || *track.OwnerID != ownerID {
		return nil, model.ErrTrackNotFound
	}
	return track, nil
}

// ListTracks возвращает треки пользователя.
func (s *trackServiceImpl) ListTracks(ctx context.Context, ownerID uuid.UUID, limit int) ([]*model.Track, error) {
	if limit <= 0 || limit > s.cfg.MaxListLimit {
		limit = s.cfg.MaxListLimit
	}
	return s.tracks.ListByOwner(ctx, ownerID, limit)
}

// CheckStatus реализует poll-канал. Ошибки провайдера не пробрасываются:
// клиенту отвечаем PENDING, его собственный цикл опроса - и есть retry.
func (s *trackServiceImpl) CheckStatus(ctx context.Context, taskID string) (PollStatus, *model.Track, error) {
	if taskID == "" {
		return "", nil, model.ErrMissingTaskID
	}

	track, err := s.tracks.GetByTaskID(ctx, taskID)
	if err != nil {
		return "", nil, err
	}

	switch track.Status {
	case model.TrackStatusCompleted:
		return PollStatusSuccess, track, nil
	case model.TrackStatusFailed:
		return PollStatusFailed, track, nil
	}

	result, err := s.provider.FetchStatus(ctx, taskID)
	if err != nil {
		if errors.Is(err, model.ErrProviderUnavailable) {
			s.logger.Warn("Provider status fetch failed, reporting pending",
				zap.String("task_id", taskID), zap.Error(err))
			return PollStatusPending, track, nil
		}
		return "", nil, err
	}

	reconciled, err := s.reconciler.Reconcile(ctx, ChannelPoll, result)
	if err != nil {
		return "", nil, err
	}

	switch reconciled.Outcome {
	case OutcomeCompleted, OutcomeAlreadyCompleted:
		if reconciled.Track != nil && reconciled.Track.Status == model.TrackStatusCompleted {
			return PollStatusSuccess, reconciled.Track, nil
		}
		return PollStatusPending, reconciled.Track, nil
	case OutcomeFailed:
		return PollStatusFailed, reconciled.Track, nil
	default:
		return PollStatusPending, reconciled.Track, nil
	}
}
