package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"vibe-server/internal/model"
	"vibe-server/internal/provider"
	"vibe-server/internal/repository"
)

// Channel - канал, по которому пришел сигнал о результате генерации.
// Глобального порядка между каналами нет: callback и poll для одного taskID
// могут прийти конкурентно из разных процессов.
type Channel string

const (
	ChannelCallback Channel = "callback"
	ChannelPoll     Channel = "poll"
	ChannelRecheck  Channel = "recheck"
)

// Outcome - исход одного вызова реконсиляции.
type Outcome string

const (
	// OutcomeCompleted - этот вызов выиграл гонку и завершил трек.
	OutcomeCompleted Outcome = "completed"
	// OutcomeAlreadyCompleted - трек уже завершен, вызов был no-op (дедупликация).
	OutcomeAlreadyCompleted Outcome = "already_completed"
	// OutcomeFailed - трек переведен в failed.
	OutcomeFailed Outcome = "failed"
	// OutcomeStillPending - результата еще нет, запись не изменялась.
	OutcomeStillPending Outcome = "still_pending"
)

// ReconcileResult - результат вызова Reconcile.
type ReconcileResult struct {
	Outcome Outcome
	Track   *model.Track
}

// ReconcilerConfig - пороги и константы реконсиляции.
type ReconcilerConfig struct {
	ImageMin        MinSize
	GenerationCost  int64
	RecheckDelay    time.Duration
	DefaultDuration float64
}

// Reconciler сводит запись трека к терминальному состоянию ровно один раз,
// какой бы канал ни увидел завершение первым, и выполняет side effects
// (название, верификация обложки, списание кредитов) идемпотентно.
//
// Единственная запись, меняющая статус на completed - условный UPDATE в
// TrackRepository.Complete; он же - арбитр гонки двух каналов. Redis-guard
// вокруг дорогих шагов - только оптимизация.
type Reconciler struct {
	tracks   repository.TrackRepository
	credits  repository.CreditRepository
	guard    repository.ReconcileGuard
	provider provider.Client
	verifier ImageVerifier
	ai       AIClient
	notifier Notifier
	cfg      ReconcilerConfig
	logger   *zap.Logger

	// taskID -> struct{}; гарантирует максимум один отложенный re-check на задачу
	rechecks sync.Map
}

// NewReconciler создает ядро реконсиляции.
func NewReconciler(
	tracks repository.TrackRepository,
	credits repository.CreditRepository,
	guard repository.ReconcileGuard,
	providerClient provider.Client,
	verifier ImageVerifier,
	ai AIClient,
	notifier Notifier,
	cfg ReconcilerConfig,
	logger *zap.Logger,
) *Reconciler {
	if cfg.DefaultDuration <= 0 {
		cfg.DefaultDuration = model.DefaultTrackDuration
	}
	if cfg.RecheckDelay <= 0 {
		cfg.RecheckDelay = 15 * time.Second
	}
	return &Reconciler{
		tracks:   tracks,
		credits:  credits,
		guard:    guard,
		provider: providerClient,
		verifier: verifier,
		ai:       ai,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.Named("Reconciler"),
	}
}

// Reconcile обрабатывает один нормализованный сигнал о результате генерации.
// Алгоритм одинаков для обоих каналов.
func (r *Reconciler) Reconcile(ctx context.Context, channel Channel, result model.GenerationResult) (ReconcileResult, error) {
	if result.TaskID == "" {
		return ReconcileResult{}, model.ErrMissingTaskID
	}

	log := r.logger.With(zap.String("task_id", result.TaskID), zap.String("channel", string(channel)))

	// 1. Запись должна существовать с момента отправки задачи; не ретраим.
	track, err := r.tracks.GetByTaskID(ctx, result.TaskID)
	if err != nil {
		if errors.Is(err, model.ErrTrackNotFound) {
			log.Warn("Reconcile signal for unknown task")
		}
		return ReconcileResult{}, err
	}

	// 2. Быстрый путь дедупликации: второй канал пришел после завершения.
	if track.Status == model.TrackStatusCompleted {
		log.Debug("Track already completed, reconcile is a no-op")
		reconcileOutcomes.WithLabelValues(string(channel), string(OutcomeAlreadyCompleted)).Inc()
		return ReconcileResult{Outcome: OutcomeAlreadyCompleted, Track: track}, nil
	}

	// 3. Явный провал без медиа: терминальный failed, без side effects и списаний.
	if result.IndicatesFailure() && !result.HasMedia() {
		return r.markFailed(ctx, channel, track, log)
	}

	// 4. Медиа еще нет и это не провал: запись не трогаем. Callback-канал
	// планирует ровно одну отложенную перепроверку - callback провайдера
	// может прийти раньше, чем его хранилище станет консистентным.
	if !result.HasMedia() {
		if channel == ChannelCallback {
			r.scheduleRecheck(result.TaskID)
		}
		log.Debug("No usable media yet, still pending")
		reconcileOutcomes.WithLabelValues(string(channel), string(OutcomeStillPending)).Inc()
		return ReconcileResult{Outcome: OutcomeStillPending, Track: track}, nil
	}

	// Дорогие шаги (верификация обложки, AI вызовы) - под best-effort
	// блокировкой, чтобы два канала не платили за них дважды. Ошибка захвата
	// не фатальна: корректность обеспечивает условный UPDATE ниже.
	if r.guard != nil {
		acquired, guardErr := r.guard.Acquire(ctx, result.TaskID)
		if guardErr == nil {
			if !acquired {
				// Другой вызов уже завершает трек; для вызывающего это "еще pending",
				// следующий опрос увидит completed
				log.Debug("Reconcile lock held elsewhere, reporting pending")
				reconcileOutcomes.WithLabelValues(string(channel), string(OutcomeStillPending)).Inc()
				return ReconcileResult{Outcome: OutcomeStillPending, Track: track}, nil
			}
			defer func() {
				if releaseErr := r.guard.Release(context.WithoutCancel(ctx), result.TaskID); releaseErr != nil {
					log.Warn("Failed to release reconcile lock", zap.Error(releaseErr))
				}
			}()
		}
	}

	// 5. Обложка разрешается ДО завершающей записи: трек не должен быть
	// наблюдаемо completed с непроверенной/маленькой обложкой.
	imageURL, resolution := r.resolveImage(ctx, track, result.ImageURL, log)

	// 6. Название: из результата, иначе генерируем по промпту, иначе дефолт.
	title := r.resolveTitle(ctx, track, result, log)

	prompt := result.Prompt
	if prompt == "" {
		prompt = track.Prompt
	}
	duration := result.Duration
	if duration <= 0 {
		duration = r.cfg.DefaultDuration
	}

	// 7. Единственная запись, переводящая статус в completed.
	updated, won, err := r.tracks.Complete(ctx, result.TaskID, model.CompleteTrackParams{
		Title:      title,
		Prompt:     prompt,
		AudioURL:   result.AudioURL,
		ImageURL:   imageURL,
		Resolution: resolution,
		Duration:   duration,
	})
	if err != nil {
		return ReconcileResult{}, err
	}
	if !won {
		// Гонку выиграл другой вызов между нашим чтением и записью
		reconcileOutcomes.WithLabelValues(string(channel), string(OutcomeAlreadyCompleted)).Inc()
		current, getErr := r.tracks.GetByTaskID(ctx, result.TaskID)
		if getErr != nil {
			current = track
		}
		return ReconcileResult{Outcome: OutcomeAlreadyCompleted, Track: current}, nil
	}

	// 8. Side effects строго ПОСЛЕ выигранной завершающей записи: падение
	// между записью и списанием оставляет пользователя с треком, но без
	// списания - в пользу пользователя, двойного списания не бывает.
	r.deductCredits(ctx, updated, log)
	r.notify(ctx, updated, log)

	log.Info("Track reconciled to completed", zap.String("title", updated.Title))
	reconcileOutcomes.WithLabelValues(string(channel), string(OutcomeCompleted)).Inc()
	return ReconcileResult{Outcome: OutcomeCompleted, Track: updated}, nil
}

// markFailed переводит трек в failed и рассылает уведомление, если перевод
// выполнил именно этот вызов.
func (r *Reconciler) markFailed(ctx context.Context, channel Channel, track *model.Track, log *zap.Logger) (ReconcileResult, error) {
	affected, err := r.tracks.MarkFailed(ctx, track.TaskID)
	if err != nil {
		return ReconcileResult{}, err
	}

	track.Status = model.TrackStatusFailed
	if affected {
		log.Info("Track marked failed from provider result")
		r.notify(ctx, track, log)
	}
	reconcileOutcomes.WithLabelValues(string(channel), string(OutcomeFailed)).Inc()
	return ReconcileResult{Outcome: OutcomeFailed, Track: track}, nil
}

// resolveImage выбирает итоговую обложку: кандидат провайдера, если он
// проходит порог; иначе регенерация по сохраненному extended image prompt;
// кандидат остается последним прибежищем - завершение никогда не блокируется
// только из-за неудачной верификации.
func (r *Reconciler) resolveImage(ctx context.Context, track *model.Track, candidateURL string, log *zap.Logger) (*string, *string) {
	if candidateURL == "" {
		// Кандидата нет: пробуем сгенерировать свежую обложку по промпту
		if track.ExtendedImagePrompt == "" {
			return nil, nil
		}
		url, err := r.ai.GenerateImage(ctx, track.ExtendedImagePrompt)
		if err != nil {
			log.Warn("Cover generation failed, completing without image", zap.Error(err))
			coverRegenerations.WithLabelValues("error").Inc()
			return nil, nil
		}
		coverRegenerations.WithLabelValues("generated").Inc()
		if verified, verr := r.verifier.Verify(ctx, url, r.cfg.ImageMin); verr == nil {
			res := verified.Resolution()
			return &url, &res
		}
		return &url, nil
	}

	verified, err := r.verifier.Verify(ctx, candidateURL, r.cfg.ImageMin)
	if err == nil && verified.MeetsThreshold(r.cfg.ImageMin) {
		res := verified.Resolution()
		return &candidateURL, &res
	}
	if err != nil {
		// Недоступный/недекодируемый кандидат трактуем как "ниже порога"
		log.Warn("Candidate image verification failed", zap.Error(err))
	} else {
		log.Info("Candidate image below threshold",
			zap.Int("width", verified.Width), zap.Int("height", verified.Height),
			zap.Int("min_width", r.cfg.ImageMin.Width), zap.Int("min_height", r.cfg.ImageMin.Height))
	}

	if track.ExtendedImagePrompt == "" {
		// Регенерировать не из чего: принимаем кандидата как есть
		return r.acceptCandidate(candidateURL, err == nil, verified)
	}

	regenURL, genErr := r.ai.GenerateImage(ctx, track.ExtendedImagePrompt)
	if genErr != nil {
		log.Warn("Cover regeneration failed, keeping candidate", zap.Error(genErr))
		coverRegenerations.WithLabelValues("error").Inc()
		return r.acceptCandidate(candidateURL, err == nil, verified)
	}

	regenVerified, regenErr := r.verifier.Verify(ctx, regenURL, r.cfg.ImageMin)
	if regenErr == nil && regenVerified.MeetsThreshold(r.cfg.ImageMin) {
		log.Info("Cover regenerated above threshold", zap.String("resolution", regenVerified.Resolution()))
		coverRegenerations.WithLabelValues("accepted").Inc()
		res := regenVerified.Resolution()
		return &regenURL, &res
	}

	// Регенерат тоже не прошел: исходный кандидат - последнее прибежище
	log.Warn("Regenerated cover did not meet threshold, keeping original candidate")
	coverRegenerations.WithLabelValues("rejected").Inc()
	return r.acceptCandidate(candidateURL, err == nil, verified)
}

// acceptCandidate возвращает кандидата, с resolution если размеры известны.
func (r *Reconciler) acceptCandidate(url string, known bool, verified VerifiedImage) (*string, *string) {
	if known {
		res := verified.Resolution()
		return &url, &res
	}
	return &url, nil
}

// resolveTitle вычисляет название: присланное, сгенерированное по промпту,
// иначе дефолт с отметкой времени.
func (r *Reconciler) resolveTitle(ctx context.Context, track *model.Track, result model.GenerationResult, log *zap.Logger) string {
	if result.Title != "" {
		return result.Title
	}
	if track.Title != "" {
		return track.Title
	}

	prompt := result.Prompt
	if prompt == "" {
		prompt = track.Prompt
	}
	if prompt != "" {
		title, err := r.ai.GenerateTitle(ctx, prompt)
		if err == nil && title != "" {
			return title
		}
		log.Warn("Title generation failed, falling back to default", zap.Error(err))
	}
	return "Vibe " + time.Now().UTC().Format("2006-01-02 15:04")
}

// deductCredits списывает стоимость генерации ровно один раз на выигранную
// завершающую запись. Неизвестный владелец - логируемый пропуск: такие
// записи не тарифицируются.
func (r *Reconciler) deductCredits(ctx context.Context, track *model.Track, log *zap.Logger) {
	if track.OwnerID == nil {
		log.Warn("Track has no owner, skipping credit deduction")
		creditDeductions.WithLabelValues("skipped_no_owner").Inc()
		return
	}

	deducted, err := r.credits.Deduct(ctx, *track.OwnerID, r.cfg.GenerationCost)
	switch {
	case err != nil:
		// Трек уже завершен; ошибку списания не поднимаем, только фиксируем
		log.Error("Credit deduction failed", zap.Error(err))
		creditDeductions.WithLabelValues("error").Inc()
	case !deducted:
		creditDeductions.WithLabelValues("insufficient").Inc()
	default:
		creditDeductions.WithLabelValues("ok").Inc()
	}
}

// notify шлет уведомление о терминальном переходе; ошибки не фатальны.
func (r *Reconciler) notify(ctx context.Context, track *model.Track, log *zap.Logger) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.NotifyTrackUpdate(ctx, NotificationFromTrack(track)); err != nil {
		log.Warn("Failed to publish track update", zap.Error(err))
	}
}

// scheduleRecheck планирует ровно одну отложенную перепроверку статуса у
// провайдера. Существует только чтобы поглотить частую гонку: callback
// срабатывает чуть раньше, чем медиа реально готово.
func (r *Reconciler) scheduleRecheck(taskID string) {
	if _, loaded := r.rechecks.LoadOrStore(taskID, struct{}{}); loaded {
		return
	}

	r.logger.Info("Scheduling one-shot provider re-check",
		zap.String("task_id", taskID), zap.Duration("delay", r.cfg.RecheckDelay))
	recheckScheduled.Inc()

	time.AfterFunc(r.cfg.RecheckDelay, func() {
		defer r.rechecks.Delete(taskID)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		result, err := r.provider.FetchStatus(ctx, taskID)
		if err != nil {
			// Одна попытка, без повторов: дальше полагаемся на poll клиента
			r.logger.Warn("Delayed re-check fetch failed, giving up",
				zap.String("task_id", taskID), zap.Error(err))
			return
		}
		if _, err := r.Reconcile(ctx, ChannelRecheck, result); err != nil {
			r.logger.Warn("Delayed re-check reconcile failed",
				zap.String("task_id", taskID), zap.Error(err))
		}
	})
}
