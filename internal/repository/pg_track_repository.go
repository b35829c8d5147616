package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"vibe-server/internal/model"
)

// Compile-time check to ensure pgTrackRepository implements TrackRepository
var _ TrackRepository = (*pgTrackRepository)(nil)

const trackColumns = `id, task_id, owner_id, status, title, prompt, extended_prompt,
       extended_image_prompt, audio_url, image_url, resolution, duration, created_at, updated_at`

type pgTrackRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgTrackRepository создает новый репозиторий треков для PostgreSQL.
func NewPgTrackRepository(db *pgxpool.Pool, logger *zap.Logger) TrackRepository {
	return &pgTrackRepository{
		db:     db,
		logger: logger.Named("PgTrackRepo"),
	}
}

// Create вставляет новую запись в статусе pending.
func (r *pgTrackRepository) Create(ctx context.Context, track *model.Track) error {
	query := `
        INSERT INTO tracks (id, task_id, owner_id, status, title, prompt, extended_prompt,
                            extended_image_prompt, duration, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
    `
	if track.ID == uuid.Nil {
		track.ID = uuid.New()
	}
	if track.Status == "" {
		track.Status = model.TrackStatusPending
	}

	_, err := r.db.Exec(ctx, query,
		track.ID,
		track.TaskID,
		track.OwnerID,
		track.Status,
		track.Title,
		track.Prompt,
		track.ExtendedPrompt,
		track.ExtendedImagePrompt,
		track.Duration,
	)
	if err != nil {
		r.logger.Error("Failed to insert track", zap.String("task_id", track.TaskID), zap.Error(err))
		return fmt.Errorf("%w: ошибка вставки трека '%s': %v", model.ErrPersistFailed, track.TaskID, err)
	}

	r.logger.Debug("Track created", zap.String("task_id", track.TaskID), zap.String("id", track.ID.String()))
	return nil
}

// GetByTaskID возвращает трек по идентификатору задачи провайдера.
func (r *pgTrackRepository) GetByTaskID(ctx context.Context, taskID string) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE task_id = $1`

	var track model.Track
	err := pgxscan.Get(ctx, r.db, &track, query, taskID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTrackNotFound
		}
		r.logger.Error("Failed to get track by task_id", zap.String("task_id", taskID), zap.Error(err))
		return nil, fmt.Errorf("ошибка БД при поиске трека по task_id '%s': %w", taskID, err)
	}
	return &track, nil
}

// GetByID возвращает трек по внутреннему идентификатору.
func (r *pgTrackRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = $1`

	var track model.Track
	err := pgxscan.Get(ctx, r.db, &track, query, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrTrackNotFound
		}
		r.logger.Error("Failed to get track by id", zap.String("id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка БД при поиске трека по id '%s': %w", id, err)
	}
	return &track, nil
}

// ListByOwner возвращает треки пользователя, новые первыми.
func (r *pgTrackRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE owner_id = $1 ORDER BY created_at DESC LIMIT $2`

	tracks := make([]*model.Track, 0)
	err := pgxscan.Select(ctx, r.db, &tracks, query, ownerID, limit)
	if err != nil {
		r.logger.Error("Failed to list tracks by owner", zap.String("owner_id", ownerID.String()), zap.Error(err))
		return nil, fmt.Errorf("ошибка БД при выборке треков пользователя '%s': %w", ownerID, err)
	}
	return tracks, nil
}

// Complete выполняет условный завершающий UPDATE. Условие status != 'completed'
// гарантирует, что из двух гонящихся вызовов строку изменит ровно один:
// проигравший получает ноль затронутых строк и не выполняет side effects.
func (r *pgTrackRepository) Complete(ctx context.Context, taskID string, params model.CompleteTrackParams) (*model.Track, bool, error) {
	query := `
        UPDATE tracks
        SET status = 'completed',
            title = $2,
            prompt = $3,
            audio_url = $4,
            image_url = $5,
            resolution = $6,
            duration = $7,
            updated_at = now()
        WHERE task_id = $1 AND status != 'completed'
        RETURNING ` + trackColumns

	var track model.Track
	err := pgxscan.Get(ctx, r.db, &track, query,
		taskID,
		params.Title,
		params.Prompt,
		params.AudioURL,
		params.ImageURL,
		params.Resolution,
		params.Duration,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Строка не затронута: трек уже completed, гонку выиграл другой вызов
			r.logger.Info("Completing update touched no rows, track already completed",
				zap.String("task_id", taskID))
			return nil, false, nil
		}
		r.logger.Error("Failed to complete track", zap.String("task_id", taskID), zap.Error(err))
		return nil, false, fmt.Errorf("%w: ошибка завершающей записи трека '%s': %v", model.ErrPersistFailed, taskID, err)
	}

	r.logger.Info("Track completed", zap.String("task_id", taskID), zap.String("title", track.Title))
	return &track, true, nil
}

// MarkFailed условно переводит pending-трек в failed. Из completed в failed
// перехода нет: условие по статусу защищает терминальность completed.
func (r *pgTrackRepository) MarkFailed(ctx context.Context, taskID string) (bool, error) {
	query := `UPDATE tracks SET status = 'failed', updated_at = now() WHERE task_id = $1 AND status = 'pending'`

	tag, err := r.db.Exec(ctx, query, taskID)
	if err != nil {
		r.logger.Error("Failed to mark track failed", zap.String("task_id", taskID), zap.Error(err))
		return false, fmt.Errorf("%w: ошибка перевода трека '%s' в failed: %v", model.ErrPersistFailed, taskID, err)
	}

	affected := tag.RowsAffected() == 1
	if affected {
		r.logger.Info("Track marked as failed", zap.String("task_id", taskID))
	}
	return affected, nil
}
