package repository

import (
	"context"

	"github.com/google/uuid"

	"vibe-server/internal/model"
)

// TrackRepository определяет интерфейс для хранения записей о генерациях.
type TrackRepository interface {
	// Create вставляет новую запись в статусе pending.
	Create(ctx context.Context, track *model.Track) error

	// GetByTaskID возвращает трек по идентификатору задачи провайдера.
	// Возвращает model.ErrTrackNotFound, если записи нет.
	GetByTaskID(ctx context.Context, taskID string) (*model.Track, error)

	// GetByID возвращает трек по внутреннему идентификатору.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Track, error)

	// ListByOwner возвращает треки пользователя, новые первыми.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*model.Track, error)

	// Complete выполняет единственную завершающую запись: условный UPDATE,
	// переводящий статус в completed только если трек еще не completed.
	// Возвращает (track, true) если запись выиграла гонку, (nil, false) если
	// другой вызов уже завершил трек (строка не затронута).
	Complete(ctx context.Context, taskID string, params model.CompleteTrackParams) (*model.Track, bool, error)

	// MarkFailed условно переводит pending-трек в failed. Возвращает true,
	// если строка была затронута.
	MarkFailed(ctx context.Context, taskID string) (bool, error)
}

// CreditRepository определяет интерфейс для баланса кредитов пользователей.
type CreditRepository interface {
	// Deduct атомарно списывает amount с баланса, если баланс достаточен.
	// Недостаток средств - это не ошибка, а false.
	Deduct(ctx context.Context, userID uuid.UUID, amount int64) (bool, error)

	// GetBalance возвращает текущий баланс (0, если записи нет).
	GetBalance(ctx context.Context, userID uuid.UUID) (int64, error)

	// Grant начисляет кредиты (создает запись при необходимости).
	Grant(ctx context.Context, userID uuid.UUID, amount int64) error
}

// ReconcileGuard - best-effort межпроцессная блокировка реконсиляции по taskID.
// Нужна только чтобы два канала (callback и poll) не выполняли дорогие side
// effects (верификация обложки, AI вызовы) одновременно; корректность
// обеспечивает условный UPDATE в TrackRepository.Complete.
type ReconcileGuard interface {
	// Acquire пытается захватить блокировку. false - блокировка уже занята.
	Acquire(ctx context.Context, taskID string) (bool, error)

	// Release освобождает блокировку.
	Release(ctx context.Context, taskID string) error
}
