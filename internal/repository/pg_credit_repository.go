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
)

// Compile-time check to ensure pgCreditRepository implements CreditRepository
var _ CreditRepository = (*pgCreditRepository)(nil)

type pgCreditRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgCreditRepository создает новый репозиторий кредитов для PostgreSQL.
func NewPgCreditRepository(db *pgxpool.Pool, logger *zap.Logger) CreditRepository {
	return &pgCreditRepository{
		db:     db,
		logger: logger.Named("PgCreditRepo"),
	}
}

// Deduct атомарно списывает amount с баланса. Условие balance >= $2 в одном
// UPDATE исключает lost update при конкурентных генерациях одного пользователя;
// никакого read-then-write здесь быть не должно.
func (r *pgCreditRepository) Deduct(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	query := `
        UPDATE user_credits
        SET balance = balance - $2, updated_at = now()
        WHERE user_id = $1 AND balance >= $2
    `
	tag, err := r.db.Exec(ctx, query, userID, amount)
	if err != nil {
		r.logger.Error("Failed to deduct credits", zap.String("user_id", userID.String()),
			zap.Int64("amount", amount), zap.Error(err))
		return false, fmt.Errorf("ошибка списания кредитов для пользователя '%s': %w", userID, err)
	}

	deducted := tag.RowsAffected() == 1
	if deducted {
		r.logger.Info("Credits deducted", zap.String("user_id", userID.String()), zap.Int64("amount", amount))
	} else {
		// Недостаток средств - не ошибка, вызывающий код решает, что делать
		r.logger.Warn("Credit deduction skipped, insufficient balance",
			zap.String("user_id", userID.String()), zap.Int64("amount", amount))
	}
	return deducted, nil
}

// GetBalance возвращает текущий баланс (0, если записи нет).
func (r *pgCreditRepository) GetBalance(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT balance FROM user_credits WHERE user_id = $1`

	var balance int64
	err := pgxscan.Get(ctx, r.db, &balance, query, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		r.logger.Error("Failed to get balance", zap.String("user_id", userID.String()), zap.Error(err))
		return 0, fmt.Errorf("ошибка БД при чтении баланса пользователя '%s': %w", userID, err)
	}
	return balance, nil
}

// Grant начисляет кредиты, создавая запись при необходимости.
func (r *pgCreditRepository) Grant(ctx context.Context, userID uuid.UUID, amount int64) error {
	query := `
        INSERT INTO user_credits (user_id, balance, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (user_id) DO UPDATE SET
            balance = user_credits.balance + EXCLUDED.balance,
            updated_at = now()
    `
	_, err := r.db.Exec(ctx, query, userID, amount)
	if err != nil {
		r.logger.Error("Failed to grant credits", zap.String("user_id", userID.String()),
			zap.Int64("amount", amount), zap.Error(err))
		return fmt.Errorf("ошибка начисления кредитов пользователю '%s': %w", userID, err)
	}

	r.logger.Info("Credits granted", zap.String("user_id", userID.String()), zap.Int64("amount", amount))
	return nil
}
