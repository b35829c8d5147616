package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisReconcileGuard implements ReconcileGuard
var _ ReconcileGuard = (*redisReconcileGuard)(nil)

type redisReconcileGuard struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisReconcileGuard создает Redis-реализацию ReconcileGuard.
// TTL страхует от навсегда зависшей блокировки при падении процесса
// между Acquire и Release.
func NewRedisReconcileGuard(client *redis.Client, ttl time.Duration, logger *zap.Logger) ReconcileGuard {
	return &redisReconcileGuard{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisReconcileGuard"),
	}
}

func (g *redisReconcileGuard) key(taskID string) string {
	return fmt.Sprintf("reconcile_lock:%s", taskID)
}

// Acquire пытается захватить блокировку через SET NX с TTL.
func (g *redisReconcileGuard) Acquire(ctx context.Context, taskID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(taskID), 1, g.ttl).Result()
	if err != nil {
		g.logger.Warn("Failed to acquire reconcile lock", zap.String("task_id", taskID), zap.Error(err))
		return false, fmt.Errorf("ошибка захвата блокировки реконсиляции для '%s': %w", taskID, err)
	}
	if !ok {
		g.logger.Debug("Reconcile lock already held", zap.String("task_id", taskID))
	}
	return ok, nil
}

// Release освобождает блокировку.
func (g *redisReconcileGuard) Release(ctx context.Context, taskID string) error {
	if err := g.client.Del(ctx, g.key(taskID)).Err(); err != nil {
		g.logger.Warn("Failed to release reconcile lock", zap.String("task_id", taskID), zap.Error(err))
		return fmt.Errorf("ошибка освобождения блокировки реконсиляции для '%s': %w", taskID, err)
	}
	return nil
}
