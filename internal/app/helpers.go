package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"

	"service-fulfillment/internal/logx"
	"service-fulfillment/internal/repository"
)

var newPool = repository.NewPool

const dbAttemptTimeout = 3 * time.Second

// connectDbWithRetry dials postgres up to attempts times with a fixed pause
// in between. The database often starts after the service in local stacks.
func connectDbWithRetry(ctx context.Context, logger logx.Logger, dsn string, attempts int, pause time.Duration) (*pgxpool.Pool, error) {
	if attempts < 1 {
		attempts = 1
	}
	attempt := 0
	dial := func() (*pgxpool.Pool, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, dbAttemptTimeout)
		defer cancel()
		return newPool(attemptCtx, dsn)
	}
	onRetry := func(err error, _ time.Duration) {
		logger.Warn("db connect failed",
			logx.Int("attempt", attempt),
			logx.Int("attempts", attempts),
			logx.Err(err),
		)
	}

	schedule := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(pause), uint64(attempts-1)),
		ctx,
	)
	pool, err := backoff.RetryNotifyWithData(dial, schedule, onRetry)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("db connect failed after %d attempts: %w", attempt, err)
	}
	logger.Info("db connected", logx.Int("attempt", attempt))
	return pool, nil
}
