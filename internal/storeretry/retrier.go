// Package storeretry bounds retries of store operations that fail with
// apperr.ErrStoreUnavailable.
package storeretry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"service-fulfillment/internal/apperr"
	"service-fulfillment/internal/logx"
)

type counter interface {
	Inc()
}

// Config describes the retry policy.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// OpTimeout bounds each attempt; zero disables the per-attempt deadline.
	OpTimeout time.Duration
}

// Retrier runs store operations with exponential backoff.
type Retrier struct {
	cfg     Config
	logger  logx.Logger
	retries counter
}

// New returns a Retrier. Missing values fall back to a single attempt.
func New(cfg Config, logger logx.Logger, retries counter) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 50 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Retrier{cfg: cfg, logger: logger, retries: retries}
}

func (r *Retrier) policy(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.cfg.BaseDelay
	exp.MaxInterval = r.cfg.MaxDelay
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.cfg.MaxAttempts-1)), ctx)
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempts are exhausted. The last error is returned as is.
func (r *Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := r.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !errors.Is(err, apperr.ErrStoreUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		if r.retries != nil {
			r.retries.Inc()
		}
		r.logger.Warn("store retry",
			logx.String("op", op),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
	}
	return backoff.RetryNotify(operation, r.policy(ctx), notify)
}

func (r *Retrier) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.cfg.OpTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()
	return fn(ctx)
}

// Value is Do for operations that return a result.
func Value[T any](ctx context.Context, r *Retrier, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
