package order

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"service-fulfillment/internal/logx"
)

type gateway interface {
	GetByID(context.Context, string) (*Order, error)
}

type counter interface {
	Inc()
}

// RetryConfig describes how RetryingGateway backs off. BaseDelay doubles
// after every failed attempt up to MaxDelay, with jitter.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryingGateway retries transient gRPC failures of the wrapped gateway.
type RetryingGateway struct {
	next    gateway
	logger  logx.Logger
	retries counter
	cfg     RetryConfig
}

// NewRetryingGateway returns nil when next is nil.
func NewRetryingGateway(next gateway, logger logx.Logger, retries counter, cfg RetryConfig) *RetryingGateway {
	if next == nil {
		return nil
	}
	if logger == nil {
		logger = logx.Nop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	return &RetryingGateway{
		next:    next,
		logger:  logger.With(logx.String("gateway", "orders")),
		retries: retries,
		cfg:     cfg,
	}
}

func (g *RetryingGateway) schedule(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = g.cfg.BaseDelay
	exp.MaxInterval = g.cfg.MaxDelay
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(g.cfg.MaxAttempts-1)), ctx)
}

// GetByID asks the wrapped gateway until it answers, fails with a status
// that will not change on retry, or runs out of attempts.
func (g *RetryingGateway) GetByID(ctx context.Context, id string) (*Order, error) {
	attempt := 0
	lookup := func() (*Order, error) {
		attempt++
		ord, err := g.next.GetByID(ctx, id)
		if err != nil && (ctx.Err() != nil || !transient(err)) {
			return nil, backoff.Permanent(err)
		}
		return ord, err
	}
	onRetry := func(err error, delay time.Duration) {
		if g.retries != nil {
			g.retries.Inc()
		}
		g.logger.Warn("orders lookup retry",
			logx.String("order_id", id),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Err(err),
		)
	}
	return backoff.RetryNotifyWithData(lookup, g.schedule(ctx), onRetry)
}

func transient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Aborted:
		return true
	default:
		return false
	}
}
