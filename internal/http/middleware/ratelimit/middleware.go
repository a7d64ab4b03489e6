package ratelimit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"service-fulfillment/internal/logx"
)

const rejectBody = `{"error":"too many requests"}`

// Middleware rejects requests once a client runs out of tokens.
type Middleware struct {
	logger     logx.Logger
	rejected   prometheus.Counter
	limiter    Limiter
	retryAfter int
}

// New creates a Middleware. A nil limiter lets everything through.
func New(logger logx.Logger, rejected prometheus.Counter, limiter Limiter) *Middleware {
	if logger == nil {
		logger = logx.Nop()
	}
	if limiter == nil {
		limiter = Unlimited{}
	}
	return &Middleware{
		logger:     logger,
		rejected:   rejected,
		limiter:    limiter,
		retryAfter: 1,
	}
}

// Handler returns chi-style middleware.
func (m *Middleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r)
			if m.limiter.Allow(key) {
				next.ServeHTTP(w, r)
				return
			}
			m.reject(w, r, key)
		})
	}
}

func (m *Middleware) reject(w http.ResponseWriter, r *http.Request, key string) {
	if m.rejected != nil {
		m.rejected.Inc()
	}
	m.logger.Warn("rate limit exceeded",
		logx.String("req_id", middleware.GetReqID(r.Context())),
		logx.String("client", key),
		logx.String("method", r.Method),
		logx.String("path", r.URL.Path),
	)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", strconv.Itoa(m.retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	if _, err := w.Write([]byte(rejectBody)); err != nil {
		m.logger.Debug("rate limit response write failed", logx.String("client", key), logx.Err(err))
	}
}
