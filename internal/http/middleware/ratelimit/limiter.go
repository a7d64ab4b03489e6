package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether a client may issue one more request.
type Limiter interface {
	Allow(key string) bool
}

// Clock returns the current time. Tests swap it for a manual one.
type Clock func() time.Time

// Config stores KeyedLimiter settings.
type Config struct {
	Rate       float64       // requests per second
	Burst      int           // requests allowed at once
	TTL        time.Duration // idle clients are forgotten after this; 0 keeps them
	MaxBuckets int           // 0 means unbounded
}

// KeyedLimiter keeps one token bucket per client key.
type KeyedLimiter struct {
	cfg   Config
	now   Clock
	sweep time.Duration

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewKeyedLimiter builds a limiter. A nil clock means time.Now.
func NewKeyedLimiter(now Clock, cfg Config) *KeyedLimiter {
	if now == nil {
		now = time.Now
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.MaxBuckets < 0 {
		cfg.MaxBuckets = 0
	}
	sweep := time.Minute
	if half := cfg.TTL / 2; half > sweep {
		sweep = half
	}
	return &KeyedLimiter{
		cfg:     cfg,
		now:     now,
		sweep:   sweep,
		clients: make(map[string]*client),
	}
}

// Allow spends one token of key's bucket. A new key is refused once
// MaxBuckets clients are tracked.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	l.evictIdle(now)
	c, ok := l.clients[key]
	if !ok {
		if l.cfg.MaxBuckets > 0 && len(l.clients) >= l.cfg.MaxBuckets {
			l.mu.Unlock()
			return false
		}
		c = &client{lim: rate.NewLimiter(rate.Limit(l.cfg.Rate), l.cfg.Burst)}
		l.clients[key] = c
	}
	c.seen = now
	l.mu.Unlock()

	return c.lim.AllowN(now, 1)
}

// Len reports how many clients are tracked.
func (l *KeyedLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// evictIdle runs under l.mu.
func (l *KeyedLimiter) evictIdle(now time.Time) {
	if l.cfg.TTL <= 0 {
		return
	}
	if !l.lastSweep.IsZero() && now.Sub(l.lastSweep) < l.sweep {
		return
	}
	l.lastSweep = now
	for k, c := range l.clients {
		if now.Sub(c.seen) > l.cfg.TTL {
			delete(l.clients, k)
		}
	}
}

// Unlimited lets every request through.
type Unlimited struct{}

// Allow always returns true.
func (Unlimited) Allow(string) bool { return true }
