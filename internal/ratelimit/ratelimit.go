// Package ratelimit guards a single websocket connection against subscribe
// floods: a client that repeatedly subscribes and unsubscribes from
// executions should not be able to force the hub into a busy-loop of
// registration work.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Config controls the token bucket applied to a connection's subscribe
// traffic.
type Config struct {
	RequestsPerSecond float64
	Burst             int
}

// DefaultConfig allows a modest burst of subscribe/unsubscribe calls before
// throttling kicks in.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 20,
		Burst:             40,
	}
}

// Limiter wraps a token bucket with a reset hook, used one-per-connection
// by the websocket hub.
type Limiter struct {
	mu      sync.RWMutex
	limiter *rate.Limiter
	config  Config
}

// New creates a Limiter from cfg, applying defaults for non-positive fields.
func New(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = int(cfg.RequestsPerSecond * 2)
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		config:  cfg,
	}
}

// Allow reports whether another subscribe/unsubscribe call is permitted
// right now.
func (l *Limiter) Allow() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limiter.Allow()
}

// Wait blocks until a token is available or ctx is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.RLock()
	limiter := l.limiter
	l.mu.RUnlock()
	return limiter.Wait(ctx)
}

// Reset replaces the underlying bucket, used when a connection reconnects
// and should not inherit its previous throttling state.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter = rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.Burst)
}

