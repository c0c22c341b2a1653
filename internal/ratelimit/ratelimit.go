// Package ratelimit implements a fixed-window request counter keyed
// by client identity. Windows are anchored to the first request that
// opens them; an elapsed window is replaced, never slid.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable wraps failures of the backing window store.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Decision reports the state of one window after counting a request.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// Store persists one counting window per key. Take must count the
// request and evaluate the limit as a single atomic step.
type Store interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (Decision, error)
	Close()
}

// Config bounds one limiter.
type Config struct {
	MaxRequests int
	Window      time.Duration
}

// Limiter enforces a fixed-window budget per identity.
type Limiter struct {
	store  Store
	config Config
}

// New returns a limiter over the given store.
func New(store Store, cfg Config) *Limiter {
	return &Limiter{store: store, config: cfg}
}

// Check counts one request for identity and reports whether it fits
// the window budget. Denials do not open a fresh window; the caller
// waits out the one that denied them.
func (l *Limiter) Check(ctx context.Context, identity string) (Decision, error) {
	return l.store.Take(ctx, "ratelimit:"+identity, l.config.MaxRequests, l.config.Window)
}

// Close releases the backing store.
func (l *Limiter) Close() {
	l.store.Close()
}
