// Package lockout tracks consecutive failed logins per account and
// enforces a temporary lock once the attempt budget is spent.
package lockout

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrStoreUnavailable wraps failures of the backing record store.
var ErrStoreUnavailable = errors.New("lockout store unavailable")

// Record is the persisted state for one account key.
type Record struct {
	Attempts    int
	LastAttempt time.Time
	LockedUntil time.Time // zero while not locked
}

// Store persists lockout records keyed by canonical account identity.
// RecordFailure must increment and evaluate the threshold atomically.
type Store interface {
	Get(ctx context.Context, key string) (Record, bool, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockFor time.Duration) (Record, error)
	Clear(ctx context.Context, key string) error
	Close()
}

// Config bounds one tracker.
type Config struct {
	MaxAttempts int
	Duration    time.Duration
}

// Status is the result of a pre-login lockout check.
type Status struct {
	Locked    bool
	Attempts  int
	Remaining time.Duration
}

// Outcome is the result of recording one failed attempt.
type Outcome struct {
	Locked            bool
	Attempts          int
	AttemptsRemaining int
}

// Tracker applies the lockout policy over a Store.
type Tracker struct {
	store  Store
	config Config
	now    func() time.Time
}

// New returns a tracker. A nil clock defaults to time.Now.
func New(store Store, cfg Config, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: store, config: cfg, now: now}
}

// Key returns the canonical lockout key for an account identity.
// Email casing must not split one account across records.
func Key(accountID string) string {
	return strings.ToLower(strings.TrimSpace(accountID))
}

// Check reports whether the account is currently locked. A lock whose
// deadline has passed is cleared here, so a record left behind by an
// idle account never outlives its sentence.
func (t *Tracker) Check(ctx context.Context, accountID string) (Status, error) {
	key := Key(accountID)
	rec, ok, err := t.store.Get(ctx, key)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{}, nil
	}

	if !rec.LockedUntil.IsZero() {
		now := t.now()
		if now.After(rec.LockedUntil) {
			// Lock served out: drop the record so attempts restart at zero.
			if err := t.store.Clear(ctx, key); err != nil {
				return Status{}, err
			}
			return Status{}, nil
		}
		return Status{Locked: true, Attempts: rec.Attempts, Remaining: rec.LockedUntil.Sub(now)}, nil
	}
	return Status{Attempts: rec.Attempts}, nil
}

// RecordFailure counts one failed attempt and reports whether the
// account just crossed into a lock.
func (t *Tracker) RecordFailure(ctx context.Context, accountID string) (Outcome, error) {
	rec, err := t.store.RecordFailure(ctx, Key(accountID), t.now(), t.config.MaxAttempts, t.config.Duration)
	if err != nil {
		return Outcome{}, err
	}
	remaining := t.config.MaxAttempts - rec.Attempts
	if remaining < 0 {
		remaining = 0
	}
	return Outcome{
		Locked:            !rec.LockedUntil.IsZero(),
		Attempts:          rec.Attempts,
		AttemptsRemaining: remaining,
	}, nil
}

// Clear removes all failure state for the account. Called on
// successful login.
func (t *Tracker) Clear(ctx context.Context, accountID string) error {
	return t.store.Clear(ctx, Key(accountID))
}

// Close releases the backing store.
func (t *Tracker) Close() {
	t.store.Close()
}
