package lockout

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps lockout records in a mutex-guarded map. A janitor
// evicts records whose lock has expired and unlocked records idle past
// the retention horizon, so a long-running process does not accumulate
// one entry per email ever attempted.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*Record

	retention time.Duration
	now       func() time.Time
	stop      chan struct{}
	once      sync.Once
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock injects the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// DefaultRetention is how long an unlocked record with stale attempts
// survives before the janitor reclaims it.
const DefaultRetention = 24 * time.Hour

// NewMemoryStore returns an in-process store. sweepEvery <= 0 disables
// the janitor; retention <= 0 uses DefaultRetention.
func NewMemoryStore(sweepEvery, retention time.Duration, opts ...MemoryOption) *MemoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	s := &MemoryStore{
		records:   make(map[string]*Record),
		retention: retention,
		now:       time.Now,
		stop:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if sweepEvery > 0 {
		go s.janitor(sweepEvery)
	}
	return s
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return Record{}, false, nil
	}
	return *rec, true, nil
}

// RecordFailure implements Store. The lock deadline is set once, when
// the attempt count reaches the threshold; attempts recorded against
// an already-locked record never push the deadline out.
func (s *MemoryStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockFor time.Duration) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = &Record{}
		s.records[key] = rec
	}
	rec.Attempts++
	rec.LastAttempt = now
	if rec.Attempts >= threshold && rec.LockedUntil.IsZero() {
		rec.LockedUntil = now.Add(lockFor)
	}
	return *rec, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

// Close stops the janitor. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() {
		close(s.stop)
	})
}

// Len reports the number of live records. Used by tests.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryStore) janitor(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *MemoryStore) sweep() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rec := range s.records {
		switch {
		case !rec.LockedUntil.IsZero() && now.After(rec.LockedUntil):
			delete(s.records, key)
		case rec.LockedUntil.IsZero() && now.Sub(rec.LastAttempt) > s.retention:
			delete(s.records, key)
		}
	}
}
