package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryWindow struct {
	count   int
	start   time.Time
	expires time.Time
}

// MemoryStore keeps windows in a mutex-guarded map. A janitor sweeps
// elapsed windows so idle identities do not accumulate; the sweep is
// purely a memory reclaim, Take replaces an elapsed window whether or
// not the janitor got there first.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// MemoryOption customizes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock injects the time source. Tests use this to step windows
// without sleeping.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore returns an in-process store. sweepEvery <= 0 disables
// the janitor.
func NewMemoryStore(sweepEvery time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if sweepEvery > 0 {
		go s.janitor(sweepEvery)
	}
	return s
}

// Take implements Store.
func (s *MemoryStore) Take(_ context.Context, key string, limit int, window time.Duration) (Decision, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) > window {
		s.windows[key] = &memoryWindow{count: 1, start: now, expires: now.Add(window)}
		return Decision{Allowed: true, Remaining: limit - 1, ResetIn: window}, nil
	}

	w.count++
	resetIn := window - now.Sub(w.start)
	if w.count > limit {
		return Decision{Allowed: false, Remaining: 0, ResetIn: resetIn}, nil
	}
	return Decision{Allowed: true, Remaining: limit - w.count, ResetIn: resetIn}, nil
}

// Close stops the janitor. Safe to call more than once.
func (s *MemoryStore) Close() {
	s.once.Do(func() {
		close(s.stop)
	})
}

// Len reports the number of live windows. Used by tests and gauges.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
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
	for key, w := range s.windows {
		if now.After(w.expires) {
			delete(s.windows, key)
		}
	}
}
