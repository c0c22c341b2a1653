package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestMemoryStoreWindowBudget(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(0, WithClock(clock.Now))
	defer store.Close()

	limiter := New(store, Config{MaxRequests: 5, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		dec, err := limiter.Check(ctx, "203.0.113.7")
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("request %d denied inside budget", i+1)
		}
		if want := 4 - i; dec.Remaining != want {
			t.Fatalf("request %d remaining = %d, want %d", i+1, dec.Remaining, want)
		}
	}

	dec, err := limiter.Check(ctx, "203.0.113.7")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if dec.Allowed {
		t.Fatal("sixth request allowed, want denial")
	}
	if dec.ResetIn <= 0 || dec.ResetIn > time.Minute {
		t.Fatalf("ResetIn = %v, want within window", dec.ResetIn)
	}
}

func TestMemoryStoreWindowReplacedAfterElapse(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(0, WithClock(clock.Now))
	defer store.Close()

	limiter := New(store, Config{MaxRequests: 2, Window: time.Minute})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		limiter.Check(ctx, "k")
	}

	clock.Advance(61 * time.Second)
	dec, err := limiter.Check(ctx, "k")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !dec.Allowed || dec.Remaining != 1 {
		t.Fatalf("after elapse got %+v, want fresh window", dec)
	}
	if dec.ResetIn != time.Minute {
		t.Fatalf("fresh window ResetIn = %v, want full window", dec.ResetIn)
	}
}

func TestMemoryStoreDenialDoesNotExtendWindow(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(0, WithClock(clock.Now))
	defer store.Close()

	limiter := New(store, Config{MaxRequests: 1, Window: time.Minute})
	ctx := context.Background()

	limiter.Check(ctx, "k")
	clock.Advance(30 * time.Second)

	dec, _ := limiter.Check(ctx, "k")
	if dec.Allowed {
		t.Fatal("second request allowed, want denial")
	}
	if dec.ResetIn != 30*time.Second {
		t.Fatalf("ResetIn = %v, want 30s from original anchor", dec.ResetIn)
	}
}

func TestMemoryStoreIsolatesIdentities(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(0, WithClock(clock.Now))
	defer store.Close()

	limiter := New(store, Config{MaxRequests: 1, Window: time.Minute})
	ctx := context.Background()

	limiter.Check(ctx, "a")
	if dec, _ := limiter.Check(ctx, "a"); dec.Allowed {
		t.Fatal("identity a should be exhausted")
	}
	if dec, _ := limiter.Check(ctx, "b"); !dec.Allowed {
		t.Fatal("identity b should have its own budget")
	}
}

func TestMemoryStoreConcurrentTakes(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()

	limiter := New(store, Config{MaxRequests: 50, Window: time.Minute})
	ctx := context.Background()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := limiter.Check(ctx, "shared")
			if err != nil {
				t.Errorf("Check: %v", err)
				return
			}
			if dec.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 50 {
		t.Fatalf("allowed %d of 100 concurrent requests, want exactly 50", got)
	}
}

func TestMemorySweepDropsElapsedWindows(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(0, WithClock(clock.Now))
	defer store.Close()

	ctx := context.Background()
	store.Take(ctx, "stale", 5, time.Minute)
	store.Take(ctx, "fresh", 5, time.Minute)

	clock.Advance(61 * time.Second)
	store.Take(ctx, "fresh", 5, time.Minute)
	store.sweep()

	if got := store.Len(); got != 1 {
		t.Fatalf("live windows after sweep = %d, want 1", got)
	}
}
