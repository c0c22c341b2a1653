package authcore

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAuthenticateRateLimitsByClientIP(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxRequests = 3
	cfg.RateLimit.Window = time.Minute
	fx := newFixture(t, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		dec, err := fx.engine.Authenticate(ctx, studentLogin())
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if dec.Code == CodeRateLimited {
			t.Fatalf("request %d rate limited inside budget", i+1)
		}
	}

	dec, err := fx.engine.Authenticate(ctx, studentLogin())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if dec.Status != http.StatusTooManyRequests || dec.Code != CodeRateLimited {
		t.Fatalf("decision = %+v, want 429", dec)
	}
	if dec.RetryAfter <= 0 {
		t.Fatalf("RetryAfter = %v, want positive", dec.RetryAfter)
	}
	if !strings.Contains(dec.Message, "Try again in") {
		t.Fatalf("message = %q", dec.Message)
	}
}

func TestRateLimitRunsBeforeEverything(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxRequests = 1
	fx := newFixture(t, cfg)
	ctx := context.Background()

	fx.engine.Authenticate(ctx, studentLogin())
	botCallsBefore := fx.bots.Calls()

	// Even a garbage request gets the 429, and the bot provider is
	// not consulted for it.
	dec, err := fx.engine.Authenticate(ctx, LoginRequest{ClientIP: "203.0.113.7"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if dec.Code != CodeRateLimited {
		t.Fatalf("decision = %+v, want rate limit first", dec)
	}
	if fx.bots.Calls() != botCallsBefore {
		t.Fatal("bot verifier consulted for a rate-limited request")
	}
}

func TestRateLimitIsolatesClients(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxRequests = 1
	fx := newFixture(t, cfg)
	ctx := context.Background()

	fx.engine.Authenticate(ctx, studentLogin())

	other := studentLogin()
	other.ClientIP = "198.51.100.4"
	dec, err := fx.engine.Authenticate(ctx, other)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if dec.Code == CodeRateLimited {
		t.Fatal("second client shares the first client's budget")
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxRequests = 1
	fx := newFixture(t, cfg)
	ctx := context.Background()

	fx.engine.Authenticate(ctx, studentLogin())
	if dec, _ := fx.engine.Authenticate(ctx, studentLogin()); dec.Code != CodeRateLimited {
		t.Fatalf("decision = %+v, want 429", dec)
	}

	fx.clock.Advance(61 * time.Second)
	dec, err := fx.engine.Authenticate(ctx, studentLogin())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if dec.Code == CodeRateLimited {
		t.Fatal("still limited after the window elapsed")
	}
}

func TestRateLimitMissingIPSharesFallbackBucket(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxRequests = 1
	fx := newFixture(t, cfg)
	ctx := context.Background()

	req := studentLogin()
	req.ClientIP = ""
	fx.engine.Authenticate(ctx, req)

	dec, err := fx.engine.Authenticate(ctx, req)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if dec.Code != CodeRateLimited {
		t.Fatal("requests without an IP must share one bucket")
	}
}
