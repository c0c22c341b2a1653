package authcore

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestAuthenticateLocksAfterMaxAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.Lockout.MaxAttempts = 5
	fx := newFixture(t, cfg)
	ctx := context.Background()

	bad := studentLogin()
	bad.Password = "wrong-password"

	for i := 1; i <= 4; i++ {
		dec, err := fx.engine.Authenticate(ctx, bad)
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if dec.Code != CodeInvalidCredentials {
			t.Fatalf("attempt %d decision = %+v", i, dec)
		}
		want := fmt.Sprintf("%d attempt(s) remaining", 5-i)
		if !strings.Contains(dec.Message, want) {
			t.Fatalf("attempt %d message = %q, want %q", i, dec.Message, want)
		}
	}

	dec, err := fx.engine.Authenticate(ctx, bad)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if dec.Status != http.StatusLocked || dec.Code != CodeAccountLocked {
		t.Fatalf("fifth failure decision = %+v, want 423", dec)
	}
	if dec.RetryAfter != 15*time.Minute {
		t.Fatalf("RetryAfter = %v, want full lock duration", dec.RetryAfter)
	}
}

func TestLockedAccountRejectsCorrectPassword(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := context.Background()

	bad := studentLogin()
	bad.Password = "wrong-password"
	for i := 0; i < 5; i++ {
		fx.engine.Authenticate(ctx, bad)
	}

	botCallsBefore := fx.bots.Calls()
	dec, err := fx.engine.Authenticate(ctx, studentLogin())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if dec.Status != http.StatusLocked {
		t.Fatalf("decision = %+v, want 423 despite correct password", dec)
	}
	// Bot check runs before lockout; password verify must not.
	if fx.bots.Calls() != botCallsBefore+1 {
		t.Fatalf("bot calls = %d", fx.bots.Calls())
	}
}

func TestLockExpiresAndAttemptsReset(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := context.Background()

	bad := studentLogin()
	bad.Password = "wrong-password"
	for i := 0; i < 5; i++ {
		fx.engine.Authenticate(ctx, bad)
	}

	fx.clock.Advance(15*time.Minute + time.Second)

	dec, err := fx.engine.Authenticate(ctx, studentLogin())
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if !dec.OK {
		t.Fatalf("decision = %+v, want success after lock expiry", dec)
	}
}

func TestSuccessClearsFailureCount(t *testing.T) {
	fx := newFixture(t, testConfig())
	ctx := context.Background()

	bad := studentLogin()
	bad.Password = "wrong-password"
	for i := 0; i < 4; i++ {
		fx.engine.Authenticate(ctx, bad)
	}

	if dec, _ := fx.engine.Authenticate(ctx, studentLogin()); !dec.OK {
		t.Fatalf("decision = %+v, want success at attempt 4 of 5", dec)
	}

	// Counter must be back to zero: four more failures stay 401.
	for i := 0; i < 4; i++ {
		dec, err := fx.engine.Authenticate(ctx, bad)
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if dec.Code != CodeInvalidCredentials {
			t.Fatalf("post-success failure %d decision = %+v", i+1, dec)
		}
	}
}

func TestLockoutSurvivesRateLimitWindow(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxRequests = 3
	fx := newFixture(t, cfg)
	ctx := context.Background()

	bad := studentLogin()
	bad.Password = "wrong-password"

	// Spread failures across rate-limit windows; the lockout count
	// must accumulate regardless.
	for i := 0; i < 5; i++ {
		dec, err := fx.engine.Authenticate(ctx, bad)
		if err != nil {
			t.Fatalf("Authenticate: %v", err)
		}
		if dec.Code == CodeRateLimited {
			t.Fatalf("unexpected 429 at attempt %d", i+1)
		}
		fx.clock.Advance(61 * time.Second)
	}

	dec, _ := fx.engine.Authenticate(ctx, studentLogin())
	if dec.Status != http.StatusLocked {
		t.Fatalf("decision = %+v, want lock across windows", dec)
	}
}
