package botcheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newStubVerifier(t *testing.T, handler http.HandlerFunc, threshold float64) *Verifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		Secret:     "test-secret",
		Endpoint:   srv.URL,
		Threshold:  threshold,
		HTTPClient: srv.Client(),
	})
}

func TestVerifySkippedWhenUnconfigured(t *testing.T) {
	v := New(Config{})
	if v.Configured() {
		t.Fatal("Configured = true without secret")
	}
	res, err := v.Verify(context.Background(), "", "login")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !res.Skipped {
		t.Fatal("want Skipped result when no secret is configured")
	}
}

func TestVerifyMissingToken(t *testing.T) {
	v := New(Config{Secret: "s"})
	if _, err := v.Verify(context.Background(), "", "login"); !errors.Is(err, ErrNoToken) {
		t.Fatalf("err = %v, want ErrNoToken", err)
	}
}

func TestVerifyPasses(t *testing.T) {
	v := newStubVerifier(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("secret"); got != "test-secret" {
			t.Errorf("secret = %q", got)
		}
		if got := r.PostForm.Get("response"); got != "tok-1" {
			t.Errorf("response = %q", got)
		}
		w.Write([]byte(`{"success":true,"score":0.9,"action":"login","hostname":"clearance.kwasu.edu.ng"}`))
	}, 0.5)

	res, err := v.Verify(context.Background(), "tok-1", "login")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if res.Skipped || res.Score != 0.9 || res.Action != "login" {
		t.Fatalf("result = %+v", res)
	}
}

func TestVerifyProviderRejected(t *testing.T) {
	v := newStubVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":false,"error-codes":["timeout-or-duplicate"]}`))
	}, 0.5)

	_, err := v.Verify(context.Background(), "tok", "login")
	if !errors.Is(err, ErrProviderRejected) {
		t.Fatalf("err = %v, want ErrProviderRejected", err)
	}
}

func TestVerifyScoreTooLow(t *testing.T) {
	v := newStubVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":true,"score":0.49,"action":"login"}`))
	}, 0.5)

	res, err := v.Verify(context.Background(), "tok", "login")
	if !errors.Is(err, ErrScoreTooLow) {
		t.Fatalf("err = %v, want ErrScoreTooLow", err)
	}
	if res.Score != 0.49 {
		t.Fatalf("score = %v, want provider score kept for audit", res.Score)
	}
}

func TestVerifyThresholdIsInclusive(t *testing.T) {
	v := newStubVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":true,"score":0.5,"action":"login"}`))
	}, 0.5)

	if _, err := v.Verify(context.Background(), "tok", "login"); err != nil {
		t.Fatalf("score equal to threshold should pass, got %v", err)
	}
}

func TestVerifyActionMismatch(t *testing.T) {
	v := newStubVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":true,"score":0.9,"action":"checkout"}`))
	}, 0.5)

	if _, err := v.Verify(context.Background(), "tok", "login"); !errors.Is(err, ErrActionMismatch) {
		t.Fatalf("err = %v, want ErrActionMismatch", err)
	}
}

func TestVerifyProviderDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	v := New(Config{Secret: "s", Endpoint: srv.URL, HTTPClient: srv.Client()})
	srv.Close()

	if _, err := v.Verify(context.Background(), "tok", "login"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestVerifyProviderStatusError(t *testing.T) {
	v := newStubVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, 0.5)

	if _, err := v.Verify(context.Background(), "tok", "login"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestVerifyMalformedBody(t *testing.T) {
	v := newStubVerifier(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":`))
	}, 0.5)

	if _, err := v.Verify(context.Background(), "tok", "login"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}
