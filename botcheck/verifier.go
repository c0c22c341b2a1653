// Package botcheck gates logins behind an external bot-scoring
// provider compatible with the reCAPTCHA v3 siteverify contract.
package botcheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNoToken means the client supplied no verification token while
	// a provider secret is configured.
	ErrNoToken = errors.New("bot verification token missing")
	// ErrProviderRejected means the provider answered success=false:
	// the token is invalid, expired, or replayed.
	ErrProviderRejected = errors.New("bot verification rejected by provider")
	// ErrScoreTooLow means the token verified but scored below the
	// configured threshold.
	ErrScoreTooLow = errors.New("bot score below threshold")
	// ErrActionMismatch means the token was minted for a different
	// client action than the one being protected.
	ErrActionMismatch = errors.New("bot verification action mismatch")
	// ErrUnavailable means the provider could not be reached or
	// answered garbage. Callers must fail closed on it.
	ErrUnavailable = errors.New("bot verification unavailable")
)

// DefaultEndpoint is the Google siteverify endpoint.
const DefaultEndpoint = "https://www.google.com/recaptcha/api/siteverify"

// DefaultThreshold rejects scores below 0.5, the provider's suggested
// midpoint between human and bot traffic.
const DefaultThreshold = 0.5

// DefaultTimeout bounds one verification round trip.
const DefaultTimeout = 8 * time.Second

// Config configures a Verifier. An empty Secret disables verification
// entirely; every call then reports Skipped.
type Config struct {
	Secret    string
	Endpoint  string
	Threshold float64
	Timeout   time.Duration

	// HTTPClient overrides the default client. Tests point it at a
	// local stub.
	HTTPClient *http.Client
}

// Result carries the provider verdict. Score and Action feed audit
// records only and must never reach client-visible responses.
type Result struct {
	Skipped  bool
	Score    float64
	Action   string
	Hostname string
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      float64  `json:"score"`
	Action     string   `json:"action"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

// Verifier submits tokens to the provider and applies the score
// threshold. Safe for concurrent use.
type Verifier struct {
	config Config
	client *http.Client
}

// New returns a verifier with defaults filled in.
func New(cfg Config) *Verifier {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Verifier{config: cfg, client: client}
}

// Configured reports whether a provider secret is present.
func (v *Verifier) Configured() bool {
	return v.config.Secret != ""
}

// Verify submits token to the provider. expectedAction is matched
// against the action echoed by the provider when non-empty. With no
// secret configured the check is skipped: that is a deployment choice,
// not a caller bypass. Transport and decode failures return
// ErrUnavailable and must not be treated as a pass.
func (v *Verifier) Verify(ctx context.Context, token, expectedAction string) (Result, error) {
	if v.config.Secret == "" {
		return Result{Skipped: true}, nil
	}
	if token == "" {
		return Result{}, ErrNoToken
	}

	form := url.Values{}
	form.Set("secret", v.config.Secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.config.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Result{}, fmt.Errorf("%w: provider returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var body siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	res := Result{Score: body.Score, Action: body.Action, Hostname: body.Hostname}
	if !body.Success {
		if len(body.ErrorCodes) > 0 {
			return res, fmt.Errorf("%w: %s", ErrProviderRejected, strings.Join(body.ErrorCodes, ","))
		}
		return res, ErrProviderRejected
	}
	if body.Score < v.config.Threshold {
		return res, ErrScoreTooLow
	}
	if expectedAction != "" && body.Action != expectedAction {
		return res, ErrActionMismatch
	}
	return res, nil
}
