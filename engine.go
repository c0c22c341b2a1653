package authcore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kwasu-clearance/authcore/botcheck"
	"github.com/kwasu-clearance/authcore/internal/audit"
	"github.com/kwasu-clearance/authcore/internal/clientip"
	"github.com/kwasu-clearance/authcore/internal/lockout"
	"github.com/kwasu-clearance/authcore/internal/ratelimit"
	"github.com/kwasu-clearance/authcore/password"
	"github.com/kwasu-clearance/authcore/session"
	"github.com/kwasu-clearance/authcore/token"
)

// Engine decides login attempts. Build one through [Builder] and
// treat it as immutable; all methods are safe for concurrent use.
type Engine struct {
	config   Config
	limiter  *ratelimit.Limiter
	lockouts *lockout.Tracker
	bots     BotVerifier
	hasher   *password.Hasher
	tokens   *token.Manager
	users    UserProvider
	metrics  *Metrics
	audit    *audit.Dispatcher
	now      func() time.Time
}

// Client-safe refusal messages. The credential message is shared
// verbatim by the unknown-account and wrong-password paths; an
// attacker comparing the two responses learns nothing.
const (
	msgBotCheck        = "Bot verification failed. Please try again."
	msgRoleMismatch    = "This account is not registered as a %s."
	msgAccountInactive = "This account has been deactivated. Contact the clearance office."
	msgLoginOK         = "Login successful."
)

// Authenticate runs one login attempt through every gate in order:
// rate limit, bot check, validation, lockout, account lookup, role,
// active flag, password, session issue. The first failing gate
// decides; no later gate runs.
//
// The returned error is non-nil only for backend failure (store or
// provider unreachable, signing broken). Every policy refusal is a
// Decision with OK=false.
func (e *Engine) Authenticate(ctx context.Context, req LoginRequest) (Decision, error) {
	if e == nil {
		return Decision{}, ErrEngineNotReady
	}
	start := e.now()
	defer func() {
		e.metrics.Observe(MetricAuthenticateLatency, e.now().Sub(start))
	}()

	ip := req.ClientIP
	if ip == "" {
		ip = clientip.Fallback
	}

	// Gate 1: rate limit by client identity.
	rl, err := e.limiter.Check(ctx, ip)
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit check: %w", err)
	}
	if !rl.Allowed {
		e.metrics.Inc(MetricLoginRateLimited)
		e.emit(ctx, AuditEvent{Action: auditLoginRateLimited, Email: req.Email, IP: ip})
		return Decision{
			Status:     http.StatusTooManyRequests,
			Code:       CodeRateLimited,
			Message:    fmt.Sprintf("Too many requests. Try again in %d seconds.", ceilSeconds(rl.ResetIn)),
			RetryAfter: rl.ResetIn,
		}, nil
	}

	// Gate 2: bot score.
	bot, err := e.bots.Verify(ctx, req.BotToken, e.config.BotCheck.Action)
	if err != nil {
		if errors.Is(err, botcheck.ErrUnavailable) {
			// Provider trouble is not evidence about the caller, but
			// failing open would let bots wait out an outage.
			e.metrics.Inc(MetricBotCheckUnavailable)
			return Decision{}, fmt.Errorf("bot verification: %w", err)
		}
		e.metrics.Inc(MetricBotCheckRejected)
		e.emit(ctx, AuditEvent{Action: auditBotCheckRejected, Email: req.Email, IP: ip, BotScore: bot.Score, Error: err.Error()})
		return Decision{
			Status:  http.StatusForbidden,
			Code:    CodeBotCheckFailed,
			Message: msgBotCheck,
		}, nil
	}
	if bot.Skipped {
		e.metrics.Inc(MetricBotCheckSkipped)
	}

	// Gate 3: input validation.
	clean, ferr := ValidateLogin(req)
	if ferr != nil {
		e.metrics.Inc(MetricValidationRejected)
		e.emit(ctx, AuditEvent{Action: auditValidationFailure, Email: req.Email, IP: ip, Error: ferr.Error()})
		return Decision{
			Status:  http.StatusBadRequest,
			Code:    CodeValidationFailed,
			Message: ferr.Message,
		}, nil
	}
	req = clean

	// Gate 4: lockout, checked before the password so a locked
	// account rejects even correct credentials.
	lk, err := e.lockouts.Check(ctx, req.Email)
	if err != nil {
		return Decision{}, fmt.Errorf("lockout check: %w", err)
	}
	if lk.Locked {
		e.metrics.Inc(MetricLockoutHit)
		e.emit(ctx, AuditEvent{Action: auditAccountLocked, Email: req.Email, IP: ip})
		return e.lockedDecision(lk.Remaining), nil
	}

	// Gate 5: account lookup.
	user, err := e.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Unknown accounts burn an attempt against the submitted
			// email, same as a wrong password would.
			return e.failCredentials(ctx, req, ip)
		}
		return Decision{}, fmt.Errorf("user lookup: %w", err)
	}

	// Gate 6: role match. The stored role is not secret, so the
	// refusal names the requested role, but the miss still burns a
	// lockout attempt like any other bad credential.
	if string(user.Role) != req.Role {
		out, err := e.lockouts.RecordFailure(ctx, req.Email)
		if err != nil {
			return Decision{}, fmt.Errorf("lockout record: %w", err)
		}
		e.metrics.Inc(MetricRoleMismatch)
		e.emit(ctx, AuditEvent{Action: auditRoleMismatch, Email: req.Email, UserID: user.ID, Role: req.Role, IP: ip})
		if out.Locked {
			e.metrics.Inc(MetricLockoutTriggered)
			e.emit(ctx, AuditEvent{Action: auditAccountLocked, Email: req.Email, IP: ip, Error: "attempt limit reached"})
			return e.lockedDecision(e.config.Lockout.Duration), nil
		}
		return Decision{
			Status:  http.StatusUnauthorized,
			Code:    CodeRoleMismatch,
			Message: fmt.Sprintf(msgRoleMismatch, req.Role),
		}, nil
	}

	// Gate 7: active flag. Deactivation is an admin action, not an
	// attacker signal, so no failure is recorded.
	if !user.Active {
		e.metrics.Inc(MetricAccountInactive)
		e.emit(ctx, AuditEvent{Action: auditAccountInactive, Email: req.Email, UserID: user.ID, IP: ip})
		return Decision{
			Status:  http.StatusUnauthorized,
			Code:    CodeAccountInactive,
			Message: msgAccountInactive,
		}, nil
	}

	// Gate 8: password.
	ok, err := e.hasher.Verify(req.Password, user.PasswordHash)
	if err != nil {
		return Decision{}, fmt.Errorf("password verify: %w", err)
	}
	if !ok {
		return e.failCredentials(ctx, req, ip)
	}

	// Gate 9: issue the session.
	if err := e.lockouts.Clear(ctx, req.Email); err != nil {
		return Decision{}, fmt.Errorf("lockout clear: %w", err)
	}
	signed, ttl, err := e.tokens.Issue(user.ID, user.Email, string(user.Role))
	if err != nil {
		return Decision{}, fmt.Errorf("session issue: %w", err)
	}

	e.metrics.Inc(MetricLoginSuccess)
	e.metrics.Inc(MetricSessionIssued)
	e.emit(ctx, AuditEvent{
		Action:   auditLoginSuccess,
		Email:    user.Email,
		UserID:   user.ID,
		Role:     string(user.Role),
		IP:       ip,
		BotScore: bot.Score,
		Success:  true,
	})

	return Decision{
		OK:      true,
		Status:  http.StatusOK,
		Message: msgLoginOK,
		User: &AuthUser{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			Role:     user.Role,
		},
		Token:  signed,
		Cookie: session.NewCookie(e.cookieConfig(), signed, ttl),
	}, nil
}

// failCredentials is the single exit for both unknown-account and
// wrong-password refusals, so the two are byte-identical on the wire.
func (e *Engine) failCredentials(ctx context.Context, req LoginRequest, ip string) (Decision, error) {
	out, err := e.lockouts.RecordFailure(ctx, req.Email)
	if err != nil {
		return Decision{}, fmt.Errorf("lockout record: %w", err)
	}

	if out.Locked {
		e.metrics.Inc(MetricLockoutTriggered)
		e.emit(ctx, AuditEvent{Action: auditAccountLocked, Email: req.Email, IP: ip, Error: "attempt limit reached"})
		return e.lockedDecision(e.config.Lockout.Duration), nil
	}

	e.metrics.Inc(MetricLoginFailure)
	e.emit(ctx, AuditEvent{Action: auditLoginFailure, Email: req.Email, IP: ip})
	return Decision{
		Status:  http.StatusUnauthorized,
		Code:    CodeInvalidCredentials,
		Message: fmt.Sprintf("Invalid email or password. %d attempt(s) remaining.", out.AttemptsRemaining),
	}, nil
}

func (e *Engine) lockedDecision(remaining time.Duration) Decision {
	return Decision{
		Status:     http.StatusLocked,
		Code:       CodeAccountLocked,
		Message:    fmt.Sprintf("Account locked due to repeated failed attempts. Try again in %d minute(s).", ceilMinutes(remaining)),
		RetryAfter: remaining,
	}
}

// VerifySession checks a session token and returns its claims. Every
// failure mode collapses into ErrTokenInvalid.
func (e *Engine) VerifySession(tokenStr string) (*token.Claims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		e.metrics.Inc(MetricSessionRejected)
		e.emit(context.Background(), AuditEvent{Action: auditSessionRejected})
		return nil, ErrTokenInvalid
	}
	e.metrics.Inc(MetricSessionVerified)
	return claims, nil
}

// SessionCookieConfig exposes the cookie attributes, for transports
// that need to clear the cookie on logout.
func (e *Engine) SessionCookieConfig() session.CookieConfig {
	if e == nil {
		return session.CookieConfig{}
	}
	return e.cookieConfig()
}

// Close flushes audit and stops background janitors.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.limiter != nil {
		e.limiter.Close()
	}
	if e.lockouts != nil {
		e.lockouts.Close()
	}
}

// MetricsSnapshot copies the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports audit events shed under pressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) cookieConfig() session.CookieConfig {
	return session.CookieConfig{
		Name:     e.config.Session.CookieName,
		Path:     e.config.Session.CookiePath,
		Domain:   e.config.Session.CookieDomain,
		Secure:   e.config.Session.Secure,
		SameSite: e.config.Session.SameSite,
	}
}

func (e *Engine) emit(ctx context.Context, event AuditEvent) {
	if e.audit == nil {
		return
	}
	event.Timestamp = e.now().UTC()
	e.audit.Emit(ctx, event)
}

func ceilSeconds(d time.Duration) int64 {
	return int64((d + time.Second - 1) / time.Second)
}

func ceilMinutes(d time.Duration) int64 {
	return int64((d + time.Minute - 1) / time.Minute)
}
