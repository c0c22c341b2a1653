package authcore

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/kwasu-clearance/authcore/botcheck"
	"github.com/kwasu-clearance/authcore/password"
	"github.com/kwasu-clearance/authcore/token"
)

// Config is the full engine configuration. Zero values are filled in
// from defaults by the Builder; Validate rejects what defaults cannot
// repair.
type Config struct {
	Token     TokenConfig
	Session   SessionConfig
	Password  PasswordConfig
	RateLimit RateLimitConfig
	Lockout   LockoutConfig
	BotCheck  BotCheckConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// TokenConfig configures session token signing.
type TokenConfig struct {
	// SigningMethod is "hs256" or "ed25519".
	SigningMethod string
	Secret        []byte
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration

	// DefaultTTL applies to roles without an entry in RoleTTL.
	DefaultTTL time.Duration
	RoleTTL    map[Role]time.Duration
}

// SessionConfig configures the browser cookie carrying the token.
type SessionConfig struct {
	CookieName   string
	CookiePath   string
	CookieDomain string
	Secure       bool
	SameSite     http.SameSite
}

// PasswordConfig carries argon2id cost parameters.
type PasswordConfig struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// RateLimitConfig bounds login attempts per client identity.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	// SweepInterval drives the in-memory janitor. Ignored with Redis.
	SweepInterval time.Duration
}

// LockoutConfig bounds consecutive failed logins per account.
type LockoutConfig struct {
	MaxAttempts int
	Duration    time.Duration
	// SweepInterval and Retention drive the in-memory janitor.
	SweepInterval time.Duration
	Retention     time.Duration
}

// BotCheckConfig configures the bot-score gate. An empty Secret
// disables the gate for the whole deployment.
type BotCheckConfig struct {
	Secret    string
	Endpoint  string
	Threshold float64
	Timeout   time.Duration
	// Action is matched against the action echoed by the provider.
	Action string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			SigningMethod: string(token.MethodHS256),
			Issuer:        "kwasu-clearance",
			Leeway:        30 * time.Second,
			DefaultTTL:    time.Hour,
			RoleTTL: map[Role]time.Duration{
				RoleStudent: time.Hour,
				RoleOfficer: 30 * time.Minute,
				RoleAdmin:   15 * time.Minute,
			},
		},
		Session: SessionConfig{
			CookiePath: "/",
			Secure:     true,
			SameSite:   http.SameSiteLaxMode,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		RateLimit: RateLimitConfig{
			MaxRequests:   10,
			Window:        time.Minute,
			SweepInterval: 5 * time.Minute,
		},
		Lockout: LockoutConfig{
			MaxAttempts:   5,
			Duration:      15 * time.Minute,
			SweepInterval: 5 * time.Minute,
			Retention:     24 * time.Hour,
		},
		BotCheck: BotCheckConfig{
			Endpoint:  botcheck.DefaultEndpoint,
			Threshold: botcheck.DefaultThreshold,
			Timeout:   botcheck.DefaultTimeout,
			Action:    "login",
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate rejects configurations the engine cannot run with. Token
// key material is validated separately by the token manager during
// Build.
func (c Config) Validate() error {
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("rate limit max requests must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("lockout max attempts must be positive")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("lockout duration must be positive")
	}
	if c.BotCheck.Threshold < 0 || c.BotCheck.Threshold > 1 {
		return fmt.Errorf("bot score threshold %v out of range [0,1]", c.BotCheck.Threshold)
	}
	if c.Token.DefaultTTL <= 0 {
		return errors.New("default session TTL must be positive")
	}
	for role, ttl := range c.Token.RoleTTL {
		if ttl <= 0 {
			return fmt.Errorf("session TTL for role %q must be positive", role)
		}
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.Token.Secret = cloneBytes(c.Token.Secret)
	out.Token.PrivateKey = cloneBytes(c.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(c.Token.PublicKey)
	if c.Token.RoleTTL != nil {
		out.Token.RoleTTL = make(map[Role]time.Duration, len(c.Token.RoleTTL))
		for role, ttl := range c.Token.RoleTTL {
			out.Token.RoleTTL[role] = ttl
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// mergeDefaults fills zero-valued fields from defaultConfig.
func mergeDefaults(c Config) Config {
	def := defaultConfig()

	if c.Token.SigningMethod == "" {
		c.Token.SigningMethod = def.Token.SigningMethod
	}
	if c.Token.Issuer == "" {
		c.Token.Issuer = def.Token.Issuer
	}
	if c.Token.Leeway == 0 {
		c.Token.Leeway = def.Token.Leeway
	}
	if c.Token.DefaultTTL == 0 {
		c.Token.DefaultTTL = def.Token.DefaultTTL
	}
	if c.Token.RoleTTL == nil {
		c.Token.RoleTTL = def.Token.RoleTTL
	}

	if c.Session.CookiePath == "" {
		c.Session.CookiePath = def.Session.CookiePath
	}
	if c.Session.SameSite == 0 {
		c.Session.SameSite = def.Session.SameSite
	}

	if c.Password == (PasswordConfig{}) {
		c.Password = def.Password
	}

	if c.RateLimit.MaxRequests == 0 {
		c.RateLimit.MaxRequests = def.RateLimit.MaxRequests
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = def.RateLimit.Window
	}
	if c.RateLimit.SweepInterval == 0 {
		c.RateLimit.SweepInterval = def.RateLimit.SweepInterval
	}

	if c.Lockout.MaxAttempts == 0 {
		c.Lockout.MaxAttempts = def.Lockout.MaxAttempts
	}
	if c.Lockout.Duration == 0 {
		c.Lockout.Duration = def.Lockout.Duration
	}
	if c.Lockout.SweepInterval == 0 {
		c.Lockout.SweepInterval = def.Lockout.SweepInterval
	}
	if c.Lockout.Retention == 0 {
		c.Lockout.Retention = def.Lockout.Retention
	}

	if c.BotCheck.Endpoint == "" {
		c.BotCheck.Endpoint = def.BotCheck.Endpoint
	}
	if c.BotCheck.Threshold == 0 {
		c.BotCheck.Threshold = def.BotCheck.Threshold
	}
	if c.BotCheck.Timeout == 0 {
		c.BotCheck.Timeout = def.BotCheck.Timeout
	}
	if c.BotCheck.Action == "" {
		c.BotCheck.Action = def.BotCheck.Action
	}

	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = def.Audit.BufferSize
	}

	return c
}

// passwordConfig converts to the password package's config type.
func (c PasswordConfig) passwordConfig() password.Config {
	return password.Config{
		Memory:      c.Memory,
		Time:        c.Time,
		Parallelism: c.Parallelism,
		SaltLength:  c.SaltLength,
		KeyLength:   c.KeyLength,
	}
}
