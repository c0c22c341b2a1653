package authcore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kwasu-clearance/authcore/botcheck"
	"github.com/kwasu-clearance/authcore/internal/audit"
	"github.com/kwasu-clearance/authcore/internal/lockout"
	"github.com/kwasu-clearance/authcore/internal/ratelimit"
	"github.com/kwasu-clearance/authcore/password"
	"github.com/kwasu-clearance/authcore/token"
)

// BotVerifier is the bot-score gate boundary. Satisfied by
// *botcheck.Verifier; tests substitute their own.
type BotVerifier interface {
	Verify(ctx context.Context, token, expectedAction string) (botcheck.Result, error)
}

// Builder assembles an Engine. Construction is allocation-only; no
// I/O happens until the engine serves its first request.
type Builder struct {
	config      Config
	redisClient redis.UniversalClient
	users       UserProvider
	sink        AuditSink
	bots        BotVerifier
	now         func() time.Time
	built       bool
}

// New returns a builder preloaded with defaults.
func New() *Builder {
	return &Builder{config: defaultConfig(), now: time.Now}
}

// WithConfig replaces the configuration. Zero-valued fields are
// filled from defaults at Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = mergeDefaults(cloneConfig(cfg))
	return b
}

// WithRedis backs the rate limiter and lockout tracker with Redis so
// state is shared across instances. Without it both fall back to
// per-process memory stores.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redisClient = client
	return b
}

// WithUserProvider sets the account lookup boundary. Required.
func (b *Builder) WithUserProvider(p UserProvider) *Builder {
	b.users = p
	return b
}

// WithAuditSink sets the audit destination. Without it, enabled audit
// goes to a no-op sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithBotVerifier replaces the default siteverify-backed verifier.
func (b *Builder) WithBotVerifier(v BotVerifier) *Builder {
	b.bots = v
	return b
}

// WithClock injects the time source used by limiter, lockout, and
// token expiry. Tests use this to step time.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and assembles the engine. A
// builder builds once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.users == nil {
		return nil, errors.New("user provider is required")
	}

	cfg := mergeDefaults(cloneConfig(b.config))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	now := b.now
	if now == nil {
		now = time.Now
	}

	var rateStore ratelimit.Store
	var lockStore lockout.Store
	if b.redisClient != nil {
		rateStore = ratelimit.NewRedisStore(b.redisClient)
		lockStore = lockout.NewRedisStore(b.redisClient, cfg.Lockout.Retention)
	} else {
		rateStore = ratelimit.NewMemoryStore(cfg.RateLimit.SweepInterval, ratelimit.WithClock(now))
		lockStore = lockout.NewMemoryStore(cfg.Lockout.SweepInterval, cfg.Lockout.Retention, lockout.WithClock(now))
	}

	bots := b.bots
	if bots == nil {
		bots = botcheck.New(botcheck.Config{
			Secret:    cfg.BotCheck.Secret,
			Endpoint:  cfg.BotCheck.Endpoint,
			Threshold: cfg.BotCheck.Threshold,
			Timeout:   cfg.BotCheck.Timeout,
		})
	}

	hasher, err := password.NewHasher(cfg.Password.passwordConfig())
	if err != nil {
		return nil, err
	}

	roleTTL := make(map[string]time.Duration, len(cfg.Token.RoleTTL))
	for role, ttl := range cfg.Token.RoleTTL {
		roleTTL[string(role)] = ttl
	}
	tokens, err := token.NewManager(token.Config{
		SigningMethod: token.SigningMethod(cfg.Token.SigningMethod),
		Secret:        cfg.Token.Secret,
		PrivateKey:    cfg.Token.PrivateKey,
		PublicKey:     cfg.Token.PublicKey,
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
		DefaultTTL:    cfg.Token.DefaultTTL,
		RoleTTL:       roleTTL,
	}, token.WithClock(now))
	if err != nil {
		return nil, err
	}

	e := &Engine{
		config:   cfg,
		limiter:  ratelimit.New(rateStore, ratelimit.Config{MaxRequests: cfg.RateLimit.MaxRequests, Window: cfg.RateLimit.Window}),
		lockouts: lockout.New(lockStore, lockout.Config{MaxAttempts: cfg.Lockout.MaxAttempts, Duration: cfg.Lockout.Duration}, now),
		bots:     bots,
		hasher:   hasher,
		tokens:   tokens,
		users:    b.users,
		metrics:  NewMetrics(cfg.Metrics),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.sink),
		now: now,
	}

	b.built = true
	return e, nil
}
