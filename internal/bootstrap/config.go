// Package bootstrap resolves runtime configuration for the clearance
// auth service from file defaults and environment overrides.
package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	authcore "github.com/kwasu-clearance/authcore"
)

// Config is the resolved runtime configuration for clearance-authd.
// It merges file defaults and environment overrides to support both
// local and deployed runs.
type Config struct {
	HTTPPort int
	LogLevel string

	RedisURL     string
	AccountsFile string

	// SessionSecret comes from the environment only, never from the
	// config file.
	SessionSecret []byte
	Issuer        string
	CookieName    string
	CookieDomain  string
	CookieSecure  bool

	StudentTTL time.Duration
	OfficerTTL time.Duration
	AdminTTL   time.Duration

	RateLimitMax    int
	RateLimitWindow time.Duration

	LockoutThreshold int
	LockoutDuration  time.Duration

	// BotVerifySecret comes from the environment only. Empty disables
	// bot-score verification.
	BotVerifySecret   string
	BotScoreThreshold float64
	BotAction         string

	AuditEnabled bool
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// Secrets deliberately have no place in it.
type configFile struct {
	Service struct {
		HTTPPort int    `yaml:"http_port"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"service"`
	Dependencies struct {
		RedisURL     string `yaml:"redis_url"`
		AccountsFile string `yaml:"accounts_file"`
	} `yaml:"dependencies"`
	Session struct {
		Issuer            string `yaml:"issuer"`
		CookieName        string `yaml:"cookie_name"`
		CookieDomain      string `yaml:"cookie_domain"`
		CookieSecure      *bool  `yaml:"cookie_secure"`
		StudentTTLMinutes int    `yaml:"student_ttl_minutes"`
		OfficerTTLMinutes int    `yaml:"officer_ttl_minutes"`
		AdminTTLMinutes   int    `yaml:"admin_ttl_minutes"`
	} `yaml:"session"`
	RateLimit struct {
		MaxRequests   int `yaml:"max_requests"`
		WindowSeconds int `yaml:"window_seconds"`
	} `yaml:"rate_limit"`
	Lockout struct {
		Threshold       int `yaml:"threshold"`
		DurationMinutes int `yaml:"duration_minutes"`
	} `yaml:"lockout"`
	BotCheck struct {
		ScoreThreshold float64 `yaml:"score_threshold"`
		Action         string  `yaml:"action"`
	} `yaml:"bot_check"`
	Audit struct {
		Enabled *bool `yaml:"enabled"`
	} `yaml:"audit"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		HTTPPort:          8080,
		LogLevel:          "info",
		AccountsFile:      "accounts.yaml",
		Issuer:            "kwasu-clearance",
		CookieSecure:      true,
		StudentTTL:        time.Hour,
		OfficerTTL:        30 * time.Minute,
		AdminTTL:          15 * time.Minute,
		RateLimitMax:      10,
		RateLimitWindow:   time.Minute,
		LockoutThreshold:  5,
		LockoutDuration:   15 * time.Minute,
		BotScoreThreshold: 0.5,
		BotAction:         "login",
		AuditEnabled:      true,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		applyFile(&cfg, f)
	}

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.LogLevel = envOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.AccountsFile = envOrDefault("ACCOUNTS_FILE", cfg.AccountsFile)
	cfg.SessionSecret = []byte(os.Getenv("SESSION_SECRET"))
	cfg.Issuer = envOrDefault("SESSION_ISSUER", cfg.Issuer)
	cfg.CookieName = envOrDefault("SESSION_COOKIE_NAME", cfg.CookieName)
	cfg.CookieDomain = envOrDefault("SESSION_COOKIE_DOMAIN", cfg.CookieDomain)
	cfg.CookieSecure = envBool("SESSION_COOKIE_SECURE", cfg.CookieSecure)
	cfg.RateLimitMax = envInt("RATE_LIMIT_MAX_REQUESTS", cfg.RateLimitMax)
	cfg.RateLimitWindow = time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", int(cfg.RateLimitWindow.Seconds()))) * time.Second
	cfg.LockoutThreshold = envInt("FAILED_LOGIN_THRESHOLD", cfg.LockoutThreshold)
	cfg.LockoutDuration = time.Duration(envInt("ACCOUNT_LOCKOUT_MINUTES", int(cfg.LockoutDuration.Minutes()))) * time.Minute
	cfg.BotVerifySecret = envOrDefault("BOT_VERIFY_SECRET", cfg.BotVerifySecret)
	cfg.BotScoreThreshold = envFloat("BOT_SCORE_THRESHOLD", cfg.BotScoreThreshold)
	cfg.BotAction = envOrDefault("BOT_EXPECTED_ACTION", cfg.BotAction)
	cfg.AuditEnabled = envBool("AUDIT_ENABLED", cfg.AuditEnabled)

	if len(cfg.SessionSecret) < 32 {
		return Config{}, fmt.Errorf("SESSION_SECRET must be set and at least 32 bytes")
	}
	if cfg.AccountsFile == "" {
		return Config{}, fmt.Errorf("missing accounts file path")
	}

	return cfg, nil
}

func applyFile(cfg *Config, f configFile) {
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.LogLevel != "" {
		cfg.LogLevel = f.Service.LogLevel
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if f.Dependencies.AccountsFile != "" {
		cfg.AccountsFile = f.Dependencies.AccountsFile
	}
	if f.Session.Issuer != "" {
		cfg.Issuer = f.Session.Issuer
	}
	if f.Session.CookieName != "" {
		cfg.CookieName = f.Session.CookieName
	}
	if f.Session.CookieDomain != "" {
		cfg.CookieDomain = f.Session.CookieDomain
	}
	if f.Session.CookieSecure != nil {
		cfg.CookieSecure = *f.Session.CookieSecure
	}
	if f.Session.StudentTTLMinutes > 0 {
		cfg.StudentTTL = time.Duration(f.Session.StudentTTLMinutes) * time.Minute
	}
	if f.Session.OfficerTTLMinutes > 0 {
		cfg.OfficerTTL = time.Duration(f.Session.OfficerTTLMinutes) * time.Minute
	}
	if f.Session.AdminTTLMinutes > 0 {
		cfg.AdminTTL = time.Duration(f.Session.AdminTTLMinutes) * time.Minute
	}
	if f.RateLimit.MaxRequests > 0 {
		cfg.RateLimitMax = f.RateLimit.MaxRequests
	}
	if f.RateLimit.WindowSeconds > 0 {
		cfg.RateLimitWindow = time.Duration(f.RateLimit.WindowSeconds) * time.Second
	}
	if f.Lockout.Threshold > 0 {
		cfg.LockoutThreshold = f.Lockout.Threshold
	}
	if f.Lockout.DurationMinutes > 0 {
		cfg.LockoutDuration = time.Duration(f.Lockout.DurationMinutes) * time.Minute
	}
	if f.BotCheck.ScoreThreshold > 0 {
		cfg.BotScoreThreshold = f.BotCheck.ScoreThreshold
	}
	if f.BotCheck.Action != "" {
		cfg.BotAction = f.BotCheck.Action
	}
	if f.Audit.Enabled != nil {
		cfg.AuditEnabled = *f.Audit.Enabled
	}
}

// EngineConfig converts the resolved runtime configuration into the
// engine's own config type.
func (c Config) EngineConfig() authcore.Config {
	return authcore.Config{
		Token: authcore.TokenConfig{
			Secret: c.SessionSecret,
			Issuer: c.Issuer,
			RoleTTL: map[authcore.Role]time.Duration{
				authcore.RoleStudent: c.StudentTTL,
				authcore.RoleOfficer: c.OfficerTTL,
				authcore.RoleAdmin:   c.AdminTTL,
			},
		},
		Session: authcore.SessionConfig{
			CookieName:   c.CookieName,
			CookieDomain: c.CookieDomain,
			Secure:       c.CookieSecure,
		},
		RateLimit: authcore.RateLimitConfig{
			MaxRequests: c.RateLimitMax,
			Window:      c.RateLimitWindow,
		},
		Lockout: authcore.LockoutConfig{
			MaxAttempts: c.LockoutThreshold,
			Duration:    c.LockoutDuration,
		},
		BotCheck: authcore.BotCheckConfig{
			Secret:    c.BotVerifySecret,
			Threshold: c.BotScoreThreshold,
			Action:    c.BotAction,
		},
		Audit: authcore.AuditConfig{
			Enabled:    c.AuditEnabled,
			DropIfFull: true,
		},
		Metrics: authcore.MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envFloat parses float env vars with safe fallback on empty/invalid values.
func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

// envBool parses common boolean env forms while keeping a deterministic fallback.
func envBool(name string, fallback bool) bool {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}
