package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	authcore "github.com/kwasu-clearance/authcore"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.StudentTTL != time.Hour || cfg.OfficerTTL != 30*time.Minute || cfg.AdminTTL != 15*time.Minute {
		t.Fatalf("unexpected role TTL defaults: %v %v %v", cfg.StudentTTL, cfg.OfficerTTL, cfg.AdminTTL)
	}
	if cfg.LockoutThreshold != 5 || cfg.LockoutDuration != 15*time.Minute {
		t.Fatalf("unexpected lockout defaults: %d %v", cfg.LockoutThreshold, cfg.LockoutDuration)
	}
}

func TestLoadConfigFileAndEnvPrecedence(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("HTTP_PORT", "9999")

	path := writeConfigFile(t, `
service:
  http_port: 9090
session:
  issuer: test-issuer
  student_ttl_minutes: 120
rate_limit:
  max_requests: 3
  window_seconds: 30
lockout:
  threshold: 2
  duration_minutes: 5
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	// Env beats file, file beats defaults.
	if cfg.HTTPPort != 9999 {
		t.Fatalf("expected env port 9999, got %d", cfg.HTTPPort)
	}
	if cfg.Issuer != "test-issuer" {
		t.Fatalf("expected file issuer, got %q", cfg.Issuer)
	}
	if cfg.StudentTTL != 2*time.Hour {
		t.Fatalf("expected 2h student TTL, got %v", cfg.StudentTTL)
	}
	if cfg.RateLimitMax != 3 || cfg.RateLimitWindow != 30*time.Second {
		t.Fatalf("unexpected rate limit: %d %v", cfg.RateLimitMax, cfg.RateLimitWindow)
	}
	if cfg.LockoutThreshold != 2 || cfg.LockoutDuration != 5*time.Minute {
		t.Fatalf("unexpected lockout: %d %v", cfg.LockoutThreshold, cfg.LockoutDuration)
	}
}

func TestLoadConfigRejectsShortSecret(t *testing.T) {
	t.Setenv("SESSION_SECRET", "too-short")
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for short SESSION_SECRET")
	}
}

func TestLoadConfigRejectsMalformedFile(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	path := writeConfigFile(t, "{{{{")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}

func TestEngineConfigConversion(t *testing.T) {
	t.Setenv("SESSION_SECRET", testSecret)
	t.Setenv("BOT_VERIFY_SECRET", "bot-secret")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	ec := cfg.EngineConfig()
	if string(ec.Token.Secret) != testSecret {
		t.Fatal("expected session secret to carry over")
	}
	if ec.Token.RoleTTL[authcore.RoleAdmin] != 15*time.Minute {
		t.Fatalf("unexpected admin TTL: %v", ec.Token.RoleTTL[authcore.RoleAdmin])
	}
	if ec.BotCheck.Secret != "bot-secret" {
		t.Fatal("expected bot secret to carry over")
	}
	if ec.Lockout.MaxAttempts != 5 {
		t.Fatalf("unexpected lockout attempts: %d", ec.Lockout.MaxAttempts)
	}
	if !ec.Audit.Enabled || !ec.Audit.DropIfFull {
		t.Fatal("expected audit enabled with shedding")
	}
}
