// Package session shapes the browser-facing session cookie. The
// cookie value is an opaque signed token; nothing here inspects it.
package session

import (
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is used when no name is configured.
const DefaultCookieName = "clearance_session"

// CookieConfig controls the attributes stamped on every session
// cookie.
type CookieConfig struct {
	Name   string
	Path   string
	Domain string
	// Secure must be true anywhere TLS terminates in front of the
	// app. Left false only for local development.
	Secure   bool
	SameSite http.SameSite
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// NewCookie returns the session cookie for a freshly issued token.
// MaxAge mirrors the token TTL so browser expiry and token expiry
// agree; the token signature remains the real authority.
func NewCookie(cfg CookieConfig, token string, ttl time.Duration) *http.Cookie {
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	sameSite := cfg.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     cfg.name(),
		Value:    token,
		Path:     path,
		Domain:   cfg.Domain,
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: sameSite,
	}
}

// ClearCookie returns a cookie that deletes the session.
func ClearCookie(cfg CookieConfig) *http.Cookie {
	c := NewCookie(cfg, "", 0)
	c.MaxAge = -1
	return c
}

// FromRequest extracts the session token, preferring the cookie and
// falling back to an Authorization bearer header for API clients.
func FromRequest(r *http.Request, cookieName string) (string, bool) {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}
