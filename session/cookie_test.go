package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewCookieAttributes(t *testing.T) {
	c := NewCookie(CookieConfig{Secure: true}, "tok-1", 30*time.Minute)

	if c.Name != DefaultCookieName {
		t.Fatalf("Name = %q", c.Name)
	}
	if c.Value != "tok-1" {
		t.Fatalf("Value = %q", c.Value)
	}
	if !c.HttpOnly {
		t.Fatal("cookie must be HttpOnly")
	}
	if !c.Secure {
		t.Fatal("Secure flag dropped")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Fatalf("SameSite = %v, want Lax default", c.SameSite)
	}
	if c.MaxAge != 1800 {
		t.Fatalf("MaxAge = %d, want token TTL in seconds", c.MaxAge)
	}
	if c.Path != "/" {
		t.Fatalf("Path = %q", c.Path)
	}
}

func TestNewCookieCustomName(t *testing.T) {
	c := NewCookie(CookieConfig{Name: "portal_session", Path: "/portal"}, "tok", time.Hour)
	if c.Name != "portal_session" || c.Path != "/portal" {
		t.Fatalf("cookie = %+v", c)
	}
}

func TestClearCookie(t *testing.T) {
	c := ClearCookie(CookieConfig{})
	if c.MaxAge != -1 || c.Value != "" {
		t.Fatalf("clear cookie = %+v, want immediate expiry", c)
	}
}

func TestFromRequestPrefersCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/student/session", nil)
	r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "cookie-tok"})
	r.Header.Set("Authorization", "Bearer header-tok")

	tok, ok := FromRequest(r, "")
	if !ok || tok != "cookie-tok" {
		t.Fatalf("got %q %v, want cookie token", tok, ok)
	}
}

func TestFromRequestBearerFallback(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/student/session", nil)
	r.Header.Set("Authorization", "bearer header-tok")

	tok, ok := FromRequest(r, "")
	if !ok || tok != "header-tok" {
		t.Fatalf("got %q %v, want bearer token, case-insensitive scheme", tok, ok)
	}
}

func TestFromRequestMissing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := FromRequest(r, ""); ok {
		t.Fatal("want no token")
	}

	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if _, ok := FromRequest(r, ""); ok {
		t.Fatal("non-bearer scheme must not yield a token")
	}
}
