// Package clientip derives a stable client identity from request
// headers for rate-limit keying.
package clientip

import (
	"net/http"
	"strings"
)

// Fallback is the identity used when no address header is present.
// All such requests share one rate-limit bucket.
const Fallback = "unknown"

// FromHeader returns the first X-Forwarded-For hop when present,
// then X-Real-IP, then Fallback. It never fails: a malformed header
// still buckets the caller consistently.
func FromHeader(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first := fwd
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			first = fwd[:i]
		}
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if ip := strings.TrimSpace(h.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return Fallback
}

// FromRequest applies FromHeader to the request, falling back to the
// transport remote address before giving up entirely.
func FromRequest(r *http.Request) string {
	if r == nil {
		return Fallback
	}
	if id := FromHeader(r.Header); id != Fallback {
		return id
	}
	if host := stripPort(r.RemoteAddr); host != "" {
		return host
	}
	return Fallback
}

func stripPort(addr string) string {
	if i := strings.LastIndexByte(addr, ':'); i >= 0 && !strings.Contains(addr[i:], "]") {
		return strings.Trim(addr[:i], "[]")
	}
	return strings.Trim(addr, "[]")
}
