// Package middleware provides net/http guards for role-scoped route
// subtrees of the clearance portal.
package middleware

import (
	"context"
	"net/http"

	authcore "github.com/kwasu-clearance/authcore"
	"github.com/kwasu-clearance/authcore/session"
	"github.com/kwasu-clearance/authcore/token"
)

// SessionVerifier is the slice of the engine the guards need.
type SessionVerifier interface {
	VerifySession(tokenStr string) (*token.Claims, error)
}

type claimsContextKey struct{}

// ClaimsFromContext returns the verified session claims stored by a
// guard, or false when the request did not pass through one.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims, ok
}

// RequireSession verifies the session token from the cookie (or a
// bearer header) and stores the claims in the request context. No
// role check; use RequireRole for role-scoped subtrees.
func RequireSession(verifier SessionVerifier, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := verify(verifier, r, cookieName)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// RequireRole verifies the session and additionally demands an exact
// role match. A valid session with the wrong role gets 403, not 401:
// the caller is known, just not allowed here.
func RequireRole(verifier SessionVerifier, cookieName string, role authcore.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := verify(verifier, r, cookieName)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if claims.Role != string(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

func verify(verifier SessionVerifier, r *http.Request, cookieName string) (*token.Claims, bool) {
	if verifier == nil {
		return nil, false
	}
	tok, ok := session.FromRequest(r, cookieName)
	if !ok {
		return nil, false
	}
	claims, err := verifier.VerifySession(tok)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func withClaims(ctx context.Context, claims *token.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}
