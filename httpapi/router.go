package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authcore "github.com/kwasu-clearance/authcore"
	"github.com/kwasu-clearance/authcore/metrics/export/prometheus"
	"github.com/kwasu-clearance/authcore/middleware"
)

// NewRouter registers the portal auth routes and middleware stack.
// Role-scoped subtrees are guarded here so every downstream clearance
// handler mounted under them can trust the session claims in context.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)
	r.Method(http.MethodGet, "/metrics", prometheus.NewPrometheusExporter(handler.engine).Handler())

	cookieName := handler.engine.SessionCookieConfig().Name

	r.Route("/auth/v1", func(r chi.Router) {
		r.Post("/login", handler.login)
		r.Post("/logout", handler.logout)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(handler.engine, cookieName))
			r.Get("/session", handler.me)
		})
	})

	for _, role := range []authcore.Role{authcore.RoleStudent, authcore.RoleOfficer, authcore.RoleAdmin} {
		r.Route("/portal/"+string(role), func(r chi.Router) {
			r.Use(middleware.RequireRole(handler.engine, cookieName, role))
			r.Get("/me", handler.me)
		})
	}

	return r
}
