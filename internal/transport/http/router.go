// Package httptransport wires the HTTP surface: middleware chain, route
// groups, and the registration and admin guards.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	assessmentHandler "cat/internal/assessment/handler"
	"cat/internal/platform/metrics"
	"cat/internal/platform/middleware"
	userHandler "cat/internal/user/handler"
	validationHandler "cat/internal/validation/handler"
	"cat/pkg/platform/httputil"
)

const requestTimeout = 15 * time.Second

// Deps carries everything the router mounts.
type Deps struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	TokenCheck   middleware.JWTValidator
	Resolver     IdentityResolver
	Users        *userHandler.Handler
	Validations  *validationHandler.Handler
	Assessments  *assessmentHandler.Handler
	HealthChecks []func(ctx context.Context) error
}

// NewRouter builds the full route tree. Every /v1 route requires a verified
// token; everything except registration additionally requires a registered,
// non-denied caller, and /v1/admin requires the admin role on top.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Tracing())
	if deps.Metrics != nil {
		r.Use(middleware.Latency(deps.Metrics))
	}
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", healthHandler(deps.HealthChecks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RequireAuth(deps.TokenCheck, deps.Logger))

		deps.Users.RegisterPublic(r)

		r.Group(func(r chi.Router) {
			r.Use(RequireRegistered(deps.Resolver, deps.Logger))

			deps.Users.Register(r)
			deps.Validations.Register(r)
			deps.Assessments.Register(r)

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin())

				deps.Users.RegisterAdmin(r)
				deps.Validations.RegisterAdmin(r)
				deps.Assessments.RegisterAdmin(r)
			})
		})
	})

	return r
}

func healthHandler(checks []func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"error":  err.Error(),
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
