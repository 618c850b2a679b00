package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"cat/internal/platform/middleware"
	"cat/internal/policy"
	userModels "cat/internal/user/models"
	"cat/pkg/platform/httputil"
)

// IdentityResolver turns an authenticated subject into a policy caller. The
// user service implements it; rejections surface as coded domain errors.
type IdentityResolver interface {
	Resolve(ctx context.Context, userID string) (policy.Caller, *userModels.User, error)
}

// RequireRegistered resolves the token subject to a registered profile and
// stores the caller in the request context. Unregistered subjects are
// rejected, as are callers flagged deny_access: no request they make
// proceeds past this guard.
func RequireRegistered(resolver IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			caller, _, err := resolver.Resolve(ctx, middleware.GetUserID(ctx))
			if err != nil {
				logger.WarnContext(ctx, "caller resolution failed",
					"request_id", middleware.GetRequestID(ctx),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			if err := policy.AuthorizeIdentified(caller); err != nil {
				httputil.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(middleware.WithCaller(ctx, caller)))
		})
	}
}

// RequireAdmin rejects non-administrators. It assumes RequireRegistered has
// already run.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := policy.AuthorizeAdmin(middleware.GetCaller(r.Context())); err != nil {
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
