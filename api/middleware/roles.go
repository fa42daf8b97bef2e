package middleware

import (
	"net/http"

	"github.com/muxdry/storefront-backend/api/responses"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

// RequireStaff admits staff and superusers.
func RequireStaff(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireActor(logg, "staff access required", func(r *http.Request) bool {
		actor, ok := ActorFromContext(r.Context())
		return ok && actor.IsStaff()
	})
}

// RequireSuperuser admits superusers only.
func RequireSuperuser(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireActor(logg, "superuser access required", func(r *http.Request) bool {
		actor, ok := ActorFromContext(r.Context())
		return ok && actor.IsSuperuser()
	})
}

func requireActor(logg *logger.Logger, message string, allowed func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed(r) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
