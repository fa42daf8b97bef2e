package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/muxdry/storefront-backend/api/responses"
	pkgAuth "github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/auth/session"
	"github.com/muxdry/storefront-backend/pkg/config"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

const bearerPrefix = "bearer "

// Auth requires a valid bearer access token whose session is still live and
// seeds the request context with the caller.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, err := authenticate(r.Context(), cfg, verifier, bearerToken(r))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithUserID(ctx, actor.UserID.String())
				ctx = logg.WithActorRole(ctx, string(actor.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, verifier session.AccessSessionChecker, token string) (pkgAuth.Actor, error) {
	if token == "" {
		return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return pkgAuth.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if verifier != nil {
		live, err := verifier.HasSession(ctx, claims.ID)
		if err != nil {
			return pkgAuth.Actor{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
		}
		if !live {
			return pkgAuth.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
		}
	}
	return pkgAuth.ActorFromClaims(claims), nil
}

// bearerToken strips a case-insensitive "Bearer " prefix. A bare token is accepted as is.
func bearerToken(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(value) >= len(bearerPrefix) && strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return strings.TrimSpace(value[len(bearerPrefix):])
	}
	return value
}
