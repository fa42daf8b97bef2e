package controllers

import (
	"net/http"
	"strings"

	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/internal/auth"
	pkgAuth "github.com/muxdry/storefront-backend/pkg/auth"
	"github.com/muxdry/storefront-backend/pkg/config"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return bodyHandler(logg, http.StatusOK, svc.Login)
}

// AuthRegister opens a customer account and returns it already logged in.
func AuthRegister(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return bodyHandler(logg, http.StatusCreated, svc.Register)
}

func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return bodyHandler(logg, http.StatusOK, svc.Refresh)
}

// AuthLogout revokes the session behind the bearer token. Expired tokens are
// accepted so a client can always end its session.
func AuthLogout(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailableHandler(logg, "auth")
	}
	return func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if scheme, token, found := strings.Cut(raw, " "); found && strings.EqualFold(scheme, "bearer") {
			raw = strings.TrimSpace(token)
		}
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}
		if err := svc.Logout(r.Context(), claims.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
