package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/muxdry/storefront-backend/api/responses"
	"github.com/muxdry/storefront-backend/pkg/config"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is any dependency that can report its own health.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency and answers 503 naming the ones that failed.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Storefront-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		names := make([]string, 0, len(deps))
		for name := range deps {
			names = append(names, name)
		}
		sort.Strings(names)

		checks := make(map[string]string, len(deps))
		var failed []string
		for _, name := range names {
			if deps[name] == nil {
				continue
			}
			if err := deps[name].Ping(ctx); err != nil {
				checks[name] = "down"
				failed = append(failed, name)
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", name), "health.ready.ping_failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		if len(failed) > 0 {
			responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").
				WithDetails(map[string]any{"failed": failed, "checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
