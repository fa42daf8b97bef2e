package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/metrics"
)

const unmatchedRoute = "unmatched"

// Logging writes one completion line per request and records it in the HTTP
// metrics under the matched chi pattern.
func Logging(logg *logger.Logger, httpMetrics *metrics.HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{"method": r.Method, "path": r.URL.Path})
			}

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(started)
			route := matchedRoute(r)

			httpMetrics.Observe(r.Method, route, status, elapsed)
			if logg == nil {
				return
			}
			logg.Info(logg.WithFields(ctx, map[string]any{
				"route":       route,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": elapsed.Milliseconds(),
			}), "request.complete")
		})
	}
}

// matchedRoute keeps metric labels bounded by reporting the pattern, not the path.
func matchedRoute(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || rctx.RoutePattern() == "" {
		return unmatchedRoute
	}
	return rctx.RoutePattern()
}
