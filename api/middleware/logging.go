package middleware

import (
	"net/http"
	"time"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

// Logging writes one access line per request once the handler returns.
// Server errors log at warn; handlers already logged their cause.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := wrap(w, r)
			start := time.Now()
			next.ServeHTTP(ww, r)

			status := defaultStatus(ww.Status())
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method":      r.Method,
				"route":       routeOf(r),
				"path":        r.URL.Path,
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
				"client_ip":   clientIP(r),
			})
			if status >= http.StatusInternalServerError {
				logg.Warn(ctx, "http.request")
				return
			}
			logg.Info(ctx, "http.request")
		})
	}
}

// defaultStatus treats a handler that never wrote a header as 200.
func defaultStatus(value int) int {
	if value == 0 {
		return http.StatusOK
	}
	return value
}
