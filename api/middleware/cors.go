package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
)

// CORS lets the buyer and staff web apps call the API with credentials.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader, "traceparent"},
		ExposedHeaders:   []string{requestIDHeader, traceIDHeader, replayHeader},
		AllowCredentials: true,
		MaxAge:           int(cfg.MaxAge.Seconds()),
	}).Handler
}
