package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// devOrigin is allowed when no origins are configured.
const devOrigin = "http://localhost:3000"

// CORS allows browser clients from origins to call the API with credentials.
func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" && origin != "*" {
			allowed = append(allowed, origin)
		}
	}
	if len(allowed) == 0 {
		allowed = append(allowed, devOrigin)
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Retry-After", "Idempotent-Replayed"},
		// Wildcards are stripped above because credentials are allowed.
		AllowCredentials: true,
		MaxAge:           600,
	})
}
