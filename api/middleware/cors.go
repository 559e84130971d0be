package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var devCORSOrigins = []string{"http://localhost:3000"}

// CORS allows the configured origins plus the site URL. With nothing
// configured only the local dev frontend is allowed.
func CORS(origins []string, siteURL string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins)+1)
	for _, origin := range origins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			allowed = append(allowed, origin)
		}
	}
	if siteURL != "" {
		allowed = append(allowed, strings.TrimRight(siteURL, "/"))
	}
	if len(allowed) == 0 {
		allowed = devCORSOrigins
	}
	return cors.New(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
