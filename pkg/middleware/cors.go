package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS returns middleware that answers browser preflight requests for the
// given origins. An empty list allows any origin; credentials are never
// allowed because callers authenticate with bearer tokens, not cookies.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
