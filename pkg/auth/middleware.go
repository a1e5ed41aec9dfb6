package auth

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates identity resolution to an IdentityProvider.
type Middleware struct {
	provider IdentityProvider
	logger   *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given IdentityProvider.
func NewMiddleware(provider IdentityProvider, logger *zap.Logger) *Middleware {
	return &Middleware{
		provider: provider,
		logger:   logger,
	}
}

// RequireUser requires a bearer token that resolves to a user.
// Sets the user and token in context for downstream handlers.
func (m *Middleware) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := BearerToken(r)
		if !ok {
			m.unauthorized(w, "missing_bearer_token")
			return
		}

		user, err := m.provider.ResolveUser(r.Context(), token)
		if err != nil || user == nil || user.ID == uuid.Nil {
			m.logger.Debug("Bearer token did not resolve to a user",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			m.unauthorized(w, "unauthenticated")
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), user, token)))
	}
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": code,
	})
}
