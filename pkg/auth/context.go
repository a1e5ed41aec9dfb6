package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserKey is the context key for the resolved caller.
	UserKey contextKey = "user"
	// TokenKey is the context key for storing the raw bearer token.
	TokenKey contextKey = "token"
)

// WithUser stores the resolved user and raw token in the context.
func WithUser(ctx context.Context, user *User, token string) context.Context {
	ctx = context.WithValue(ctx, UserKey, user)
	return context.WithValue(ctx, TokenKey, token)
}

// GetUser retrieves the resolved user from the request context.
// Returns nil and false if no user is present.
func GetUser(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(UserKey).(*User)
	return user, ok && user != nil
}

// GetToken retrieves the raw bearer token from the request context.
func GetToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// RequireUserIDFromContext returns the caller's ID or an error if the
// request was not authenticated.
func RequireUserIDFromContext(ctx context.Context) (uuid.UUID, error) {
	user, ok := GetUser(ctx)
	if !ok || user.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("user not found in context")
	}
	return user.ID, nil
}
