package database

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	// UserScopeKey is the context key for storing the caller-scoped database connection.
	UserScopeKey contextKey = "userScope"
)

// GetUserScope retrieves the caller-scoped database connection from context.
// Returns nil and false if not present.
func GetUserScope(ctx context.Context) (*UserScope, bool) {
	scope, ok := ctx.Value(UserScopeKey).(*UserScope)
	return scope, ok
}

// SetUserScope stores the caller-scoped database connection in context.
func SetUserScope(ctx context.Context, scope *UserScope) context.Context {
	return context.WithValue(ctx, UserScopeKey, scope)
}

// UserScopeProvider creates caller-scoped contexts for database operations.
type UserScopeProvider struct {
	db *DB
}

// NewUserScopeProvider creates a UserScopeProvider for the given database.
func NewUserScopeProvider(db *DB) *UserScopeProvider {
	return &UserScopeProvider{db: db}
}

// WithUserScope returns a context with a scope for userID set.
// uuid.Nil selects the anonymous scope.
// The cleanup function must be called when the scope is no longer needed.
func (p *UserScopeProvider) WithUserScope(ctx context.Context, userID uuid.UUID) (context.Context, func(), error) {
	var (
		scope *UserScope
		err   error
	)
	if userID == uuid.Nil {
		scope, err = p.db.WithAnon(ctx)
	} else {
		scope, err = p.db.WithUser(ctx, userID)
	}
	if err != nil {
		return nil, nil, err
	}
	return SetUserScope(ctx, scope), func() { scope.Close() }, nil
}
