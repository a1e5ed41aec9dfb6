package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/Mewnot-jar/ocean-observer/pkg/database"
)

// UserContextFunc acquires a database connection scoped to a caller.
// uuid.Nil selects the anonymous scope.
// Returns the scoped context, a cleanup function (MUST be called), and any error.
type UserContextFunc func(ctx context.Context, userID uuid.UUID) (context.Context, func(), error)

// NewUserContextFunc creates a UserContextFunc that uses the given database.
func NewUserContextFunc(db *database.DB) UserContextFunc {
	return database.NewUserScopeProvider(db).WithUserScope
}
