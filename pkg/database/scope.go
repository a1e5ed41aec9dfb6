package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var resetStatements = []string{
	"RESET ROLE",
	"RESET request.jwt.claims",
	"RESET request.jwt.claim.sub",
}

// UserScope wraps a connection whose session settings make row-level
// security policies evaluate as a specific caller.
// request.jwt.claims and request.jwt.claim.sub carry the identity (read by
// auth.uid()), and the session role is switched to the configured RLS role.
type UserScope struct {
	Conn   *pgxpool.Conn
	UserID uuid.UUID // uuid.Nil for anonymous scopes
}

// Close resets the caller context and releases the connection to the pool.
// This MUST be called to prevent one caller's identity leaking to the next request.
// If the reset fails the underlying connection is closed so the pool drops it.
func (s *UserScope) Close() {
	if s.Conn == nil {
		return
	}
	ctx := context.Background()
	for _, stmt := range resetStatements {
		if _, err := s.Conn.Exec(ctx, stmt); err != nil {
			_ = s.Conn.Conn().Close(ctx)
			break
		}
	}
	s.Conn.Release()
	s.Conn = nil
}

// WithUser acquires a connection scoped to an authenticated caller.
// The returned UserScope MUST be closed with defer scope.Close().
func (db *DB) WithUser(ctx context.Context, userID uuid.UUID) (*UserScope, error) {
	return db.acquireScoped(ctx, userID, db.authenticatedRole)
}

// WithAnon acquires a connection scoped to an anonymous caller.
// The returned UserScope MUST be closed with defer scope.Close().
func (db *DB) WithAnon(ctx context.Context) (*UserScope, error) {
	return db.acquireScoped(ctx, uuid.Nil, db.anonRole)
}

// WithoutUser acquires a connection without caller context.
// Row-level policies are not applied for table owners; use for migrations,
// health checks and test fixtures only.
func (db *DB) WithoutUser(ctx context.Context) (*UserScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &UserScope{Conn: conn}, nil
}

func (db *DB) acquireScoped(ctx context.Context, userID uuid.UUID, role string) (*UserScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	scope := &UserScope{Conn: conn, UserID: userID}

	claims, sub, err := claimsFor(userID, role)
	if err != nil {
		scope.Close()
		return nil, err
	}

	_, err = conn.Exec(ctx,
		"SELECT set_config('request.jwt.claims', $1, false), set_config('request.jwt.claim.sub', $2, false)",
		claims, sub)
	if err != nil {
		scope.Close()
		return nil, fmt.Errorf("failed to set caller context: %w", err)
	}

	if role != "" {
		if _, err := conn.Exec(ctx, "SET ROLE "+pgx.Identifier{role}.Sanitize()); err != nil {
			scope.Close()
			return nil, fmt.Errorf("failed to assume role %s: %w", role, err)
		}
	}

	return scope, nil
}

// claimsFor builds the request.jwt.claims document and subject setting.
func claimsFor(userID uuid.UUID, role string) (string, string, error) {
	claims := map[string]string{}
	sub := ""
	if userID != uuid.Nil {
		sub = userID.String()
		claims["sub"] = sub
	}
	if role != "" {
		claims["role"] = role
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode claims: %w", err)
	}
	return string(raw), sub, nil
}
