package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const applicationName = "ocean-observer"

// DB wraps a pgxpool connection pool together with the roles used for
// row-level security when a connection is scoped to a caller.
type DB struct {
	*pgxpool.Pool
	authenticatedRole string
	anonRole          string
}

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxConnections  int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration

	// Roles assumed by WithUser / WithAnon. Empty skips SET ROLE.
	AuthenticatedRole string
	AnonRole          string
}

// NewConnection creates a new database connection pool.
func NewConnection(ctx context.Context, cfg *Config) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Shows up in pg_stat_activity next to the role a scoped connection assumed.
	poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName

	poolConfig.MaxConns = cfg.MaxConnections
	if poolConfig.MaxConns == 0 {
		poolConfig.MaxConns = 25
	}

	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	if poolConfig.MaxConnLifetime == 0 {
		poolConfig.MaxConnLifetime = time.Hour
	}

	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	if poolConfig.MaxConnIdleTime == 0 {
		poolConfig.MaxConnIdleTime = time.Minute * 30
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		Pool:              pool,
		authenticatedRole: cfg.AuthenticatedRole,
		anonRole:          cfg.AnonRole,
	}, nil
}

// Close closes the connection pool.
func (db *DB) Close() {
	db.Pool.Close()
}
