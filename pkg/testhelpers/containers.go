package testhelpers

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/Mewnot-jar/ocean-observer/pkg/database"
)

// PostGISImage is the PostgreSQL image with PostGIS available.
const PostGISImage = "postgis/postgis:16-3.4"

// TestDB holds a shared PostGIS container with migrations applied.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
	ConnStr   string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostGIS database for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostGISImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       "ocean_observer_test",
			"POSTGRES_USER":     "ocean",
			"POSTGRES_PASSWORD": "test_password",
		},
		// The entrypoint restarts postgres once after init scripts run.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := fmt.Sprintf("postgres://ocean:test_password@%s:%s/ocean_observer_test?sslmode=disable",
		host, port.Port())

	// Run migrations using database/sql (required by golang-migrate)
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open sql connection: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:               connStr,
		MaxConnections:    10,
		AuthenticatedRole: "authenticated",
		AnonRole:          "anon",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}

	return &TestDB{
		Container: container,
		DB:        db,
		ConnStr:   connStr,
	}, nil
}

// UserContext returns a context scoped to userID (uuid.Nil for anonymous).
// The cleanup function releases the connection.
func (tdb *TestDB) UserContext(t *testing.T, userID uuid.UUID) (context.Context, func()) {
	t.Helper()
	ctx, cleanup, err := database.NewUserScopeProvider(tdb.DB).WithUserScope(context.Background(), userID)
	if err != nil {
		t.Fatalf("failed to create user scope: %v", err)
	}
	return ctx, cleanup
}

// Exec runs a statement without caller context, bypassing row-level policies.
// Use for fixtures and cleanup.
func (tdb *TestDB) Exec(t *testing.T, query string, args ...any) {
	t.Helper()
	ctx := context.Background()
	scope, err := tdb.DB.WithoutUser(ctx)
	if err != nil {
		t.Fatalf("failed to acquire connection: %v", err)
	}
	defer scope.Close()

	if _, err := scope.Conn.Exec(ctx, query, args...); err != nil {
		t.Fatalf("fixture statement failed: %v", err)
	}
}

// Reset removes all observations, media and species.
func (tdb *TestDB) Reset(t *testing.T) {
	t.Helper()
	tdb.Exec(t, "TRUNCATE observation_media, observations, species RESTART IDENTITY CASCADE")
}
