package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Mewnot-jar/ocean-observer/pkg/audit"
	"github.com/Mewnot-jar/ocean-observer/pkg/auth"
	"github.com/Mewnot-jar/ocean-observer/pkg/config"
	"github.com/Mewnot-jar/ocean-observer/pkg/database"
	"github.com/Mewnot-jar/ocean-observer/pkg/handlers"
	"github.com/Mewnot-jar/ocean-observer/pkg/logging"
	"github.com/Mewnot-jar/ocean-observer/pkg/middleware"
	"github.com/Mewnot-jar/ocean-observer/pkg/repositories"
	"github.com/Mewnot-jar/ocean-observer/pkg/services"
	"github.com/Mewnot-jar/ocean-observer/pkg/storage"
)

// Version is set at build time via ldflags
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server exited with error", zap.String("error", logging.SanitizeError(err)))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("base_url", cfg.BaseURL),
		zap.String("auth_strategy", cfg.Auth.Strategy),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("storage_enabled", cfg.Storage.Enabled()),
		zap.Strings("cors_origins", cfg.CORS.AllowedOrigins))

	connString := cfg.Database.ConnectionString()

	if cfg.Database.AutoMigrate {
		if err := migrate(connString, logger); err != nil {
			return err
		}
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:               connString,
		MaxConnections:    cfg.Database.MaxConnections,
		AuthenticatedRole: cfg.Database.AuthenticatedRole,
		AnonRole:          cfg.Database.AnonRole,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	provider, err := auth.NewIdentityProvider(ctx, &cfg.Auth, logger.Named("auth"))
	if err != nil {
		return fmt.Errorf("failed to create identity provider: %w", err)
	}

	media, err := storage.NewMediaStore(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to create media store: %w", err)
	}

	// Repositories
	observationRepo := repositories.NewObservationRepository()
	speciesRepo := repositories.NewSpeciesRepository()

	// Services
	observationService := services.NewObservationService(
		observationRepo,
		speciesRepo,
		media,
		services.NewUserContextFunc(db),
		logger,
	)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, db, logger)
	healthHandler.RegisterRoutes(mux)

	authMiddleware := auth.NewMiddleware(provider, logger.Named("auth"))
	writeLimit := middleware.RateLimitByIP(cfg.RateLimit.Requests, cfg.RateLimit.Window())

	auditor := audit.NewSecurityAuditor(logger)
	observationsHandler := handlers.NewObservationsHandler(observationService, provider, auditor, logger)
	observationsHandler.RegisterRoutes(mux, authMiddleware, writeLimit)

	mux.Handle("GET /metrics", promhttp.Handler())

	handler := middleware.Chain(mux,
		middleware.CORS(cfg.CORS.AllowedOrigins),
		middleware.RequestLogger(logger),
		middleware.Metrics(),
	)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return serve(ctx, srv, cfg, logger)
}

// migrate applies embedded migrations over a short-lived database/sql handle.
func migrate(connString string, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv *http.Server, cfg *config.Config, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSCertPath != "" {
			logger.Info("Starting ocean-observer with TLS",
				zap.String("addr", srv.Addr),
				zap.String("version", cfg.Version))
			err = srv.ListenAndServeTLS(cfg.TLSCertPath, cfg.TLSKeyPath)
		} else {
			logger.Info("Starting ocean-observer",
				zap.String("addr", srv.Addr),
				zap.String("version", cfg.Version))
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Info("Shutting down ocean-observer")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		logger.Info("Server stopped")
		return nil
	}
}
