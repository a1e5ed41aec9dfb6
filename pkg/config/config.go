package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Identity resolution strategies supported by AuthConfig.Strategy.
const (
	StrategyJWKS   = "jwks"
	StrategySecret = "secret"
	StrategyRemote = "remote"
)

// Config holds all configuration for ocean-observer.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// TLS configuration (optional - if both provided, server uses HTTPS)
	TLSCertPath string `yaml:"tls_cert_path" env:"TLS_CERT_PATH" env-default:""`
	TLSKeyPath  string `yaml:"tls_key_path" env:"TLS_KEY_PATH" env-default:""`

	// Authentication configuration (hosted identity provider)
	Auth AuthConfig `yaml:"auth"`

	// Database configuration (PostgreSQL + PostGIS)
	Database DatabaseConfig `yaml:"database"`

	// Object storage for observation media
	Storage StorageConfig `yaml:"storage"`

	// Browser origins allowed to call the API
	CORS CORSConfig `yaml:"cors"`

	// Per-client limits on write endpoints
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig holds authentication-related configuration.
type AuthConfig struct {
	// EnableVerification controls whether JWT signatures are validated.
	// Set to false for local development without the identity provider.
	// Ignored by the remote strategy, which always asks the provider.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// Strategy selects how bearer tokens are resolved to users: jwks, secret or remote.
	Strategy string `yaml:"strategy" env:"AUTH_STRATEGY" env-default:"jwks"`

	// JWKSEndpointsStr is a comma-separated list of issuer=jwks_url pairs.
	// Format: "issuer1=url1,issuer2=url2"
	JWKSEndpointsStr string `yaml:"jwks_endpoints" env:"JWKS_ENDPOINTS" env-default:""`

	// JWKSEndpoints is the parsed map from JWKSEndpointsStr (not from config file).
	JWKSEndpoints map[string]string `yaml:"-"`

	// JWTSecret is the provider's HS256 signing secret (secret strategy).
	JWTSecret string `yaml:"-" env:"AUTH_JWT_SECRET"` // Secret - not in YAML

	// UserEndpoint is the provider's "current user" URL (remote strategy),
	// e.g. https://<project>.supabase.co/auth/v1/user
	UserEndpoint string `yaml:"user_endpoint" env:"AUTH_USER_ENDPOINT" env-default:""`

	// APIKey is sent as the apikey header to the user endpoint.
	APIKey string `yaml:"-" env:"AUTH_API_KEY"` // Secret - not in YAML

	// Audience is the required aud claim. Empty disables the check.
	Audience string `yaml:"audience" env:"AUTH_AUDIENCE" env-default:"authenticated"`

	// TimeoutSeconds bounds each call to the user endpoint.
	TimeoutSeconds int `yaml:"timeout_seconds" env:"AUTH_TIMEOUT_SECONDS" env-default:"10"`
}

// Timeout returns TimeoutSeconds as a duration.
func (c *AuthConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"ocean_observer"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`

	// AutoMigrate applies embedded migrations at startup.
	AutoMigrate bool `yaml:"auto_migrate" env:"DB_AUTO_MIGRATE" env-default:"true"`

	// Roles assumed for row-level security. Empty disables SET ROLE.
	AuthenticatedRole string `yaml:"authenticated_role" env:"DB_AUTHENTICATED_ROLE" env-default:"authenticated"`
	AnonRole          string `yaml:"anon_role" env:"DB_ANON_ROLE" env-default:"anon"`
}

// StorageConfig holds S3-compatible object storage configuration.
type StorageConfig struct {
	// Endpoint is host[:port] of the storage API. Empty disables media removal.
	Endpoint  string `yaml:"endpoint" env:"STORAGE_ENDPOINT" env-default:""`
	Bucket    string `yaml:"bucket" env:"STORAGE_BUCKET" env-default:"observations"`
	Region    string `yaml:"region" env:"STORAGE_REGION" env-default:""`
	UseSSL    bool   `yaml:"use_ssl" env:"STORAGE_USE_SSL" env-default:"true"`
	AccessKey string `yaml:"-" env:"STORAGE_ACCESS_KEY"` // Secret - not in YAML
	SecretKey string `yaml:"-" env:"STORAGE_SECRET_KEY"` // Secret - not in YAML
}

// Enabled reports whether an object storage endpoint is configured.
func (c *StorageConfig) Enabled() bool {
	return c.Endpoint != ""
}

// CORSConfig holds allowed browser origins.
type CORSConfig struct {
	AllowedOriginsStr string   `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:""`
	AllowedOrigins    []string `yaml:"-"`
}

// RateLimitConfig bounds how often a single client IP may call write endpoints.
type RateLimitConfig struct {
	// Requests per window. Zero disables rate limiting.
	Requests      int `yaml:"requests" env:"RATE_LIMIT_REQUESTS" env-default:"60"`
	WindowSeconds int `yaml:"window_seconds" env:"RATE_LIMIT_WINDOW_SECONDS" env-default:"60"`
}

// Enabled reports whether rate limiting is active.
func (c *RateLimitConfig) Enabled() bool {
	return c.Requests > 0 && c.WindowSeconds > 0
}

// Window returns WindowSeconds as a duration.
func (c *RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
// A missing config.yaml is not an error; defaults and environment are used.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.parseComplexFields()
	cfg.applyContainerDefaults(inContainer())

	if err := cfg.validateTLS(); err != nil {
		return nil, fmt.Errorf("invalid TLS configuration: %w", err)
	}

	if err := cfg.validateAuth(); err != nil {
		return nil, fmt.Errorf("invalid auth configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		scheme := "http"
		if cfg.TLSCertPath != "" {
			scheme = "https"
		}
		cfg.BaseURL = (&url.URL{
			Scheme: scheme,
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() {
	c.Auth.JWKSEndpoints = parseJWKSEndpoints(c.Auth.JWKSEndpointsStr)
	c.CORS.AllowedOrigins = splitList(c.CORS.AllowedOriginsStr)
}

// validateTLS ensures TLS configuration is valid if provided.
// Both cert and key must be provided together, and files must exist.
func (c *Config) validateTLS() error {
	certSet := c.TLSCertPath != ""
	keySet := c.TLSKeyPath != ""

	if certSet != keySet {
		return fmt.Errorf("both tls_cert_path and tls_key_path must be provided together")
	}

	if certSet {
		if _, err := os.Stat(c.TLSCertPath); err != nil {
			return fmt.Errorf("TLS cert file does not exist: %w", err)
		}
		if _, err := os.Stat(c.TLSKeyPath); err != nil {
			return fmt.Errorf("TLS key file does not exist: %w", err)
		}
	}

	return nil
}

// validateAuth checks that the selected strategy has what it needs.
func (c *Config) validateAuth() error {
	switch c.Auth.Strategy {
	case StrategyJWKS:
		if c.Auth.EnableVerification && len(c.Auth.JWKSEndpoints) == 0 {
			return fmt.Errorf("jwks strategy requires jwks_endpoints when verification is enabled")
		}
	case StrategySecret:
		if c.Auth.EnableVerification && c.Auth.JWTSecret == "" {
			return fmt.Errorf("secret strategy requires AUTH_JWT_SECRET when verification is enabled")
		}
	case StrategyRemote:
		if c.Auth.UserEndpoint == "" {
			return fmt.Errorf("remote strategy requires user_endpoint")
		}
	default:
		return fmt.Errorf("unknown auth strategy %q", c.Auth.Strategy)
	}
	return nil
}

// parseJWKSEndpoints parses the JWKS endpoints string into a map.
// Format: "issuer1=url1,issuer2=url2"
func parseJWKSEndpoints(value string) map[string]string {
	endpoints := make(map[string]string)
	if value == "" {
		return endpoints
	}

	pairs := strings.Split(value, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			endpoints[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return endpoints
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ConnectionString returns a PostgreSQL connection URL.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:   "/" + c.Database,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
