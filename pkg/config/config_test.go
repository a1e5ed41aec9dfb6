package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdirWithConfig writes yamlContent to config.yaml in a temp directory and
// changes into it for the duration of the test. Empty content writes no file.
func chdirWithConfig(t *testing.T, yamlContent string) {
	t.Helper()
	tmpDir := t.TempDir()

	if yamlContent != "" {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
}

// clearEnv unsets variables that would leak in from the developer's shell.
func clearEnv(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if value, ok := os.LookupEnv(name); ok {
			os.Unsetenv(name)
			t.Cleanup(func() { os.Setenv(name, value) })
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	chdirWithConfig(t, `
port: "3000"
env: "test"
auth:
  strategy: "secret"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
`)
	clearEnv(t, "PGHOST", "BASE_URL", "AUTH_STRATEGY")

	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("AUTH_JWT_SECRET", "super-secret")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "4443" {
		t.Errorf("expected Port=4443 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	if cfg.BaseURL != "http://localhost:4443" {
		t.Errorf("expected BaseURL=http://localhost:4443 (auto-derived from PORT), got %s", cfg.BaseURL)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("expected Database.Host=db.example.com (from yaml), got %s", cfg.Database.Host)
	}
	if cfg.Auth.JWTSecret != "super-secret" {
		t.Errorf("expected JWT secret from env")
	}
}

func TestLoad_MissingConfigFileUsesEnv(t *testing.T) {
	chdirWithConfig(t, "")
	clearEnv(t, "PORT", "BASE_URL", "JWKS_ENDPOINTS")

	t.Setenv("AUTH_STRATEGY", "remote")
	t.Setenv("AUTH_USER_ENDPOINT", "https://abc.supabase.co/auth/v1/user")

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "3000" {
		t.Errorf("expected default Port=3000, got %s", cfg.Port)
	}
	if cfg.Auth.Strategy != StrategyRemote {
		t.Errorf("expected remote strategy, got %s", cfg.Auth.Strategy)
	}
	if cfg.Database.AuthenticatedRole != "authenticated" || cfg.Database.AnonRole != "anon" {
		t.Errorf("unexpected RLS roles: %q / %q", cfg.Database.AuthenticatedRole, cfg.Database.AnonRole)
	}
	if cfg.Storage.Enabled() {
		t.Error("expected storage to be disabled without an endpoint")
	}
}

func TestLoad_JWKSRequiresEndpoints(t *testing.T) {
	chdirWithConfig(t, "")
	clearEnv(t, "JWKS_ENDPOINTS", "AUTH_ENABLE_VERIFICATION")

	t.Setenv("AUTH_STRATEGY", "jwks")

	if _, err := Load("dev"); err == nil {
		t.Fatal("expected error when jwks strategy has no endpoints")
	}
}

func TestLoad_JWKSWithoutVerification(t *testing.T) {
	chdirWithConfig(t, "")
	clearEnv(t, "JWKS_ENDPOINTS")

	t.Setenv("AUTH_STRATEGY", "jwks")
	t.Setenv("AUTH_ENABLE_VERIFICATION", "false")

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Auth.EnableVerification {
		t.Error("expected verification to be disabled")
	}
}

func TestLoad_UnknownStrategy(t *testing.T) {
	chdirWithConfig(t, "")
	t.Setenv("AUTH_STRATEGY", "magic")

	if _, err := Load("dev"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestLoad_TLSRequiresBoth(t *testing.T) {
	chdirWithConfig(t, `
tls_cert_path: "/tmp/cert.pem"
auth:
  strategy: "remote"
  user_endpoint: "https://example.com/auth/v1/user"
`)
	clearEnv(t, "TLS_KEY_PATH", "AUTH_STRATEGY")

	if _, err := Load("dev"); err == nil {
		t.Fatal("expected error when only the TLS cert is set")
	}
}

func TestParseJWKSEndpoints(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]string
	}{
		{name: "empty", input: "", expected: map[string]string{}},
		{
			name:     "single",
			input:    "https://abc.supabase.co/auth/v1=https://abc.supabase.co/auth/v1/.well-known/jwks.json",
			expected: map[string]string{"https://abc.supabase.co/auth/v1": "https://abc.supabase.co/auth/v1/.well-known/jwks.json"},
		},
		{
			name:  "multiple with spaces",
			input: "a = https://a/jwks, b=https://b/jwks?x=1",
			expected: map[string]string{
				"a": "https://a/jwks",
				"b": "https://b/jwks?x=1",
			},
		},
		{name: "malformed pair ignored", input: "nope", expected: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseJWKSEndpoints(tt.input)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d endpoints, got %d (%v)", len(tt.expected), len(got), got)
			}
			for k, v := range tt.expected {
				if got[k] != v {
					t.Errorf("expected %s=%s, got %s", k, v, got[k])
				}
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" https://a.example , ,https://b.example")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", got)
	}
	if splitList("") != nil {
		t.Error("expected nil for empty input")
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "obs",
		Password: "p@ss word",
		Database: "ocean",
		SSLMode:  "require",
	}

	expected := "postgres://obs:p%40ss%20word@db:5433/ocean?sslmode=require"
	if got := cfg.ConnectionString(); got != expected {
		t.Errorf("expected %s, got %s", expected, got)
	}
}

func TestRateLimitConfig(t *testing.T) {
	cfg := RateLimitConfig{Requests: 10, WindowSeconds: 30}
	if !cfg.Enabled() {
		t.Error("expected rate limiting to be enabled")
	}
	if cfg.Window().Seconds() != 30 {
		t.Errorf("expected 30s window, got %s", cfg.Window())
	}
	if (&RateLimitConfig{Requests: 0, WindowSeconds: 30}).Enabled() {
		t.Error("expected zero requests to disable rate limiting")
	}
}

func TestApplyContainerDefaults(t *testing.T) {
	cfg := &Config{BindAddr: "127.0.0.1", Database: DatabaseConfig{Host: "localhost"}}
	cfg.applyContainerDefaults(false)
	if cfg.BindAddr != "127.0.0.1" || cfg.Database.Host != "localhost" {
		t.Errorf("expected no change outside a container, got %s / %s", cfg.BindAddr, cfg.Database.Host)
	}

	cfg.applyContainerDefaults(true)
	if cfg.BindAddr != "0.0.0.0" {
		t.Errorf("expected 0.0.0.0 in a container, got %s", cfg.BindAddr)
	}
	if cfg.Database.Host != "host.docker.internal" {
		t.Errorf("expected host.docker.internal in a container, got %s", cfg.Database.Host)
	}

	remote := &Config{BindAddr: "10.0.0.2", Database: DatabaseConfig{Host: "db"}}
	remote.applyContainerDefaults(true)
	if remote.BindAddr != "10.0.0.2" || remote.Database.Host != "db" {
		t.Error("expected non-loopback addresses to be kept")
	}
}
