package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"API_UPSTREAM_BASE_URL": "http://localhost:5000",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(baseEnv()))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("unexpected port %q", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second || cfg.Server.WriteTimeout != 30*time.Second {
		t.Fatalf("unexpected server timeouts: %+v", cfg.Server)
	}
	if cfg.Upstream.Timeout != 15*time.Second {
		t.Fatalf("unexpected upstream timeout: %v", cfg.Upstream.Timeout)
	}
	if cfg.Storage.CartDBPath != "data/cart.db" {
		t.Fatalf("unexpected cart db path %q", cfg.Storage.CartDBPath)
	}
	if cfg.Policy.File != "" {
		t.Fatalf("expected empty policy file, got %q", cfg.Policy.File)
	}
}

func TestLoadEnvMapOverrides(t *testing.T) {
	env := baseEnv()
	env["API_SERVER_PORT"] = "9090"
	env["API_UPSTREAM_TIMEOUT"] = "3s"
	env["API_STORAGE_CART_DB"] = "/tmp/cart.db"
	env["API_POLICY_FILE"] = "/etc/posterlane/policy.json"

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(env))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != "9090" || cfg.Upstream.Timeout != 3*time.Second {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Storage.CartDBPath != "/tmp/cart.db" || cfg.Policy.File != "/etc/posterlane/policy.json" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	contents := "# local overrides\nexport API_SERVER_PORT=7070\nAPI_UPSTREAM_BASE_URL=\"http://localhost:5000\"\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(path))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != "7070" || cfg.Upstream.BaseURL != "http://localhost:5000" {
		t.Fatalf("dotenv values not applied: %+v", cfg)
	}
}

func TestEnvMapTakesPrecedenceOverDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("API_SERVER_PORT=7070\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	env := baseEnv()
	env["API_SERVER_PORT"] = "9090"
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(path), WithEnvMap(env))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("expected env map to win, got %q", cfg.Server.Port)
	}
}

func TestLoadMissingUpstreamBaseURL(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(""))

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	fields := validationErr.Fields()
	if len(fields) != 1 || fields[0] != "Upstream.BaseURL" {
		t.Fatalf("unexpected missing fields: %v", fields)
	}
}

func TestLoadInvalidDurationFallsBack(t *testing.T) {
	env := baseEnv()
	env["API_UPSTREAM_TIMEOUT"] = "not a duration"

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(env))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Upstream.Timeout != 15*time.Second {
		t.Fatalf("expected fallback timeout, got %v", cfg.Upstream.Timeout)
	}
}
