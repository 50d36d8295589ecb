package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8001 {
		t.Fatalf("expected default port 8001, got %d", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("expected default level info, got %q", cfg.Logging.Level)
	}
	if cfg.GCP.SecretNames.APIKey != "kite-api-key" {
		t.Fatalf("expected default secret name, got %q", cfg.GCP.SecretNames.APIKey)
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
kite:
  api_key: file-key
  api_secret: file-secret
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Kite.APIKey != "file-key" || cfg.Kite.APISecret != "file-secret" {
		t.Fatalf("expected file credentials, got %+v", cfg.Kite)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level debug, got %q", cfg.Logging.Level)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("KITE_API_KEY", "env-key")
	t.Setenv("KITE_API_SECRET", "env-secret")

	path := writeConfig(t, `
kite:
  api_key: file-key
  api_secret: file-secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Kite.APIKey != "env-key" || cfg.Kite.APISecret != "env-secret" {
		t.Fatalf("expected env credentials to win, got %+v", cfg.Kite)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing credentials")
	}

	cfg.Kite.APIKey = "key"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing secret")
	}

	cfg.Kite.APISecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}
