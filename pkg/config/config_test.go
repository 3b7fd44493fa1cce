package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsInvalidWithoutShares(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err == nil {
		t.Fatal("expected validation to fail without a share grammar path")
	}
}

func TestDefaultConfigPorts(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != DefaultServicePort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultServicePort)
	}
	if cfg.Discovery.Port != DefaultDiscoveryPort {
		t.Errorf("Discovery.Port = %d, want %d", cfg.Discovery.Port, DefaultDiscoveryPort)
	}
	if cfg.Auth.Port != DefaultAuthPort {
		t.Errorf("Auth.Port = %d, want %d", cfg.Auth.Port, DefaultAuthPort)
	}
}

func TestLoadFromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
shutdown_timeout: 10s
shares: ` + filepath.Join(dir, "shares.conf") + `
logging:
  level: debug
  format: json
  output: stderr
server:
  port: 19092
  max_sessions: 5
identity:
  backend: sqlite
  sqlite_path: ` + filepath.Join(dir, "identity.db") + `
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 19092 {
		t.Errorf("Server.Port = %d, want 19092", cfg.Server.Port)
	}
	if cfg.Server.MaxSessions != 5 {
		t.Errorf("Server.MaxSessions = %d, want 5", cfg.Server.MaxSessions)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level = %q, want DEBUG (normalized uppercase)", cfg.Logging.Level)
	}
	// Discovery/Auth ports were left unset in the file, so defaults apply.
	if cfg.Discovery.Port != DefaultDiscoveryPort {
		t.Errorf("Discovery.Port = %d, want default %d", cfg.Discovery.Port, DefaultDiscoveryPort)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != DefaultServicePort {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, DefaultServicePort)
	}
}

func TestSaveAndReloadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Shares = filepath.Join(dir, "shares.conf")
	cfg.Identity.SQLitePath = filepath.Join(dir, "identity.db")

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Shares != cfg.Shares {
		t.Errorf("Shares = %q, want %q", reloaded.Shares, cfg.Shares)
	}
}
