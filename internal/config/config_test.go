package config

import (
	"os"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "foliodesk-config-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	if err := tmpFile.Close(); err != nil {
		t.Fatalf("failed to close temp file: %v", err)
	}
	return tmpFile.Name()
}

func clearEnvOverrides() {
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("SQLITE_PATH")
	os.Unsetenv("BACKEND_URL")
	os.Unsetenv("ACCOUNT_ID")
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("ALPACA_API_SECRET")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	os.Unsetenv("LOG_LEVEL")
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/foliodesk/data"
  sqlite_path: "/tmp/foliodesk/foliodesk.db"
server:
  host: "127.0.0.1"
  port: 9000
backend:
  base_url: "http://localhost:5001"
trading:
  gateway_mode: "backend"
  account_id: "42"
  quote_refresh_sec: 30
  popular_count: 5
  rate_limit_per_min: 120
logging:
  level: "debug"
  format: "json"
`)

	clearEnvOverrides()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/tmp/foliodesk/data" {
		t.Errorf("Storage.DataDir = %q, want %q", cfg.Storage.DataDir, "/tmp/foliodesk/data")
	}
	if cfg.Storage.SQLitePath != "/tmp/foliodesk/foliodesk.db" {
		t.Errorf("Storage.SQLitePath = %q, want %q", cfg.Storage.SQLitePath, "/tmp/foliodesk/foliodesk.db")
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Backend.BaseURL != "http://localhost:5001" {
		t.Errorf("Backend.BaseURL = %q, want %q", cfg.Backend.BaseURL, "http://localhost:5001")
	}
	if cfg.Trading.GatewayMode != "backend" {
		t.Errorf("Trading.GatewayMode = %q, want %q", cfg.Trading.GatewayMode, "backend")
	}
	if cfg.Trading.AccountID != "42" {
		t.Errorf("Trading.AccountID = %q, want %q", cfg.Trading.AccountID, "42")
	}
	if cfg.Trading.QuoteRefreshSec != 30 {
		t.Errorf("Trading.QuoteRefreshSec = %d, want %d", cfg.Trading.QuoteRefreshSec, 30)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/foliodesk/data"
`)

	clearEnvOverrides()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want default %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, 8080)
	}
	if cfg.Trading.GatewayMode != "sim" {
		t.Errorf("Trading.GatewayMode = %q, want default %q", cfg.Trading.GatewayMode, "sim")
	}
	if cfg.Trading.AccountID != "1" {
		t.Errorf("Trading.AccountID = %q, want default %q", cfg.Trading.AccountID, "1")
	}
	if cfg.Trading.QuoteRefreshSec != 60 {
		t.Errorf("Trading.QuoteRefreshSec = %d, want default %d", cfg.Trading.QuoteRefreshSec, 60)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want default %q", cfg.Logging.Format, "json")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/original/data"
backend:
  base_url: "http://localhost:5001"
trading:
  gateway_mode: "backend"
`)

	clearEnvOverrides()
	os.Setenv("DATA_DIR", "/env/data")
	os.Setenv("BACKEND_URL", "http://backend:9999")
	os.Setenv("ACCOUNT_ID", "7")
	defer clearEnvOverrides()

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want %q (env override)", cfg.Storage.DataDir, "/env/data")
	}
	if cfg.Backend.BaseURL != "http://backend:9999" {
		t.Errorf("Backend.BaseURL = %q, want %q (env override)", cfg.Backend.BaseURL, "http://backend:9999")
	}
	if cfg.Trading.AccountID != "7" {
		t.Errorf("Trading.AccountID = %q, want %q (env override)", cfg.Trading.AccountID, "7")
	}
}

func TestLoadRejectsBadGatewayMode(t *testing.T) {
	clearEnvOverrides()

	cases := []struct {
		name    string
		content string
	}{
		{"unknown mode", "trading:\n  gateway_mode: \"carrier-pigeon\"\n"},
		{"backend without url", "trading:\n  gateway_mode: \"backend\"\n"},
		{"alpaca without credentials", "trading:\n  gateway_mode: \"alpaca\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			if _, err := Load(path); err == nil {
				t.Errorf("Load() accepted %s", tc.name)
			}
		})
	}
}
