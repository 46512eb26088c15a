package config

import (
	"os"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "candleboard-config-*.yaml")
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

func TestLoadDefaults(t *testing.T) {
	path := writeTempConfig(t, `
storage:
  data_dir: "/tmp/candleboard/data"
  cache_path: "/tmp/candleboard/cache.db"
  watchlist_path: "/tmp/candleboard/watchlist.db"
  cache_ttl_hours: 12
server:
  host: "0.0.0.0"
  port: 8080
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  data_url: "https://data.alpaca.markets"
  watchlist: "candleboard"
redis:
  addr: "localhost:6379"
  db: 1
chart:
  windows: [5, 20, 60, 120]
  default_ticker: "AAPL"
  default_period: "6mo"
logging:
  level: "info"
  format: "json"
refresh:
  cron: "0 22 * * 1-5"
`)

	// Clear any environment overrides that might interfere.
	os.Unsetenv("ALPACA_API_KEY")
	os.Unsetenv("ALPACA_API_SECRET")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	os.Unsetenv("DATA_DIR")
	os.Unsetenv("REDIS_ADDR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/tmp/candleboard/data" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Storage.CacheTTL() != 12*time.Hour {
		t.Errorf("CacheTTL = %v, want 12h", cfg.Storage.CacheTTL())
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d", cfg.Server.Port)
	}
	if !cfg.Alpaca.Configured() {
		t.Error("Alpaca.Configured() = false with key and secret set")
	}
	if cfg.Alpaca.Watchlist != "candleboard" {
		t.Errorf("Alpaca.Watchlist = %q", cfg.Alpaca.Watchlist)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 1 {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	ws := cfg.Chart.MAWindows()
	if len(ws) != 4 || ws[3] != 120 {
		t.Errorf("MAWindows = %v", ws)
	}
	if cfg.Chart.DefaultPeriod != "6mo" {
		t.Errorf("DefaultPeriod = %q", cfg.Chart.DefaultPeriod)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q", cfg.Logging.Format)
	}
	if cfg.Refresh.Cron != "0 22 * * 1-5" {
		t.Errorf("Refresh.Cron = %q", cfg.Refresh.Cron)
	}
}

func TestDefaultsWhenUnset(t *testing.T) {
	var s Storage
	if s.CacheTTL() != 6*time.Hour {
		t.Errorf("zero Storage CacheTTL = %v, want 6h", s.CacheTTL())
	}
	var c Chart
	ws := c.MAWindows()
	if len(ws) != 3 || ws[0] != 5 || ws[1] != 20 || ws[2] != 50 {
		t.Errorf("default MAWindows = %v", ws)
	}
	var a Alpaca
	if a.Configured() {
		t.Error("empty Alpaca reported configured")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeTempConfig(t, `
alpaca:
  api_key: "yaml-key"
  api_secret: "yaml-secret"
storage:
  data_dir: "/original/data"
`)

	os.Setenv("ALPACA_API_KEY", "env-key")
	os.Setenv("DATA_DIR", "/env/data")
	os.Unsetenv("APCA_API_KEY_ID")
	os.Unsetenv("APCA_API_SECRET_KEY")
	defer os.Unsetenv("ALPACA_API_KEY")
	defer os.Unsetenv("DATA_DIR")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("Alpaca.APIKey = %q, want env override", cfg.Alpaca.APIKey)
	}
	// api_secret stays from YAML since no env override was set.
	if cfg.Alpaca.APISecret != "yaml-secret" {
		t.Errorf("Alpaca.APISecret = %q, want yaml value", cfg.Alpaca.APISecret)
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("Storage.DataDir = %q, want env override", cfg.Storage.DataDir)
	}
}
