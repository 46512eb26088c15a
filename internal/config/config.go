package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for candleboard.
type Config struct {
	Storage Storage `yaml:"storage"`
	Server  Server  `yaml:"server"`
	Alpaca  Alpaca  `yaml:"alpaca"`
	Redis   Redis   `yaml:"redis"`
	Chart   Chart   `yaml:"chart"`
	Logging Logging `yaml:"logging"`
	Refresh Refresh `yaml:"refresh"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir       string `yaml:"data_dir"`
	CachePath     string `yaml:"cache_path"`
	WatchlistPath string `yaml:"watchlist_path"`
	CacheTTLHours int    `yaml:"cache_ttl_hours"`
}

// CacheTTL returns the cache freshness window.
func (s Storage) CacheTTL() time.Duration {
	if s.CacheTTLHours <= 0 {
		return 6 * time.Hour
	}
	return time.Duration(s.CacheTTLHours) * time.Hour
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Alpaca holds credentials and endpoints for the Alpaca APIs.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Watchlist string `yaml:"watchlist"` // remote watchlist name; empty disables sync
}

// Configured reports whether Alpaca credentials are present.
func (a Alpaca) Configured() bool {
	return a.APIKey != "" && a.APISecret != ""
}

// Redis configures the optional hot cache tier.
type Redis struct {
	Addr     string `yaml:"addr"` // empty disables Redis
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Chart configures the chart engine.
type Chart struct {
	Windows       []int  `yaml:"windows"`        // moving-average windows
	DefaultTicker string `yaml:"default_ticker"`
	DefaultPeriod string `yaml:"default_period"`
}

// MAWindows returns the configured windows, defaulting to 5/20/50.
func (c Chart) MAWindows() []int {
	if len(c.Windows) == 0 {
		return []int{5, 20, 50}
	}
	return c.Windows
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Refresh configures the background cache refresh job.
type Refresh struct {
	Cron string `yaml:"cron"` // empty disables the job
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it
// into a Config struct, and then applies environment variable
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// ApplyEnv applies environment overrides to a config built without a
// file, so a bare environment is enough to run.
func ApplyEnv(cfg *Config) {
	applyEnvOverrides(cfg)
}

// applyEnvOverrides checks well-known environment variables and
// overrides the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("CACHE_PATH"); v != "" {
		cfg.Storage.CachePath = v
	}
	if v := os.Getenv("WATCHLIST_PATH"); v != "" {
		cfg.Storage.WatchlistPath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// The SDK's canonical env var names take highest priority.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
