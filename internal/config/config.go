package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the foliodesk dashboard.
type Config struct {
	Storage Storage       `yaml:"storage"`
	Server  Server        `yaml:"server"`
	Backend Backend       `yaml:"backend"`
	Alpaca  Alpaca        `yaml:"alpaca"`
	Trading TradingConfig `yaml:"trading"`
	Logging Logging       `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Backend holds the upstream portfolio backend endpoint, used when the
// gateway mode is "backend".
type Backend struct {
	BaseURL string `yaml:"base_url"`
}

// Alpaca holds credentials and endpoints for the Alpaca broker API, used
// when the gateway mode is "alpaca".
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
}

// TradingConfig selects the gateway and controls quote refresh behaviour.
type TradingConfig struct {
	// GatewayMode is one of "sim", "backend", or "alpaca".
	GatewayMode string `yaml:"gateway_mode"`
	AccountID   string `yaml:"account_id"`

	QuoteRefreshSec int `yaml:"quote_refresh_sec"`
	PopularCount    int `yaml:"popular_count"`
	RateLimitPerMin int `yaml:"rate_limit_per_min"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills defaults.
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
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}

	if v := os.Getenv("ACCOUNT_ID"); v != "" {
		cfg.Trading.AccountID = v
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

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills unset fields with working defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Trading.GatewayMode == "" {
		cfg.Trading.GatewayMode = "sim"
	}
	if cfg.Trading.AccountID == "" {
		cfg.Trading.AccountID = "1"
	}
	if cfg.Trading.QuoteRefreshSec == 0 {
		cfg.Trading.QuoteRefreshSec = 60
	}
	if cfg.Trading.PopularCount == 0 {
		cfg.Trading.PopularCount = 10
	}
	if cfg.Trading.RateLimitPerMin == 0 {
		cfg.Trading.RateLimitPerMin = 200
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// validate rejects configurations the server cannot start with.
func (cfg *Config) validate() error {
	switch cfg.Trading.GatewayMode {
	case "sim":
	case "backend":
		if cfg.Backend.BaseURL == "" {
			return fmt.Errorf("gateway_mode %q requires backend.base_url", cfg.Trading.GatewayMode)
		}
	case "alpaca":
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			return fmt.Errorf("gateway_mode %q requires alpaca credentials", cfg.Trading.GatewayMode)
		}
	default:
		return fmt.Errorf("unknown gateway_mode %q", cfg.Trading.GatewayMode)
	}
	return nil
}
