// Package config loads the blockhouse YAML configuration and applies
// environment variable overrides for credentials and paths.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "60s" or "2m" parse
// naturally. Bare integers are rejected to avoid silently reading
// nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"60s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the blockhouse service.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Server   Server         `yaml:"server"`
	Provider Provider       `yaml:"provider"`
	Ingest   Ingest         `yaml:"ingest"`
	Backtest BacktestConfig `yaml:"backtest"`
	Predict  PredictConfig  `yaml:"predict"`
	Logging  Logging        `yaml:"logging"`
}

// Storage holds paths for data persistence.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
	DataDir    string `yaml:"data_dir"` // parquet archive root
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Provider selects and configures the daily market-data source.
type Provider struct {
	Name         string       `yaml:"name"` // "alphavantage" or "alpaca"
	AlphaVantage AlphaVantage `yaml:"alphavantage"`
	Alpaca       Alpaca       `yaml:"alpaca"`
}

// AlphaVantage holds credentials and endpoint for the Alpha Vantage API.
type AlphaVantage struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
}

// Alpaca holds credentials and endpoint for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Ingest controls the retry behaviour of the ingestion pipeline.
type Ingest struct {
	MaxAttempts   int      `yaml:"max_attempts"`
	RateLimitWait Duration `yaml:"rate_limit_wait"`
	TransientWait Duration `yaml:"transient_wait"`
	Timeout       Duration `yaml:"timeout"` // wall-clock budget per Ingest call
}

// BacktestConfig holds the default simulation parameters used when a request
// does not specify them.
type BacktestConfig struct {
	InitialInvestment float64 `yaml:"initial_investment"`
	BuyWindow         int     `yaml:"buy_window"`
	SellWindow        int     `yaml:"sell_window"`
}

// PredictConfig holds linear-regression predictor parameters.
type PredictConfig struct {
	TrainWindow int `yaml:"train_window"`
	HorizonDays int `yaml:"horizon_days"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and fills in
// defaults for unset fields.
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

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set. Secrets belong in the
// environment, not in the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.Provider.AlphaVantage.APIKey = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Provider.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Provider.Alpaca.APISecret = v
	}
}

// applyDefaults fills zero-valued fields with working defaults.
func applyDefaults(cfg *Config) {
	if cfg.Provider.Name == "" {
		cfg.Provider.Name = "alphavantage"
	}
	if cfg.Provider.AlphaVantage.BaseURL == "" {
		cfg.Provider.AlphaVantage.BaseURL = "https://www.alphavantage.co"
	}
	if cfg.Provider.AlphaVantage.RateLimitPerMin == 0 {
		cfg.Provider.AlphaVantage.RateLimitPerMin = 5
	}

	if cfg.Ingest.MaxAttempts == 0 {
		cfg.Ingest.MaxAttempts = 5
	}
	if cfg.Ingest.RateLimitWait == 0 {
		cfg.Ingest.RateLimitWait = Duration(60 * time.Second)
	}
	if cfg.Ingest.TransientWait == 0 {
		cfg.Ingest.TransientWait = Duration(10 * time.Second)
	}
	if cfg.Ingest.Timeout == 0 {
		cfg.Ingest.Timeout = Duration(6 * time.Minute)
	}

	if cfg.Backtest.InitialInvestment == 0 {
		cfg.Backtest.InitialInvestment = 10000
	}
	if cfg.Backtest.BuyWindow == 0 {
		cfg.Backtest.BuyWindow = 50
	}
	if cfg.Backtest.SellWindow == 0 {
		cfg.Backtest.SellWindow = 200
	}

	if cfg.Predict.TrainWindow == 0 {
		cfg.Predict.TrainWindow = 30
	}
	if cfg.Predict.HorizonDays == 0 {
		cfg.Predict.HorizonDays = 30
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
