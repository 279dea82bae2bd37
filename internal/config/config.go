package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for tidemark.
type Config struct {
	Storage  Storage        `yaml:"storage"`
	Alpaca   Alpaca         `yaml:"alpaca"`
	Logging  Logging        `yaml:"logging"`
	Gather   GatherConfig   `yaml:"gather"`
	Backtest BacktestConfig `yaml:"backtest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls daily-bar gathering.
type GatherConfig struct {
	StartDate       string `yaml:"start_date"`
	RateLimitPerMin int    `yaml:"rate_limit_per_min"`
	MaxAttempts     int    `yaml:"max_attempts"`
}

// BacktestConfig defines a single simulation: the instrument universe, the
// starting cash balance, the price source, and the strategy to run.
type BacktestConfig struct {
	Universe    []string       `yaml:"universe"`
	InitialCash float64        `yaml:"initial_cash"`
	CSVPath     string         `yaml:"csv_path"`
	StartDate   string         `yaml:"start_date"`
	EndDate     string         `yaml:"end_date"`
	Strategy    StrategyConfig `yaml:"strategy"`
}

// StrategyConfig selects and parameterises one strategy variant. Name must be
// a registered strategy ("trend-following" or "mean-reversion").
type StrategyConfig struct {
	Name           string               `yaml:"name"`
	TrendFollowing TrendFollowingConfig `yaml:"trend_following"`
	MeanReversion  MeanReversionConfig  `yaml:"mean_reversion"`
}

// TrendFollowingConfig holds the SMA-crossover parameters.
type TrendFollowingConfig struct {
	ShortWindow  int `yaml:"short_window"`
	LongWindow   int `yaml:"long_window"`
	PositionSize int `yaml:"position_size"`
}

// MeanReversionConfig holds the band-reversion parameters.
type MeanReversionConfig struct {
	MeanWindow   int     `yaml:"mean_window"`
	ThresholdPct float64 `yaml:"threshold_pct"`
	PositionSize int     `yaml:"position_size"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
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
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}

	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}

	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority — canonical names used by SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// applyDefaults fills fields that may be omitted from the YAML file.
func applyDefaults(cfg *Config) {
	if cfg.Backtest.InitialCash == 0 {
		cfg.Backtest.InitialCash = 10000
	}
	if cfg.Gather.RateLimitPerMin == 0 {
		cfg.Gather.RateLimitPerMin = 200
	}
	if cfg.Gather.MaxAttempts == 0 {
		cfg.Gather.MaxAttempts = 3
	}
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Validate checks the backtest section for internally consistent parameters.
func (c *BacktestConfig) Validate() error {
	if len(c.Universe) == 0 {
		return fmt.Errorf("backtest: universe must not be empty")
	}
	if c.InitialCash <= 0 {
		return fmt.Errorf("backtest: initial_cash must be positive, got %v", c.InitialCash)
	}

	switch c.Strategy.Name {
	case "trend-following":
		tf := c.Strategy.TrendFollowing
		if tf.ShortWindow <= 0 {
			return fmt.Errorf("trend_following: short_window must be positive, got %d", tf.ShortWindow)
		}
		if tf.LongWindow <= tf.ShortWindow {
			return fmt.Errorf("trend_following: long_window (%d) must exceed short_window (%d)", tf.LongWindow, tf.ShortWindow)
		}
		if tf.PositionSize <= 0 {
			return fmt.Errorf("trend_following: position_size must be positive, got %d", tf.PositionSize)
		}
	case "mean-reversion":
		mr := c.Strategy.MeanReversion
		if mr.MeanWindow <= 0 {
			return fmt.Errorf("mean_reversion: mean_window must be positive, got %d", mr.MeanWindow)
		}
		if mr.ThresholdPct <= 0 || mr.ThresholdPct >= 1 {
			return fmt.Errorf("mean_reversion: threshold_pct must be in (0,1), got %v", mr.ThresholdPct)
		}
		if mr.PositionSize <= 0 {
			return fmt.Errorf("mean_reversion: position_size must be positive, got %d", mr.PositionSize)
		}
	case "":
		return fmt.Errorf("backtest: strategy.name is required")
	default:
		return fmt.Errorf("backtest: unknown strategy %q", c.Strategy.Name)
	}

	return nil
}
