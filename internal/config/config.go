// Package config loads the TOML configuration and environment overrides
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the server and the CLI
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	MarketData MarketDataConfig `toml:"market_data"`
	Ingestion  IngestionConfig  `toml:"ingestion"`
	Series     SeriesConfig     `toml:"series"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ServerConfig holds gRPC server configuration
type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	APIToken string `toml:"api_token"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selects the database. DSN wins over the individual parts.
type StorageConfig struct {
	Driver   string `toml:"driver"` // postgres or sqlite3
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Name     string `toml:"name"`
}

// ConnString builds the driver-specific connection string
func (c StorageConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	if c.Driver == "sqlite3" {
		return c.Name
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.Host, c.Port, c.User, c.Password, c.Name)
}

// MarketDataConfig holds the price provider configuration
type MarketDataConfig struct {
	BaseURL      string  `toml:"base_url"`
	Timeout      string  `toml:"timeout"`
	RateLimit    float64 `toml:"rate_limit"` // requests per second
	HomeCurrency string  `toml:"home_currency"`
	FxTTL        string  `toml:"fx_ttl"`
}

// GetTimeout parses and returns the timeout duration
func (c *MarketDataConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 15*time.Second)
}

// GetFxTTL parses and returns how long exchange rates are cached
func (c *MarketDataConfig) GetFxTTL() time.Duration {
	return parseDuration(c.FxTTL, time.Hour)
}

// IngestionConfig tunes the price update batch
type IngestionConfig struct {
	DefaultLookbackDays int    `toml:"default_lookback_days"`
	RewindStart         string `toml:"rewind_start"`
	Concurrency         int    `toml:"concurrency"`
}

// GetRewindStart parses the date from which a full rewind refetches history
func (c *IngestionConfig) GetRewindStart() time.Time {
	t, err := time.Parse("2006-01-02", c.RewindStart)
	if err != nil {
		return time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// SeriesConfig tunes the reconstruction cache
type SeriesConfig struct {
	CacheTTL string `toml:"cache_ttl"`
}

// GetCacheTTL parses and returns the cache freshness window
func (c *SeriesConfig) GetCacheTTL() time.Duration {
	return parseDuration(c.CacheTTL, 5*time.Minute)
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func parseDuration(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     "0.0.0.0",
			Port:     8080,
			APIToken: "dev-token",
		},
		Storage: StorageConfig{
			Driver:   "postgres",
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Password: "postgres",
			Name:     "assetflow",
		},
		MarketData: MarketDataConfig{
			BaseURL:      "https://query2.finance.yahoo.com",
			Timeout:      "15s",
			RateLimit:    2,
			HomeCurrency: "KRW",
			FxTTL:        "1h",
		},
		Ingestion: IngestionConfig{
			DefaultLookbackDays: 30,
			RewindStart:         "2023-01-01",
			Concurrency:         4,
		},
		Series: SeriesConfig{
			CacheTTL: "5m",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects configurations the services cannot run with
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Ingestion.Concurrency < 1 {
		c.Ingestion.Concurrency = 1
	}
	if c.Ingestion.DefaultLookbackDays < 1 {
		c.Ingestion.DefaultLookbackDays = 30
	}
	c.MarketData.HomeCurrency = strings.ToUpper(strings.TrimSpace(c.MarketData.HomeCurrency))
	if c.MarketData.HomeCurrency == "" {
		c.MarketData.HomeCurrency = "KRW"
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("DB_CONN_STR"); v != "" {
		config.Storage.DSN = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		config.Storage.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Storage.Port = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		config.Storage.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		config.Storage.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		config.Storage.Name = v
	}
	if v := os.Getenv("ASSETFLOW_DB_DRIVER"); v != "" {
		config.Storage.Driver = v
	}
	if v := os.Getenv("API_TOKEN"); v != "" {
		config.Server.APIToken = v
	}
	if v := os.Getenv("ASSETFLOW_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			config.Server.Port = p
		}
	}
	if v := os.Getenv("ASSETFLOW_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
