package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Config represents the main nestquant configuration
type Config struct {
	// Response cache bounds
	Cache CacheConfig `json:"cache" mapstructure:"cache"`

	// Cache janitor schedule
	Janitor JanitorConfig `json:"janitor" mapstructure:"janitor"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// CacheConfig bounds the response cache
type CacheConfig struct {
	MaxEntries  int           `json:"max_entries" mapstructure:"max_entries"`
	MaxValueLen int           `json:"max_value_len" mapstructure:"max_value_len"`
	TTL         time.Duration `json:"ttl" mapstructure:"ttl"`
}

// JanitorConfig controls periodic cache cleanup
type JanitorConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Schedule string `json:"schedule" mapstructure:"schedule"` // cron spec, e.g. "@every 5m"
}

// MetricsConfig controls the prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Cache: CacheConfig{
			MaxEntries:  50,
			MaxValueLen: 1500,
			TTL:         30 * time.Minute,
		},
		Janitor: JanitorConfig{
			Enabled:  true,
			Schedule: "@every 5m",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
		DataDir: "",
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max_entries must be positive")
	}
	if c.Cache.MaxValueLen <= 0 {
		return fmt.Errorf("cache max_value_len must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}

	if c.Janitor.Enabled {
		if c.Janitor.Schedule == "" {
			return fmt.Errorf("janitor schedule is required when the janitor is enabled")
		}
		if _, err := cron.ParseStandard(c.Janitor.Schedule); err != nil {
			return fmt.Errorf("invalid janitor schedule %q: %w", c.Janitor.Schedule, err)
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics addr is required when metrics are enabled")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}
