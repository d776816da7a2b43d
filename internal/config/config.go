package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Aggregation AggregationConfig `mapstructure:"aggregation"`
	Backfill    BackfillConfig    `mapstructure:"backfill"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// DatabaseConfig selects the storage backend. Driver is "postgres" or
// "sqlite"; DSN is the connection string for the chosen driver.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// AggregationConfig tunes the balance recompute pipeline.
type AggregationConfig struct {
	// Mode is "sync" (recompute inline with the event write) or "queued"
	// (recompute on a background worker pool).
	Mode        string `mapstructure:"mode"`
	Workers     int    `mapstructure:"workers"`
	MaxAttempts int    `mapstructure:"max_attempts"`

	// Timezone is the IANA zone used for day boundaries and weight windows.
	Timezone string `mapstructure:"timezone"`

	MorningWindowStart int `mapstructure:"morning_window_start"`
	MorningWindowEnd   int `mapstructure:"morning_window_end"`
	EveningWindowStart int `mapstructure:"evening_window_start"`
	EveningWindowEnd   int `mapstructure:"evening_window_end"`

	ProfileValidityDays int `mapstructure:"profile_validity_days"`
}

// BackfillConfig caps the parallelism and size of historical batch imports.
type BackfillConfig struct {
	Concurrency   int `mapstructure:"concurrency"`
	MaxBatchSize  int `mapstructure:"max_batch_size"`
	RatePerMinute int `mapstructure:"rate_per_minute"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.env", "development")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("aggregation.mode", "sync")
	v.SetDefault("aggregation.workers", 4)
	v.SetDefault("aggregation.max_attempts", 3)
	v.SetDefault("aggregation.timezone", "UTC")
	v.SetDefault("aggregation.morning_window_start", 5)
	v.SetDefault("aggregation.morning_window_end", 10)
	v.SetDefault("aggregation.evening_window_start", 18)
	v.SetDefault("aggregation.evening_window_end", 23)
	v.SetDefault("aggregation.profile_validity_days", 30)
	v.SetDefault("backfill.concurrency", 4)
	v.SetDefault("backfill.max_batch_size", 1000)
	v.SetDefault("backfill.rate_per_minute", 10)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read from environment variables
	v.SetEnvPrefix("KALDERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also bind the conventional non-prefixed variables
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.dsn", "DATABASE_URL")

	// Read from config file if it exists
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// It's okay if config file doesn't exist
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks that all required configuration values are present
// and internally consistent.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.Aggregation.Mode {
	case "sync", "queued":
	default:
		return fmt.Errorf("aggregation.mode must be sync or queued, got %q", c.Aggregation.Mode)
	}
	if c.Aggregation.Workers < 1 {
		return fmt.Errorf("aggregation.workers must be at least 1")
	}
	if _, err := time.LoadLocation(c.Aggregation.Timezone); err != nil {
		return fmt.Errorf("aggregation.timezone %q is not a valid IANA zone: %w", c.Aggregation.Timezone, err)
	}
	if err := validWindow("morning", c.Aggregation.MorningWindowStart, c.Aggregation.MorningWindowEnd); err != nil {
		return err
	}
	if err := validWindow("evening", c.Aggregation.EveningWindowStart, c.Aggregation.EveningWindowEnd); err != nil {
		return err
	}
	if c.Backfill.Concurrency < 1 {
		return fmt.Errorf("backfill.concurrency must be at least 1")
	}
	if c.Backfill.MaxBatchSize < 1 {
		return fmt.Errorf("backfill.max_batch_size must be at least 1")
	}
	return nil
}

// Location resolves the configured aggregation timezone. Validate must
// have passed first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Aggregation.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validWindow(name string, start, end int) error {
	if start < 0 || end > 24 || start >= end {
		return fmt.Errorf("aggregation %s window [%d, %d) is not a valid hour range", name, start, end)
	}
	return nil
}
