// Package config handles Quill store configuration loading and validation.
package config

import (
	"fmt"
)

// Config is the root configuration structure for the topic store.
type Config struct {
	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Topic behavior settings
	Topics TopicsConfig `yaml:"topics" mapstructure:"topics"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// MaxConnections is the maximum number of database connections.
	MaxConnections int `yaml:"max_connections" mapstructure:"max_connections"`

	// BusyTimeoutMs is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TopicsConfig contains topic behavior settings.
type TopicsConfig struct {
	// AllowEmptyNames permits the empty string as a displayed topic
	// name instead of substituting the fallback label.
	AllowEmptyNames bool `yaml:"allow_empty_names" mapstructure:"allow_empty_names"`

	// MaxMoveBatch caps how many messages a single topic move may
	// touch. Zero means unlimited.
	MaxMoveBatch int `yaml:"max_move_batch" mapstructure:"max_move_batch"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:           "quill.db",
			MaxConnections: 4,
			BusyTimeoutMs:  5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Topics: TopicsConfig{
			AllowEmptyNames: false,
			MaxMoveBatch:    0,
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Database.MaxConnections < 0 {
		return fmt.Errorf("database.max_connections cannot be negative")
	}
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms cannot be negative")
	}
	switch c.Logging.Level {
	case "", "trace", "debug", "info", "warn", "warning", "error", "fatal":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging.format %q is not json or console", c.Logging.Format)
	}
	if c.Topics.MaxMoveBatch < 0 {
		return fmt.Errorf("topics.max_move_batch cannot be negative")
	}
	return nil
}
