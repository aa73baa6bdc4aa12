package store

import (
	"time"

	apperrors "stockbook-backup/internal/errors"
)

// Config holds the connection settings for the Stockbook database file
type Config struct {
	// Path is the location of the SQLite database file
	Path string `mapstructure:"path"`
	// BusyTimeout bounds how long a statement waits on a locked database
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// DefaultConfig returns a config with defaults applied
func DefaultConfig(path string) Config {
	return Config{
		Path:        path,
		BusyTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration for completeness
func (c *Config) Validate() error {
	if c.Path == "" {
		return apperrors.NewValidationError("database path is required", nil)
	}
	if c.BusyTimeout < 0 {
		return apperrors.NewValidationError("busy timeout cannot be negative", nil)
	}
	return nil
}
