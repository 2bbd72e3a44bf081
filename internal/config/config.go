// Package config loads the wllock configuration file.
//
// The file is optional. Every field has a default, and command line
// flags override whatever the file sets.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the wllock configuration.
type Config struct {
	// Socket is the compositor socket path. Empty means resolve it from
	// WAYLAND_DISPLAY and XDG_RUNTIME_DIR.
	Socket string `yaml:"socket"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LockDuration is how long the session stays locked.
	LockDuration time.Duration `yaml:"lock_duration"`
}

func Default() *Config {
	return &Config{
		LogLevel:     "info",
		LockDuration: 5 * time.Second,
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.LockDuration < 0 {
		errs = append(errs, fmt.Errorf("lock_duration must not be negative, got %s", c.LockDuration))
	}
	return errors.Join(errs...)
}

// Level returns LogLevel as a slog level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
