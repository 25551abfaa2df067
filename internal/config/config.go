// Package config loads recordd settings from an optional YAML file and the
// environment. Environment variables win over the file; the file wins over
// defaults.
//
// Recognised environment variables:
//   - RECORDD_CONFIG: path to a YAML file (optional)
//   - NODE_ID: node identifier (default: "node-1")
//   - NODE_LISTEN: listen address (default: ":8081")
//   - NODE_SHARDS: number of shards created at startup (default: 1)
//   - LOG_LEVEL: debug, info, warn or error (default: info)
//   - LOG_FORMAT: text or json (default: text)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a setting has an unusable value
var ErrInvalidConfig = errors.New("invalid config")

// Config holds recordd settings
type Config struct {
	NodeID    string `yaml:"node_id"`
	Listen    string `yaml:"listen"`
	Shards    int    `yaml:"shards"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		NodeID:    "node-1",
		Listen:    ":8081",
		Shards:    1,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load builds a Config from defaults, the file named by RECORDD_CONFIG (if
// any) and the environment, then validates it.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("RECORDD_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.NodeID = getenv("NODE_ID", cfg.NodeID)
	cfg.Listen = getenv("NODE_LISTEN", cfg.Listen)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getenv("LOG_FORMAT", cfg.LogFormat)
	if v := os.Getenv("NODE_SHARDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("%w: NODE_SHARDS=%q", ErrInvalidConfig, v)
		}
		cfg.Shards = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks that every setting is usable
func (c Config) Validate() error {
	if c.NodeID == "" {
		return fmt.Errorf("%w: empty node_id", ErrInvalidConfig)
	}
	if c.Listen == "" {
		return fmt.Errorf("%w: empty listen address", ErrInvalidConfig)
	}
	if c.Shards < 0 {
		return fmt.Errorf("%w: shards must not be negative, got %d", ErrInvalidConfig, c.Shards)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	return nil
}

// ParseLevel converts a level name such as "debug" or "warn+2" to a
// slog.Level. An empty name means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return level, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, s)
	}
	return level, nil
}

// getenv returns the environment value for k, or def when unset or empty
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
