// Package config loads collaborator configuration. The store core takes a
// plain file path; everything here is for the CLI, TUI and dashboard.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration, stored as YAML at
// ~/.conversations/config.yaml. Every field has a working default so the
// file is optional.
type Config struct {
	DBPath string `yaml:"db_path"`
	Agent  string `yaml:"agent"`
	// PollIntervalMS is the live-delivery tick in milliseconds. YAML has
	// no duration type, so the unit is in the key.
	PollIntervalMS int    `yaml:"poll_interval_ms"`
	DashboardAddr  string `yaml:"dashboard_addr"`
	SocketPath     string `yaml:"socket_path"`
}

// PollInterval returns the tick as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Dir returns the data directory (~/.conversations).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	return filepath.Join(home, ".conversations"), nil
}

// DefaultPath returns the config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Config{}, err
	}
	return Config{
		DBPath:         filepath.Join(dir, "messages.db"),
		PollIntervalMS: 200,
		DashboardAddr:  ":3456",
	}, nil
}

// Load reads the config file at path (DefaultPath when empty), merged over
// the defaults. A missing file is not an error. A .env file in the working
// directory is loaded first so CONVERSATIONS_AGENT_ID can live there
// during development.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg, err := Default()
	if err != nil {
		return Config{}, err
	}
	if path == "" {
		path, err = DefaultPath()
		if err != nil {
			return Config{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.PollIntervalMS <= 0 {
		cfg.PollIntervalMS = 200
	}
	return cfg, nil
}

// Write marshals cfg to path, creating the parent directory.
func Write(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
