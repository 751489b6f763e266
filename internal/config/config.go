// Package config loads and manages taskdeck configuration.
// Configuration source priority (highest to lowest):
// 1. Environment variables (TASKDECK_SERVER, TASKDECK_TIMEOUT, TASKDECK_PLAIN)
// 2. Config file path specified via --config flag
// 3. <user config dir>/taskdeck/config.yaml
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so the config file carries values like
// "30s" or "2m" instead of raw nanosecond counts.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config is the complete configuration structure for taskdeck.
type Config struct {
	// Server is the backend base URL.
	Server string `yaml:"server"`

	// Timeout bounds each HTTP request end to end. There is no retry
	// machinery behind it; a timed-out call simply fails.
	Timeout Duration `yaml:"timeout"`

	// Plain skips the full-screen chat interface and uses a line-based
	// prompt instead. Also forced when stdout is not a terminal.
	Plain bool `yaml:"plain"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server:  "http://localhost:8000",
		Timeout: Duration(30 * time.Second),
	}
}

// Dir returns the directory holding the config file and the session files.
// TASKDECK_CONFIG_DIR overrides it, mainly for tests.
func Dir() (string, error) {
	if v := os.Getenv("TASKDECK_CONFIG_DIR"); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(base, "taskdeck"), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the config file and merges environment variable overrides.
// A missing file is fine and yields the defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		if p, err := Path(); err == nil {
			configPath = p
		}
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
		}
	}

	applyEnvOverrides(cfg)

	cfg.Server = strings.TrimRight(cfg.Server, "/")
	if cfg.Server == "" {
		cfg.Server = DefaultConfig().Server
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return cfg, nil
}

// Save persists cfg into the default config file, preserving any unknown
// keys an older or newer version may have written.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}

	// Read existing file into a generic map to preserve unknown fields.
	raw := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil {
		_ = yaml.Unmarshal(data, &raw) // ignore errors; start fresh if corrupt
	}

	raw["server"] = cfg.Server
	raw["timeout"] = time.Duration(cfg.Timeout).String()
	raw["plain"] = cfg.Plain

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TASKDECK_SERVER"); v != "" {
		cfg.Server = v
	}
	if v := os.Getenv("TASKDECK_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = Duration(parsed)
		}
	}
	if v := os.Getenv("TASKDECK_PLAIN"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			cfg.Plain = parsed
		}
	}
}
