// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for loom.
//
// Configuration lives in TOML at ~/.loom/config.toml, with built-in defaults
// and environment variable overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/loomchat/loom-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete loom configuration.
type Config struct {
	// Server connection settings
	Server ServerConfig `toml:"server"`

	// Metrics monitor settings
	Monitor MonitorConfig `toml:"monitor"`

	// UI configuration
	UI UIConfig `toml:"ui"`

	// CLI configuration
	CLI CLIConfig `toml:"cli"`
}

// ServerConfig contains generation service connection settings.
type ServerConfig struct {
	// BaseURL is the root URL of the generation service.
	BaseURL string `toml:"base_url"`
	// RequestTimeoutSecs bounds non-streaming requests. Streaming requests
	// are bounded by their context, not this timeout.
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
}

// MonitorConfig contains metrics poller settings.
type MonitorConfig struct {
	// PollIntervalSecs is the delay between metrics fetches.
	PollIntervalSecs int `toml:"poll_interval_secs"`
}

// UIConfig contains TUI settings.
type UIConfig struct {
	// Theme selects the color theme: "auto", "dark", or "light".
	Theme string `toml:"theme"`
}

// CLIConfig contains REPL settings.
type CLIConfig struct {
	// HistoryEnabled persists REPL input history to ~/.loom/history.
	HistoryEnabled bool `toml:"history_enabled"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config populated with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:            "http://localhost:8000",
			RequestTimeoutSecs: 30,
		},
		Monitor: MonitorConfig{
			PollIntervalSecs: 2,
		},
		UI: UIConfig{
			Theme: "auto",
		},
		CLI: CLIConfig{
			HistoryEnabled: true,
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the loom configuration directory (~/.loom).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".loom"), nil
}

// ConfigPath returns the path to the TOML configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the configuration directory if it does not exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load reads the configuration from the default location, fills defaults for
// missing fields, and applies environment overrides. A missing file is not an
// error; defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// LoadFromPath reads the configuration from an explicit path. A missing file
// yields defaults. Environment overrides are not applied.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// fillDefaults replaces zero values with defaults so a sparse file still
// yields a usable config.
func (c *Config) fillDefaults() {
	def := Default()
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = def.Server.BaseURL
	}
	if c.Server.RequestTimeoutSecs <= 0 {
		c.Server.RequestTimeoutSecs = def.Server.RequestTimeoutSecs
	}
	if c.Monitor.PollIntervalSecs <= 0 {
		c.Monitor.PollIntervalSecs = def.Monitor.PollIntervalSecs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes the configuration to the default location.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration as TOML to path with 0600 permissions
// using an atomic write.
func SaveToPath(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# loom configuration file\n")
	sb.WriteString("# Generated by loom - edit with care\n")
	sb.WriteString("\n")

	encoder := toml.NewEncoder(&sb)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - LOOM_SERVER_URL: overrides server.base_url
//   - LOOM_THEME: overrides ui.theme
//   - LOOM_POLL_INTERVAL: overrides monitor.poll_interval_secs
func (c *Config) ApplyEnvOverrides() {
	if serverURL := os.Getenv("LOOM_SERVER_URL"); serverURL != "" {
		c.Server.BaseURL = serverURL
	}
	if theme := os.Getenv("LOOM_THEME"); theme != "" {
		c.UI.Theme = theme
	}
	if interval := os.Getenv("LOOM_POLL_INTERVAL"); interval != "" {
		if secs, err := strconv.Atoi(interval); err == nil && secs > 0 {
			c.Monitor.PollIntervalSecs = secs
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	u, err := url.Parse(c.Server.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("invalid URL '%s', must include scheme and host", c.Server.BaseURL),
		})
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("unsupported scheme '%s', must be http or https", u.Scheme),
		})
	}

	if c.Server.RequestTimeoutSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "server.request_timeout_secs",
			Message: "must be positive",
		})
	}

	if c.Monitor.PollIntervalSecs <= 0 {
		errs = append(errs, ValidationError{
			Field:   "monitor.poll_interval_secs",
			Message: "must be positive",
		})
	}

	validThemes := map[string]bool{"auto": true, "dark": true, "light": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: auto, dark, light", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
