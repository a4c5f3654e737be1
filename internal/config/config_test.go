// Copyright (c) 2025 Loom Authors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadFromPathMissingFile(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	def := Default()
	if cfg.Server.BaseURL != def.Server.BaseURL {
		t.Errorf("BaseURL = %q, want default %q", cfg.Server.BaseURL, def.Server.BaseURL)
	}
	if cfg.Monitor.PollIntervalSecs != def.Monitor.PollIntervalSecs {
		t.Errorf("PollIntervalSecs = %d, want %d", cfg.Monitor.PollIntervalSecs, def.Monitor.PollIntervalSecs)
	}
}

func TestLoadFromPathSparseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[server]\nbase_url = \"http://example.com:9000\"\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.BaseURL != "http://example.com:9000" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	// Missing fields fall back to defaults.
	if cfg.Server.RequestTimeoutSecs != Default().Server.RequestTimeoutSecs {
		t.Errorf("RequestTimeoutSecs = %d, want default", cfg.Server.RequestTimeoutSecs)
	}
	if cfg.UI.Theme != "auto" {
		t.Errorf("Theme = %q, want auto", cfg.UI.Theme)
	}
}

func TestLoadFromPathInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[[[[not toml"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "https://loom.internal:8443"
	cfg.UI.Theme = "dark"
	cfg.CLI.HistoryEnabled = false

	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Server.BaseURL != cfg.Server.BaseURL {
		t.Errorf("BaseURL = %q, want %q", loaded.Server.BaseURL, cfg.Server.BaseURL)
	}
	if loaded.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want dark", loaded.UI.Theme)
	}
	if loaded.CLI.HistoryEnabled {
		t.Error("HistoryEnabled = true, want false")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LOOM_SERVER_URL", "http://override:1234")
	t.Setenv("LOOM_THEME", "light")
	t.Setenv("LOOM_POLL_INTERVAL", "7")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "http://override:1234" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
	if cfg.Monitor.PollIntervalSecs != 7 {
		t.Errorf("PollIntervalSecs = %d", cfg.Monitor.PollIntervalSecs)
	}
}

func TestApplyEnvOverridesIgnoresBadInterval(t *testing.T) {
	t.Setenv("LOOM_POLL_INTERVAL", "not-a-number")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Monitor.PollIntervalSecs != Default().Monitor.PollIntervalSecs {
		t.Errorf("PollIntervalSecs = %d, want default", cfg.Monitor.PollIntervalSecs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid default", func(c *Config) {}, ""},
		{"missing scheme", func(c *Config) { c.Server.BaseURL = "localhost:8000" }, "server.base_url"},
		{"bad scheme", func(c *Config) { c.Server.BaseURL = "ftp://host" }, "server.base_url"},
		{"zero timeout", func(c *Config) { c.Server.RequestTimeoutSecs = 0 }, "server.request_timeout_secs"},
		{"zero poll interval", func(c *Config) { c.Monitor.PollIntervalSecs = 0 }, "monitor.poll_interval_secs"},
		{"unknown theme", func(c *Config) { c.UI.Theme = "solarized" }, "ui.theme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate: %v, want nil", err)
				}
				return
			}
			var errs ValidateErrors
			if !errors.As(err, &errs) {
				t.Fatalf("Validate error = %T, want ValidateErrors", err)
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("no error for field %q in %v", tt.wantField, errs)
			}
		})
	}
}

func TestWatchDeliversReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, SaveToPath(Default(), path))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := Watch(ctx, path)
	require.NoError(t, err)

	cfg := Default()
	cfg.Server.BaseURL = "http://changed:9999"
	require.NoError(t, SaveToPath(cfg, path))

	select {
	case got, ok := <-updates:
		require.True(t, ok, "update channel closed early")
		require.Equal(t, "http://changed:9999", got.Server.BaseURL)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}

	// Cancellation closes the channel, possibly after draining a buffered
	// reload.
	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-updates:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for channel close")
		}
	}
}
