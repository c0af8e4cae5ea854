package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, cfg *Config) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(t.TempDir(), "bridge_config.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := NewConfig()
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config valid, got %v", err)
	}
	if cfg.Editor.Port != 9899 || cfg.Runtime.Port != 9900 {
		t.Fatalf("unexpected default ports %d/%d", cfg.Editor.Port, cfg.Runtime.Port)
	}
	if cfg.TimeoutCeiling() != 120*time.Second {
		t.Fatalf("expected 120s ceiling, got %s", cfg.TimeoutCeiling())
	}
	if cfg.LivenessTTL() != 2*time.Second {
		t.Fatalf("expected 2s liveness TTL, got %s", cfg.LivenessTTL())
	}
	if cfg.LaunchSettle() != 1500*time.Millisecond || cfg.LaunchPollInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected launch timing %s/%s", cfg.LaunchSettle(), cfg.LaunchPollInterval())
	}
}

func TestLoadConfigAppliesEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, NewConfig())
	t.Setenv("BRIDGE_LOG_LEVEL", "DEBUG")
	t.Setenv("BRIDGE_TIMEOUT_SECONDS", "45")
	t.Setenv("BRIDGE_USE_STDIO", "true")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected env log level normalized to debug, got %q", cfg.Logging.Level)
	}
	if cfg.Timeouts.DefaultSeconds != 45 {
		t.Fatalf("expected env timeout override, got %v", cfg.Timeouts.DefaultSeconds)
	}
	if !cfg.Server.Stdio {
		t.Fatal("expected stdio enabled via env")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty editor host", func(c *Config) { c.Editor.Host = "" }},
		{"bad runtime port", func(c *Config) { c.Runtime.Port = 0 }},
		{"default above ceiling", func(c *Config) { c.Timeouts.DefaultSeconds = 500 }},
		{"zero ceiling", func(c *Config) { c.Timeouts.CeilingSeconds = 0 }},
		{"zero liveness TTL", func(c *Config) { c.Liveness.TTLSeconds = 0 }},
		{"zero poll attempts", func(c *Config) { c.Launch.PollAttempts = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			cfg.Normalize()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}
}

func TestEnsureDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "bridge_config.json")
	if err := EnsureDefaultConfig(path); err != nil {
		t.Fatalf("ensure default config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load created config: %v", err)
	}
	if cfg.Name != "godot-agent-bridge" {
		t.Fatalf("unexpected name %q", cfg.Name)
	}

	// Second call must keep the existing file.
	if err := EnsureDefaultConfig(path); err != nil {
		t.Fatalf("ensure existing config: %v", err)
	}
}
