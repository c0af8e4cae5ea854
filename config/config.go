package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the bridge server configuration.
type Config struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	Description string   `json:"description"`
	Editor      Endpoint `json:"editor"`
	Runtime     Endpoint `json:"runtime"`
	Timeouts    Timeouts `json:"timeouts"`
	Liveness    Liveness `json:"liveness"`
	Launch      Launch   `json:"launch"`
	Server      Server   `json:"server"`
	Logging     Logging  `json:"logging"`
}

// Endpoint locates one of the two Godot bridge HTTP services.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Timeouts controls HTTP request timing against the Godot bridges.
type Timeouts struct {
	DefaultSeconds float64 `json:"default_seconds" env:"BRIDGE_TIMEOUT_SECONDS"`
	CeilingSeconds float64 `json:"ceiling_seconds" env:"BRIDGE_TIMEOUT_CEILING_SECONDS"`
	ProbeSeconds   float64 `json:"probe_seconds"   env:"BRIDGE_PROBE_SECONDS"`
}

// Liveness controls the runtime reachability cache.
type Liveness struct {
	TTLSeconds float64 `json:"ttl_seconds" env:"BRIDGE_LIVENESS_TTL_SECONDS"`
}

// Launch controls the run-game startup gate.
type Launch struct {
	SettleMillis       int `json:"settle_millis"        env:"BRIDGE_LAUNCH_SETTLE_MILLIS"`
	PollIntervalMillis int `json:"poll_interval_millis" env:"BRIDGE_LAUNCH_POLL_INTERVAL_MILLIS"`
	PollAttempts       int `json:"poll_attempts"        env:"BRIDGE_LAUNCH_POLL_ATTEMPTS"`
}

// Server configures the MCP transport surface.
type Server struct {
	Host  string `json:"host"  env:"BRIDGE_HOST"`
	Port  int    `json:"port"  env:"BRIDGE_PORT"`
	Stdio bool   `json:"stdio" env:"BRIDGE_USE_STDIO"`
	Debug bool   `json:"debug" env:"BRIDGE_DEBUG"`
}

// Logging configures the logger package.
type Logging struct {
	Level  string `json:"level"  env:"BRIDGE_LOG_LEVEL"`
	Format string `json:"format" env:"BRIDGE_LOG_FORMAT"`
	Path   string `json:"path"   env:"BRIDGE_LOG_PATH"`
}

// NewConfig returns a Config populated with defaults. The timeout ceiling must
// stay large enough to cover the blocking wait tools, which compute their own
// request timeout from the requested duration plus headroom.
func NewConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.TempDir()
	}
	return &Config{
		Name:        "godot-agent-bridge",
		Version:     "0.1.0",
		Description: "MCP bridge for driving and observing the Godot editor and running game",
		Editor:      Endpoint{Host: "127.0.0.1", Port: 9899},
		Runtime:     Endpoint{Host: "127.0.0.1", Port: 9900},
		Timeouts: Timeouts{
			DefaultSeconds: 30,
			CeilingSeconds: 120,
			ProbeSeconds:   2,
		},
		Liveness: Liveness{TTLSeconds: 2},
		Launch: Launch{
			SettleMillis:       1500,
			PollIntervalMillis: 250,
			PollAttempts:       60,
		},
		Server: Server{
			Host: "localhost",
			Port: 9080,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
			Path:   filepath.Join(home, ".godot-agent-bridge", "logs", "bridge.log"),
		},
	}
}

// LoadConfig loads configuration from a file, then applies env overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file not found: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Environment variables have the highest priority.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}
	cfg.Normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize canonicalizes config values so downstream validation and runtime
// logic operate on stable representations.
func (c *Config) Normalize() {
	c.Editor.Host = strings.TrimSpace(c.Editor.Host)
	c.Runtime.Host = strings.TrimSpace(c.Runtime.Host)
	c.Server.Host = strings.TrimSpace(c.Server.Host)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Path = strings.TrimSpace(c.Logging.Path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	for _, endpoint := range []struct {
		name string
		ep   Endpoint
	}{{"editor", c.Editor}, {"runtime", c.Runtime}} {
		if endpoint.ep.Host == "" {
			return fmt.Errorf("%s host cannot be empty", endpoint.name)
		}
		if endpoint.ep.Port <= 0 || endpoint.ep.Port > 65535 {
			return fmt.Errorf("invalid %s port %d", endpoint.name, endpoint.ep.Port)
		}
	}

	if c.Timeouts.CeilingSeconds <= 0 {
		return errors.New("timeout ceiling must be positive")
	}
	if c.Timeouts.DefaultSeconds <= 0 || c.Timeouts.DefaultSeconds > c.Timeouts.CeilingSeconds {
		return fmt.Errorf("default timeout %.1fs must be in (0, %.1fs]", c.Timeouts.DefaultSeconds, c.Timeouts.CeilingSeconds)
	}
	if c.Timeouts.ProbeSeconds <= 0 {
		return errors.New("probe timeout must be positive")
	}
	if c.Liveness.TTLSeconds <= 0 {
		return errors.New("liveness TTL must be positive")
	}
	if c.Launch.PollIntervalMillis <= 0 || c.Launch.PollAttempts <= 0 {
		return errors.New("launch poll interval and attempts must be positive")
	}
	if c.Launch.SettleMillis < 0 {
		return errors.New("launch settle delay cannot be negative")
	}

	if c.Server.Host == "" {
		return errors.New("server host cannot be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	if c.Logging.Path == "" {
		return errors.New("log path cannot be empty")
	}
	return nil
}

func (c *Config) DefaultTimeout() time.Duration {
	return time.Duration(c.Timeouts.DefaultSeconds * float64(time.Second))
}

func (c *Config) TimeoutCeiling() time.Duration {
	return time.Duration(c.Timeouts.CeilingSeconds * float64(time.Second))
}

func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Timeouts.ProbeSeconds * float64(time.Second))
}

func (c *Config) LivenessTTL() time.Duration {
	return time.Duration(c.Liveness.TTLSeconds * float64(time.Second))
}

func (c *Config) LaunchSettle() time.Duration {
	return time.Duration(c.Launch.SettleMillis) * time.Millisecond
}

func (c *Config) LaunchPollInterval() time.Duration {
	return time.Duration(c.Launch.PollIntervalMillis) * time.Millisecond
}

// ResolveConfigPath returns the path that should be used for configuration.
func ResolveConfigPath() (string, error) {
	if path := strings.TrimSpace(os.Getenv("BRIDGE_CONFIG_PATH")); path != "" {
		return path, nil
	}

	if _, err := os.Stat("config/bridge_config.json"); err == nil {
		return "config/bridge_config.json", nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".godot-agent-bridge", "config", "bridge_config.json"), nil
}

// EnsureDefaultConfig creates a default config file if one does not exist.
func EnsureDefaultConfig(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path cannot be empty")
	}

	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := NewConfig()
	defaultConfig.Normalize()
	data, err := json.MarshalIndent(defaultConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}
	return nil
}
