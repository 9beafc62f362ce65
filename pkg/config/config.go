// Package config handles configuration for maestro-ios-core.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves a value unset.
const (
	DefaultDaemonURL               = "http://127.0.0.1:22087"
	DefaultConnectTimeout          = 10 * time.Second
	DefaultRequestTimeout          = 30 * time.Second
	DefaultInteractionIdleTimeout  = 10.0 // seconds
	DefaultAnimationCoolOffTimeout = 2.0  // seconds
	DefaultPollInterval            = 100 * time.Millisecond
)

// Config represents the workspace configuration (config.yaml).
type Config struct {
	Daemon  DaemonConfig `yaml:"daemon"`
	Idle    IdleConfig   `yaml:"idle"`
	LogFile string       `yaml:"logFile"` // Empty = <home>/logs/maestro-ios-core.log
}

// DaemonConfig describes how to reach the on-device test runner.
type DaemonConfig struct {
	URL            string        `yaml:"url"`
	UDID           string        `yaml:"udid"`           // Attached device to verify before dialing
	ConnectTimeout time.Duration `yaml:"connectTimeout"` // Bound on (re)connection attempts
	RequestTimeout time.Duration `yaml:"requestTimeout"` // Per-RPC HTTP timeout
}

// IdleConfig holds the idling policy. Pointers distinguish "unset" from 0 (disabled).
type IdleConfig struct {
	InteractionTimeout      *float64      `yaml:"interactionTimeout"`      // seconds
	AnimationCoolOffTimeout *float64      `yaml:"animationCoolOffTimeout"` // seconds
	PollInterval            time.Duration `yaml:"pollInterval"`
}

// Default returns a config with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// LoadFromDir looks for config.yaml or config.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try config.yaml first
	configPath := filepath.Join(dir, "config.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// Try config.yml
	configPath = filepath.Join(dir, "config.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, return defaults
	return Default(), nil
}

// Validate rejects values that can never be applied.
func (c *Config) Validate() error {
	if t := c.Idle.InteractionTimeout; t != nil && *t < 0 {
		return fmt.Errorf("idle.interactionTimeout must be >= 0, got %v", *t)
	}
	if t := c.Idle.AnimationCoolOffTimeout; t != nil && *t < 0 {
		return fmt.Errorf("idle.animationCoolOffTimeout must be >= 0, got %v", *t)
	}
	if c.Idle.PollInterval < 0 {
		return fmt.Errorf("idle.pollInterval must be >= 0, got %s", c.Idle.PollInterval)
	}
	if c.Daemon.ConnectTimeout < 0 || c.Daemon.RequestTimeout < 0 {
		return fmt.Errorf("daemon timeouts must be >= 0")
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Daemon.URL == "" {
		c.Daemon.URL = DefaultDaemonURL
	}
	if c.Daemon.ConnectTimeout == 0 {
		c.Daemon.ConnectTimeout = DefaultConnectTimeout
	}
	if c.Daemon.RequestTimeout == 0 {
		c.Daemon.RequestTimeout = DefaultRequestTimeout
	}
	if c.Idle.InteractionTimeout == nil {
		v := DefaultInteractionIdleTimeout
		c.Idle.InteractionTimeout = &v
	}
	if c.Idle.AnimationCoolOffTimeout == nil {
		v := DefaultAnimationCoolOffTimeout
		c.Idle.AnimationCoolOffTimeout = &v
	}
	if c.Idle.PollInterval == 0 {
		c.Idle.PollInterval = DefaultPollInterval
	}
	if c.LogFile == "" {
		c.LogFile = GetLogPath()
	}
}
