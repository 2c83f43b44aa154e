// Package config holds the driver configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Configuration errors.
var (
	ErrNoPort = errors.New("hub port is required")
)

// Config configures a hub driver instance.
type Config struct {
	// Host is the hub hostname or IP. Leave empty to discover a hub via
	// mDNS at connect time.
	Host string `yaml:"url"`

	// Port is the hub TCP port, used for both the JSON-RPC endpoint and
	// the streaming socket.
	Port int `yaml:"port"`

	// Players lists the hub-assigned ids of the managed players.
	Players []string `yaml:"players"`

	// ConnectionTimeout bounds each handshake/connect/subscribe attempt
	// (default: 3s).
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`

	// MaxConnectionAttempts is the number of consecutive timeouts before
	// the driver gives up and raises the reconnect notification
	// (default: 3).
	MaxConnectionAttempts int `yaml:"max_connection_attempts"`

	// ProgressInterval is the local playback-position tick interval
	// (default: 500ms).
	ProgressInterval time.Duration `yaml:"progress_interval"`

	// SubscribeSeconds is the hub-side status subscription interval in
	// seconds (default: 60).
	SubscribeSeconds int `yaml:"subscribe_seconds"`
}

// DefaultConfig returns the default driver configuration.
func DefaultConfig() Config {
	return Config{
		Port:                  9000,
		ConnectionTimeout:     3 * time.Second,
		MaxConnectionAttempts: 3,
		ProgressInterval:      500 * time.Millisecond,
		SubscribeSeconds:      60,
	}
}

// Validate checks the configuration and fills defaulted fields.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrNoPort, c.Port)
	}
	if c.ConnectionTimeout == 0 {
		c.ConnectionTimeout = 3 * time.Second
	}
	if c.MaxConnectionAttempts == 0 {
		c.MaxConnectionAttempts = 3
	}
	if c.ProgressInterval == 0 {
		c.ProgressInterval = 500 * time.Millisecond
	}
	if c.SubscribeSeconds == 0 {
		c.SubscribeSeconds = 60
	}
	return nil
}

// Load reads a YAML configuration file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
