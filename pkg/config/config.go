// Package config holds tunables for the lidar session and its buffers.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration.
type Config struct {
	LogLevel string `yaml:"log_level" default:"info"`

	// DiscoveryBuffer is the capacity of the discovery event channel.
	DiscoveryBuffer int `yaml:"discovery_buffer" default:"16"`

	// DataBuffer is the per-stream capacity of the decoded packet channel.
	// When full, the oldest packet is dropped.
	DataBuffer int `yaml:"data_buffer" default:"256"`

	// StatePollInterval is the interval used by state waiters between reads
	// of the device state table.
	StatePollInterval time.Duration `yaml:"state_poll_interval" default:"1ms"`
}

// Default returns the default configuration values.
func Default() *Config {
	c := &Config{}
	defaults.SetDefaults(c)
	return c
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (*Config, error) {
	c := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects values the session cannot operate with.
func (c *Config) Validate() error {
	if c.DiscoveryBuffer <= 0 {
		return fmt.Errorf("discovery_buffer must be > 0, got %d", c.DiscoveryBuffer)
	}
	if c.DataBuffer <= 0 {
		return fmt.Errorf("data_buffer must be > 0, got %d", c.DataBuffer)
	}
	if c.StatePollInterval <= 0 {
		return fmt.Errorf("state_poll_interval must be > 0, got %s", c.StatePollInterval)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return nil
}

// NewLogger creates a configured logger instance.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
