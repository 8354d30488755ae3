// Package config loads server settings from an optional YAML file
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

// Config holds every server setting
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	WSPort       int           `yaml:"ws_port"`
	LobbyCount   int           `yaml:"lobby_count"`
	Marker       string        `yaml:"marker"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	MaxMalformed int           `yaml:"max_malformed"`
	NATSURL      string        `yaml:"nats_url"`
	NATSSubject  string        `yaml:"nats_subject"`
	LogLevel     string        `yaml:"log_level"`
	LogFile      string        `yaml:"log_file"`
	LogDir       string        `yaml:"log_dir"`
}

// Default returns the settings used when nothing is configured
func Default() *Config {
	return &Config{
		Host:         "0.0.0.0",
		Port:         10001,
		LobbyCount:   5,
		Marker:       "REV",
		IdleTimeout:  8 * time.Second,
		MaxMalformed: 3,
		NATSSubject:  "reversi.events",
		LogLevel:     "INFO",
		LogDir:       "logs",
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.WSPort < 0 || c.WSPort > 65535 {
		errs = append(errs, fmt.Errorf("ws_port out of range: %d", c.WSPort))
	}
	if c.LobbyCount < 1 {
		errs = append(errs, fmt.Errorf("lobby_count must be positive: %d", c.LobbyCount))
	}
	if len(c.Marker) == 0 {
		errs = append(errs, errors.New("marker must not be empty"))
	}
	if c.IdleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("idle_timeout must be positive: %s", c.IdleTimeout))
	}
	if c.MaxMalformed < 0 {
		errs = append(errs, fmt.Errorf("max_malformed must not be negative: %d", c.MaxMalformed))
	}
	return errors.Join(errs...)
}

// Address is the TCP listen address
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// WSAddress is the WebSocket listen address, empty when disabled
func (c *Config) WSAddress() string {
	if c.WSPort == 0 {
		return ""
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.WSPort))
}
