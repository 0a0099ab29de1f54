package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvStreamEnabled = "POLYMARKET_WS_ENABLED"
	EnvFeedURL       = "POLYMARKET_WS_URL"
	EnvGammaURL      = "POLYMARKET_API_BASE"
	EnvPort          = "PORT"
)

// Load reads a YAML config file and expands environment variables.
// An empty path yields a config built from the environment alone.
func Load(path string) (*ServerConfig, error) {
	var cfg ServerConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Expand ${VAR} environment variables
		expanded := os.ExpandEnv(string(data))

		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*ServerConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*ServerConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *ServerConfig) applyEnv() error {
	// Only the literal "true" enables the stream; any other value disables it.
	if v, ok := os.LookupEnv(EnvStreamEnabled); ok {
		c.Stream.Enabled = v == "true"
	}
	if v := os.Getenv(EnvFeedURL); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv(EnvGammaURL); v != "" {
		c.API.GammaURL = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", EnvPort, err)
		}
		c.HTTP.Port = port
	}
	return nil
}
