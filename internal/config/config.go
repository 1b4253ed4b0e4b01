// Package config loads and validates application configuration from
// YAML, with environment variable expansion so credentials never need
// to live in the file itself.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Tier    TierConfig    `yaml:"tier" json:"tier"`
	Fetch   FetchConfig   `yaml:"fetch" json:"fetch"`
	Server  ServerConfig  `yaml:"server" json:"server"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// StorageConfig selects and parameterizes the record store backend.
type StorageConfig struct {
	// Driver is one of: memory, file, sqlite, postgres, mysql, mongodb.
	Driver string `yaml:"driver" json:"driver"`
	// Path is the store file for the file and sqlite drivers.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// DSN is the connection string for postgres, mysql and mongodb.
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`
	// Database and Collection scope the mongodb driver.
	Database   string `yaml:"database,omitempty" json:"database,omitempty"`
	Collection string `yaml:"collection,omitempty" json:"collection,omitempty"`

	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// TierConfig seeds the account tier for fresh stores.
type TierConfig struct {
	Premium        bool `yaml:"premium" json:"premium"`
	MaxFreeRecords int  `yaml:"max_free_records" json:"max_free_records"`
}

// FetchConfig controls page retrieval.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	UserAgent string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	// RatePerSecond caps outgoing requests; zero means unlimited.
	RatePerSecond float64 `yaml:"rate_per_second,omitempty" json:"rate_per_second,omitempty"`
	// Render fetches pages through a headless browser so
	// script-assembled content is visible to extraction.
	Render bool `yaml:"render" json:"render"`
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr" json:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty" json:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty" json:"write_timeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty" json:"shutdown_timeout,omitempty"`
}

var validDrivers = map[string]bool{
	"memory":   true,
	"file":     true,
	"sqlite":   true,
	"postgres": true,
	"mysql":    true,
	"mongodb":  true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// DefaultConfig returns a configuration that works with no file at
// all: a local file-backed store and a loopback server address.
func DefaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Environment
// variables referenced as ${VAR} are expanded before parsing.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	return LoadFromBytes(data)
}

func applyDefaults(cfg *Config) {
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "file"
	}
	if cfg.Storage.Driver == "file" && cfg.Storage.Path == "" {
		cfg.Storage.Path = "progscout.json"
	}
	if cfg.Storage.Timeout == 0 {
		cfg.Storage.Timeout = 5 * time.Second
	}
	if cfg.Storage.Database == "" {
		cfg.Storage.Database = "progscout"
	}
	if cfg.Storage.Collection == "" {
		cfg.Storage.Collection = "progscout_kv"
	}

	if cfg.Tier.MaxFreeRecords == 0 {
		cfg.Tier.MaxFreeRecords = 3
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 30 * time.Second
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "ProgScout/1.0 (+https://github.com/progscout/progscout)"
	}

	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1:8089"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	driver := strings.ToLower(c.Storage.Driver)
	if !validDrivers[driver] {
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}
	switch driver {
	case "file", "sqlite":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage driver %s requires a path", driver)
		}
	case "postgres", "mysql", "mongodb":
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage driver %s requires a dsn", driver)
		}
	}

	if c.Tier.MaxFreeRecords < 1 {
		return fmt.Errorf("max_free_records must be at least 1")
	}
	if c.Fetch.RatePerSecond < 0 {
		return fmt.Errorf("rate_per_second cannot be negative")
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}
	return nil
}

// SaveToFile writes the configuration as YAML.
func SaveToFile(cfg *Config, filename string) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}
	return nil
}
