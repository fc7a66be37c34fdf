// Package config loads the stacktester configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "stacktester.yaml"

// Redis configures the Redis store.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Config is the stacktester configuration.
type Config struct {
	Store       string `yaml:"store"`
	Redis       Redis  `yaml:"redis"`
	Prefix      string `yaml:"prefix"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Store: StoreMemory,
		Redis: Redis{
			Addr:   "localhost:6379",
			Prefix: "stacktester:",
		},
		LogLevel: "info",
	}
}

// Load reads the configuration at path on top of Default.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the store selection.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreRedis:
		return nil
	}
	return fmt.Errorf("unknown store %q (want %s or %s)", c.Store, StoreMemory, StoreRedis)
}
