// Package config loads the service configuration from a YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when no --config flag is given.
const DefaultConfigPath = "config.yaml"

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Ledger   LedgerConfig   `yaml:"ledger"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"` // Listen address, default ":8318".
}

// DatabaseConfig configures the backing store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // Postgres DSN or SQLite path.
}

// RedisConfig configures the optional balance cache. An empty addr
// disables caching.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig configures logrus output and rotation.
type LogConfig struct {
	Level      string `yaml:"level"`        // debug, info, warn, error; default info.
	File       string `yaml:"file"`         // Log file path; empty logs to stdout only.
	MaxSizeMB  int    `yaml:"max_size_mb"`  // Rotation threshold, default 100.
	MaxBackups int    `yaml:"max_backups"`  // Rotated files kept, default 3.
	MaxAgeDays int    `yaml:"max_age_days"` // Rotated file retention, default 28.
}

// LedgerConfig carries ledger tunables.
type LedgerConfig struct {
	DefaultExpiryDays      int     `yaml:"default_expiry_days"`      // Payment lot lifetime, default 730.
	CancellationFeePercent float64 `yaml:"cancellation_fee_percent"` // Fee when cancelling from REDEEMED, default 5.
	ExpiringSoonDays       int     `yaml:"expiring_soon_days"`       // Expiring-soon window, default 30.
	SweepIntervalMinutes   int     `yaml:"sweep_interval_minutes"`   // Background sweep cadence, default 60.
}

// ResolveConfigPath normalizes a config path, falling back to the default.
func ResolveConfigPath(path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return DefaultConfigPath
	}
	return filepath.Clean(trimmed)
}

// Load reads and validates a config file.
func Load(path string) (*Config, error) {
	data, errRead := os.ReadFile(path)
	if errRead != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, errRead)
	}
	var cfg Config
	if errDecode := yaml.Unmarshal(data, &cfg); errDecode != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, errDecode)
	}
	cfg.applyDefaults()
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, fmt.Errorf("config: database.dsn is required")
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.Server.Addr) == "" {
		c.Server.Addr = ":8318"
	}
	if strings.TrimSpace(c.Log.Level) == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 28
	}
	if c.Ledger.DefaultExpiryDays <= 0 {
		c.Ledger.DefaultExpiryDays = 730
	}
	if c.Ledger.CancellationFeePercent == 0 {
		c.Ledger.CancellationFeePercent = 5
	}
	if c.Ledger.ExpiringSoonDays <= 0 {
		c.Ledger.ExpiringSoonDays = 30
	}
	if c.Ledger.SweepIntervalMinutes <= 0 {
		c.Ledger.SweepIntervalMinutes = 60
	}
}

// SweepInterval returns the sweep cadence as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Ledger.SweepIntervalMinutes) * time.Minute
}

// ExpiringSoonWindow returns the expiring-soon window as a duration.
func (c *Config) ExpiringSoonWindow() time.Duration {
	return time.Duration(c.Ledger.ExpiringSoonDays) * 24 * time.Hour
}
