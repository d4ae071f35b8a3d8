package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	v1 "github.com/staffline-lab/staffline/internal/api/v1"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Monitor  MonitorConfig  `koanf:"monitor"`
	HR       HRConfig       `koanf:"hr"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// MonitorConfig controls the periodic position monitor.
// DefaultStartDate is the valid_from assigned to employees discovered for the
// first time, so they don't appear to have started on the day the monitor
// first saw them.
type MonitorConfig struct {
	Enabled          bool   `koanf:"enabled"`
	Interval         string `koanf:"interval"`
	DefaultStartDate string `koanf:"default_start_date"`
}

// HRConfig points at the external HR system the monitor observes.
type HRConfig struct {
	BaseURL string `koanf:"base_url"`
	APIKey  string `koanf:"api_key"`
	Timeout string `koanf:"timeout"`
}

// MonitorInterval returns the parsed monitor interval.
// Validate guarantees it parses.
func (c MonitorConfig) MonitorInterval() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

// StartDate returns the parsed default start date.
// Validate guarantees it parses.
func (c MonitorConfig) StartDate() v1.Date {
	d, _ := v1.ParseDate(c.DefaultStartDate)
	return d
}

// HTTPTimeout returns the parsed HR client timeout.
// Validate guarantees it parses.
func (c HRConfig) HTTPTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.MaxBodySizeMB <= 0 {
		return fmt.Errorf("server.max_body_size_mb must be > 0")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	interval, err := time.ParseDuration(c.Monitor.Interval)
	if err != nil {
		return fmt.Errorf("invalid monitor.interval %q: %w", c.Monitor.Interval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("monitor.interval must be > 0")
	}
	if _, err := v1.ParseDate(c.Monitor.DefaultStartDate); err != nil {
		return fmt.Errorf("invalid monitor.default_start_date: %w", err)
	}

	if c.Monitor.Enabled && strings.TrimSpace(c.HR.BaseURL) == "" {
		return fmt.Errorf("hr.base_url is required when monitor.enabled is true")
	}
	timeout, err := time.ParseDuration(c.HR.Timeout)
	if err != nil {
		return fmt.Errorf("invalid hr.timeout %q: %w", c.HR.Timeout, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("hr.timeout must be > 0")
	}

	return nil
}

// Load parses config from defaults, an optional YAML file, and STAFFLINE_*
// environment variables (double underscore maps to nesting, e.g.
// STAFFLINE_DATABASE__DSN), then validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                8080,
		"server.host":                "0.0.0.0",
		"server.max_body_size_mb":    1,
		"server.mode":                "release",
		"database.dsn":               "",
		"database.max_open_conns":    25,
		"database.max_idle_conns":    25,
		"database.auto_migrate":      true,
		"monitor.enabled":            true,
		"monitor.interval":           "24h",
		"monitor.default_start_date": "2020-01-01",
		"hr.base_url":                "",
		"hr.api_key":                 "",
		"hr.timeout":                 "30s",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("STAFFLINE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "STAFFLINE_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
