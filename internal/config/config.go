// Package config provides YAML-based configuration loading for Gorodok.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Gorodok configuration, loaded from config.yaml.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Storage   StorageConfig   `yaml:"storage"`
	Delivery  DeliveryConfig  `yaml:"delivery"`
	Sessions  SessionsConfig  `yaml:"sessions"`
	Digest    DigestConfig    `yaml:"digest"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// TelegramConfig holds bot credentials and the admin allow-list.
type TelegramConfig struct {
	Token    string  `yaml:"token"`
	AdminIDs []int64 `yaml:"admin_ids"`
}

// StorageConfig selects the database driver and its connection settings.
// SQLite is the default; MySQL is available for shared deployments.
type StorageConfig struct {
	Driver string      `yaml:"driver"` // "sqlite" or "mysql"
	Path   string      `yaml:"path"`   // sqlite file path
	MySQL  MySQLConfig `yaml:"mysql"`
}

// MySQLConfig holds connection settings for the MySQL driver.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// DeliveryConfig tunes outbound send pacing and grouping.
type DeliveryConfig struct {
	SendIntervalMs int `yaml:"send_interval_ms"` // pause between fan-out sends
	PhotoGroupMax  int `yaml:"photo_group_max"`  // max photos per album send
}

// SessionsConfig controls wizard session eviction. A TTL of 0 disables
// eviction entirely; abandoned sessions then live until process restart.
type SessionsConfig struct {
	TTLMin        int `yaml:"ttl_min"`
	SweepEverySec int `yaml:"sweep_every_sec"`
}

// DigestConfig enables the scheduled admin digest.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // 5-field cron expression
}

// DashboardConfig enables the read-only HTTP dashboard.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Telegram.Token == "" {
		c.Telegram.Token = os.Getenv("GORODOK_BOT_TOKEN")
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "gorodok.db"
	}
	if c.Storage.MySQL.Host == "" {
		c.Storage.MySQL.Host = "127.0.0.1"
	}
	if c.Storage.MySQL.Port == 0 {
		c.Storage.MySQL.Port = 3306
	}
	if c.Storage.MySQL.User == "" {
		c.Storage.MySQL.User = "root"
	}
	if c.Storage.MySQL.Database == "" {
		c.Storage.MySQL.Database = "gorodok"
	}
	if c.Delivery.SendIntervalMs == 0 {
		// Bot API allows ~30 msg/s across chats; 40ms keeps a margin.
		c.Delivery.SendIntervalMs = 40
	}
	if c.Delivery.PhotoGroupMax == 0 {
		c.Delivery.PhotoGroupMax = 10
	}
	if c.Sessions.SweepEverySec == 0 {
		c.Sessions.SweepEverySec = 300
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * *"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Telegram.Token == "" {
		errs = append(errs, "telegram.token is required (or set GORODOK_BOT_TOKEN)")
	}
	switch c.Storage.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("storage.driver must be sqlite or mysql, got %q", c.Storage.Driver))
	}
	if c.Delivery.SendIntervalMs < 0 {
		errs = append(errs, "delivery.send_interval_ms must not be negative")
	}
	if c.Sessions.TTLMin < 0 {
		errs = append(errs, "sessions.ttl_min must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendInterval returns the inter-send pacing interval as a duration.
func (c *Config) SendInterval() time.Duration {
	return time.Duration(c.Delivery.SendIntervalMs) * time.Millisecond
}

// SessionTTL returns the session eviction TTL, or 0 if eviction is disabled.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Sessions.TTLMin) * time.Minute
}

// IsAdmin reports whether id is in the configured admin allow-list.
func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.Telegram.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}
