// Package config loads the todoflow YAML configuration with Viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Storage backends selectable via storage.backend.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// StorageConfig selects and locates the persistence backend.
type StorageConfig struct {
	// Backend is "sqlite" or "file".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the database file (sqlite) or JSON document (file).
	// Empty means the default under ~/.config/todoflow.
	Path string `mapstructure:"path" yaml:"path"`
}

// ServerConfig holds settings for the HTTP API server.
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// Token, when non-empty, requires a matching bearer token on all
	// API requests.
	Token string `mapstructure:"token" yaml:"token"`
}

// ViewsConfig holds defaults for the smart views.
type ViewsConfig struct {
	UpcomingDays    int `mapstructure:"upcoming_days" yaml:"upcoming_days"`
	OverdueLookback int `mapstructure:"overdue_lookback" yaml:"overdue_lookback"`
}

// RemindersConfig controls the reminder dispatcher.
type RemindersConfig struct {
	Enabled         bool `mapstructure:"enabled" yaml:"enabled"`
	ScanIntervalSec int  `mapstructure:"scan_interval_sec" yaml:"scan_interval_sec"`
}

// SyncConfig controls pulling changes from a remote todoflow server.
type SyncConfig struct {
	Enabled         bool   `mapstructure:"enabled" yaml:"enabled"`
	RemoteURL       string `mapstructure:"remote_url" yaml:"remote_url"`
	PollIntervalSec int    `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage   StorageConfig   `mapstructure:"storage" yaml:"storage"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Views     ViewsConfig     `mapstructure:"views" yaml:"views"`
	Reminders RemindersConfig `mapstructure:"reminders" yaml:"reminders"`
	Sync      SyncConfig      `mapstructure:"sync" yaml:"sync"`
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/todoflow/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "todoflow", "config.yaml")
}

// DefaultDataDir returns the directory used for storage files when
// storage.path is unset.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "todoflow")
}

func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{
			Backend: BackendSQLite,
		},
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:8787",
		},
		Views: ViewsConfig{
			UpcomingDays:    7,
			OverdueLookback: 30,
		},
		Reminders: RemindersConfig{
			Enabled:         true,
			ScanIntervalSec: 30,
		},
		Sync: SyncConfig{
			PollIntervalSec: 120,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("storage.backend", BackendSQLite)
	v.SetDefault("server.listen_addr", "127.0.0.1:8787")
	v.SetDefault("views.upcoming_days", 7)
	v.SetDefault("views.overdue_lookback", 30)
	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.scan_interval_sec", 30)
	v.SetDefault("sync.poll_interval_sec", 120)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Storage.Backend != BackendSQLite && cfg.Storage.Backend != BackendFile {
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("storage", cfg.Storage)
	v.Set("server", cfg.Server)
	v.Set("views", cfg.Views)
	v.Set("reminders", cfg.Reminders)
	v.Set("sync", cfg.Sync)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
