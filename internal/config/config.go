// Package config loads augr's settings from a TOML file and AUGR_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Backend names accepted by the backend key.
const (
	BackendFolder = "folder"
	BackendSQLite = "sqlite"
)

// Config holds the complete application configuration
type Config struct {
	// SyncFolder is the directory shared between devices.
	SyncFolder string `mapstructure:"sync_folder"`
	// DeviceID names this device's meta file. Defaults to the hostname.
	DeviceID string `mapstructure:"device_id"`
	Backend  string `mapstructure:"backend"`
	// Database is the SQLite file used by the sqlite backend.
	Database string `mapstructure:"database"`
	// LogFile, when set, receives logs instead of stderr.
	LogFile string `mapstructure:"log_file"`
}

// DefaultPath returns $XDG_CONFIG_HOME/augr/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error locating config directory: %w", err)
	}
	return filepath.Join(dir, "augr", "config.toml"), nil
}

// DefaultSyncFolder returns $XDG_DATA_HOME/augr, falling back to
// ~/.local/share/augr.
func DefaultSyncFolder() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "augr")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "augr"
	}
	return filepath.Join(home, ".local", "share", "augr")
}

// DefaultDeviceID returns the hostname, or "default" when it is unknown.
func DefaultDeviceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "default"
	}
	return host
}

// Load reads the config file at path and applies environment overrides.
// An empty path means DefaultPath, which may be absent; an explicit path
// must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	v.SetConfigFile(path)
	v.SetConfigType("toml")

	// Read from environment variables prefixed with AUGR_
	v.SetEnvPrefix("AUGR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
		if !missing || explicit {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("sync_folder", DefaultSyncFolder())
	v.SetDefault("device_id", DefaultDeviceID())
	v.SetDefault("backend", BackendFolder)
	v.SetDefault("database", "")
	v.SetDefault("log_file", "")
}

// finish fills derived defaults and checks the result.
func (c *Config) finish() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendFolder, BackendSQLite:
	default:
		return fmt.Errorf("invalid backend %q: must be %s or %s", c.Backend, BackendFolder, BackendSQLite)
	}
	if c.SyncFolder == "" {
		return errors.New("sync_folder is empty")
	}
	if c.DeviceID == "" {
		c.DeviceID = DefaultDeviceID()
	}
	if c.Database == "" {
		c.Database = filepath.Join(c.SyncFolder, "augr.db")
	}
	return nil
}
