// Package config handles roomlist configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Settings backends for per-tag sort preferences.
const (
	SettingsBackendMemory = "memory"
	SettingsBackendFile   = "file"
	SettingsBackendSQLite = "sqlite"
)

// Config is the root configuration structure.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Database settings
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Room list engine settings
	RoomList RoomListConfig `yaml:"room_list" mapstructure:"room_list"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DataDir is where roomlist stores its data (default: ~/.local/share/roomlist).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/roomlist).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// DatabaseConfig contains database settings for the sqlite settings backend.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeoutMs is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`

	// WriteAttempts is how many times a settings write is tried while the
	// database stays busy past the busy timeout.
	WriteAttempts int `yaml:"write_attempts" mapstructure:"write_attempts"`

	// RetryBackoff is the first pause between write attempts. It doubles
	// after each busy failure.
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// RoomListConfig controls the room list engine.
type RoomListConfig struct {
	// CustomTags surfaces user-defined tags as their own buckets.
	CustomTags bool `yaml:"custom_tags" mapstructure:"custom_tags"`

	// RetryDelay is how long to wait before retrying an event for an unknown room.
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`

	// SettingsBackend is where per-tag sort preferences live (memory, file, sqlite).
	SettingsBackend string `yaml:"settings_backend" mapstructure:"settings_backend"`

	// SettingsFile is the JSON file used by the file backend.
	SettingsFile string `yaml:"settings_file" mapstructure:"settings_file"`

	// SaveDebounce delays background writes of the file backend.
	SaveDebounce time.Duration `yaml:"save_debounce" mapstructure:"save_debounce"`

	// WatchSettings reloads the settings file when it changes on disk.
	WatchSettings bool `yaml:"watch_settings" mapstructure:"watch_settings"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowCounts renders unread counters next to room names.
	ShowCounts bool `yaml:"show_counts" mapstructure:"show_counts"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "roomlist"),
			ConfigDir: filepath.Join(homeDir, ".config", "roomlist"),
		},
		Database: DatabaseConfig{
			Path:          "", // Will be set to DataDir/roomlist.db
			BusyTimeoutMs: 5000,
			WriteAttempts: 3,
			RetryBackoff:  50 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		RoomList: RoomListConfig{
			CustomTags:      false,
			RetryDelay:      100 * time.Millisecond,
			SettingsBackend: SettingsBackendFile,
			SettingsFile:    "", // Will be set to DataDir/settings.json
			SaveDebounce:    time.Second,
			WatchSettings:   true,
		},
		TUI: TUIConfig{
			Theme:      "default",
			ShowCounts: true,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative")
	}
	if c.Database.WriteAttempts < 0 {
		return fmt.Errorf("database.write_attempts must not be negative")
	}
	if c.Database.RetryBackoff < 0 {
		return fmt.Errorf("database.retry_backoff must not be negative")
	}
	if c.RoomList.RetryDelay < 0 {
		return fmt.Errorf("room_list.retry_delay must not be negative")
	}
	if c.RoomList.SaveDebounce < 0 {
		return fmt.Errorf("room_list.save_debounce must not be negative")
	}

	switch c.RoomList.SettingsBackend {
	case SettingsBackendMemory:
	case SettingsBackendFile:
		if c.SettingsFilePath() == "" {
			return fmt.Errorf("room_list.settings_file or global.data_dir is required for the file backend")
		}
	case SettingsBackendSQLite:
		if c.DatabasePath() == "" {
			return fmt.Errorf("database.path or global.data_dir is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("room_list.settings_backend must be one of memory, file, sqlite")
	}

	switch c.TUI.Theme {
	case "default", "high-contrast":
	default:
		return fmt.Errorf("tui.theme must be one of default, high-contrast")
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Global.DataDir, c.Global.ConfigDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	if c.Global.DataDir == "" {
		return ""
	}
	return filepath.Join(c.Global.DataDir, "roomlist.db")
}

// SettingsFilePath returns the full path of the JSON settings file.
func (c *Config) SettingsFilePath() string {
	if c.RoomList.SettingsFile != "" {
		return c.RoomList.SettingsFile
	}
	if c.Global.DataDir == "" {
		return ""
	}
	return filepath.Join(c.Global.DataDir, "settings.json")
}
