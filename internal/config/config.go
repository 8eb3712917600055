package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/coxlong/zap/internal/eventlog"
	"github.com/coxlong/zap/internal/platform"
	"github.com/coxlong/zap/internal/pool"
)

const (
	// DefaultSearchHotkey opens the search view, the launcher's main entry point.
	DefaultSearchHotkey = "Mod4-space"
	DefaultSearchView   = "search"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// PoolConfig sizes the window pool.
type PoolConfig struct {
	MinIdle     int           `yaml:"min_idle"`
	MaxTotal    int           `yaml:"max_total"`
	TTL         time.Duration `yaml:"ttl"`
	DefaultSize platform.Size `yaml:"default_size"`
	MaxSize     platform.Size `yaml:"max_size"`
	DefaultView string        `yaml:"default_view"`
}

// Hotkey binds a global key sequence to a view.
type Hotkey struct {
	View   string `yaml:"view"`
	Title  string `yaml:"title,omitempty"`
	Width  int    `yaml:"width,omitempty"`
	Height int    `yaml:"height,omitempty"`
}

// LoggingConfig configures the pool event log.
type LoggingConfig struct {
	// Enabled turns pool event logging on/off
	Enabled bool `yaml:"enabled,omitempty"`
	// Level controls logging verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// File is the log file path (default: ~/.local/share/zap/pool-events.log)
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files,omitempty"`
}

type Config struct {
	Pool          PoolConfig        `yaml:"pool"`
	Hotkeys       map[string]Hotkey `yaml:"hotkeys"`
	LogLevel      string            `yaml:"log_level"`
	Display       string            `yaml:"display,omitempty"`
	MetricsListen string            `yaml:"metrics_listen,omitempty"`
	Logging       LoggingConfig     `yaml:"logging,omitempty"`
}

func DefaultConfig() *Config {
	pc := pool.DefaultConfig()
	return &Config{
		Pool: PoolConfig{
			MinIdle:     pc.MinIdle,
			MaxTotal:    pc.MaxTotal,
			TTL:         pc.TTL,
			DefaultSize: pc.DefaultSize,
			MaxSize:     pc.MaxSize,
			DefaultView: pc.DefaultView,
		},
		Hotkeys: map[string]Hotkey{
			DefaultSearchHotkey: {View: DefaultSearchView, Title: "Search"},
		},
		LogLevel: "info",
	}
}

// ToPoolConfig converts the pool section into the pool package's settings.
func (c *Config) ToPoolConfig() pool.Config {
	return pool.Config{
		MinIdle:     c.Pool.MinIdle,
		MaxTotal:    c.Pool.MaxTotal,
		TTL:         c.Pool.TTL,
		DefaultSize: c.Pool.DefaultSize,
		MaxSize:     c.Pool.MaxSize,
		DefaultView: c.Pool.DefaultView,
	}
}

// GetLoggingConfig returns the logging configuration with defaults applied.
func (c *Config) GetLoggingConfig() LoggingConfig {
	if c == nil {
		return LoggingConfig{}
	}
	cfg := c.Logging
	if cfg.File == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = os.Getenv("HOME")
		}
		if home == "" {
			home = "."
		}
		cfg.File = filepath.Join(home, ".local/share/zap/pool-events.log")
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = 3
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	return cfg
}

// EventLogConfig returns the settings for the pool event log.
func (c *Config) EventLogConfig() eventlog.Config {
	lc := c.GetLoggingConfig()
	return eventlog.Config{
		Enabled:   lc.Enabled,
		Level:     eventlog.ParseLogLevel(lc.Level),
		FilePath:  lc.File,
		MaxSizeMB: lc.MaxSizeMB,
		MaxFiles:  lc.MaxFiles,
	}
}

// HotkeyNames returns the bound key sequences in sorted order.
func (c *Config) HotkeyNames() []string {
	keys := make([]string, 0, len(c.Hotkeys))
	for k := range c.Hotkeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *Config) Validate() error {
	if _, err := c.ToPoolConfig().Normalize(); err != nil {
		var cerr *pool.ConfigError
		if errors.As(err, &cerr) {
			return &ValidationError{Path: "pool." + cerr.Field, Err: cerr.Err}
		}
		return &ValidationError{Path: "pool", Err: err}
	}
	if c.Hotkeys == nil {
		return &ValidationError{Path: "hotkeys", Err: fmt.Errorf("hotkeys must not be null")}
	}
	for _, key := range c.HotkeyNames() {
		hk := c.Hotkeys[key]
		if strings.TrimSpace(key) == "" {
			return &ValidationError{Path: "hotkeys", Err: fmt.Errorf("hotkeys contains an empty key sequence")}
		}
		if strings.TrimSpace(hk.View) == "" {
			return &ValidationError{Path: "hotkeys." + key + ".view", Err: fmt.Errorf("view is required")}
		}
		if hk.Width < 0 || hk.Height < 0 {
			return &ValidationError{Path: "hotkeys." + key, Err: fmt.Errorf("width and height must be >= 0")}
		}
	}
	if c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warning" && c.LogLevel != "error" {
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	if c.MetricsListen != "" {
		if _, _, err := net.SplitHostPort(c.MetricsListen); err != nil {
			return &ValidationError{Path: "metrics_listen", Err: fmt.Errorf("metrics_listen must be host:port: %w", err)}
		}
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("logging.level must be one of: debug, info, warn, error")}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}
	return nil
}
