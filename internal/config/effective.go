package config

import (
	"fmt"
	"strings"
	"time"
)

// BuildEffectiveConfig applies raw over DefaultConfig.
func BuildEffectiveConfig(raw RawConfig) (*Config, error) {
	cfg := DefaultConfig()

	if raw.Pool != nil {
		if err := applyRawPool(&cfg.Pool, raw.Pool); err != nil {
			return nil, err
		}
	}
	if raw.Hotkeys != nil {
		cfg.Hotkeys = make(map[string]Hotkey, len(*raw.Hotkeys))
		for key, hk := range *raw.Hotkeys {
			cfg.Hotkeys[strings.TrimSpace(key)] = hk
		}
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.Display != nil {
		cfg.Display = *raw.Display
	}
	if raw.MetricsListen != nil {
		cfg.MetricsListen = strings.TrimSpace(*raw.MetricsListen)
	}
	if l := raw.Logging; l != nil {
		if l.Enabled != nil {
			cfg.Logging.Enabled = *l.Enabled
		}
		if l.Level != nil {
			cfg.Logging.Level = strings.ToLower(*l.Level)
		}
		if l.File != nil {
			cfg.Logging.File = *l.File
		}
		if l.MaxSizeMB != nil {
			cfg.Logging.MaxSizeMB = *l.MaxSizeMB
		}
		if l.MaxFiles != nil {
			cfg.Logging.MaxFiles = *l.MaxFiles
		}
	}
	return cfg, nil
}

func applyRawPool(pc *PoolConfig, raw *RawPool) error {
	if raw.MinIdle != nil {
		pc.MinIdle = *raw.MinIdle
	}
	if raw.MaxTotal != nil {
		pc.MaxTotal = *raw.MaxTotal
	}
	if raw.TTL != nil {
		ttl, err := time.ParseDuration(strings.TrimSpace(*raw.TTL))
		if err != nil {
			return &ValidationError{Path: "pool.ttl", Err: fmt.Errorf("invalid duration %q (want e.g. 5m, 90s)", *raw.TTL)}
		}
		pc.TTL = ttl
	}
	if raw.DefaultSize != nil {
		if raw.DefaultSize.Width != nil {
			pc.DefaultSize.Width = *raw.DefaultSize.Width
		}
		if raw.DefaultSize.Height != nil {
			pc.DefaultSize.Height = *raw.DefaultSize.Height
		}
	}
	if raw.MaxSize != nil {
		if raw.MaxSize.Width != nil {
			pc.MaxSize.Width = *raw.MaxSize.Width
		}
		if raw.MaxSize.Height != nil {
			pc.MaxSize.Height = *raw.MaxSize.Height
		}
	}
	if raw.DefaultView != nil {
		pc.DefaultView = strings.TrimSpace(*raw.DefaultView)
	}
	return nil
}
