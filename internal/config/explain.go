package config

import (
	"fmt"
	"strings"

	"github.com/coxlong/zap/internal/platform"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths include:
//
//	pool.min_idle
//	pool.ttl
//	pool.default_size.width
//	hotkeys
//	hotkeys.<keys>.view
//	log_level
//	display
//	metrics_listen
//	logging.file
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}
	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	unknown := fmt.Errorf("unknown config path %q", path)

	switch parts[0] {
	case "pool":
		if len(parts) == 1 {
			return cfg.Pool, nil
		}
		return lookupPool(cfg.Pool, parts[1:], unknown)
	case "hotkeys":
		if len(parts) == 1 {
			return cfg.Hotkeys, nil
		}
		// Key sequences never contain dots, so the binding is parts[1].
		hk, ok := cfg.Hotkeys[parts[1]]
		if !ok {
			return nil, fmt.Errorf("no hotkey bound to %q", parts[1])
		}
		if len(parts) == 2 {
			return hk, nil
		}
		if len(parts) != 3 {
			return nil, unknown
		}
		switch parts[2] {
		case "view":
			return hk.View, nil
		case "title":
			return hk.Title, nil
		case "width":
			return hk.Width, nil
		case "height":
			return hk.Height, nil
		}
		return nil, unknown
	case "log_level":
		if len(parts) == 1 {
			return cfg.LogLevel, nil
		}
	case "display":
		if len(parts) == 1 {
			return cfg.Display, nil
		}
	case "metrics_listen":
		if len(parts) == 1 {
			return cfg.MetricsListen, nil
		}
	case "logging":
		lc := cfg.GetLoggingConfig()
		if len(parts) == 1 {
			return lc, nil
		}
		if len(parts) != 2 {
			return nil, unknown
		}
		switch parts[1] {
		case "enabled":
			return lc.Enabled, nil
		case "level":
			return lc.Level, nil
		case "file":
			return lc.File, nil
		case "max_size_mb":
			return lc.MaxSizeMB, nil
		case "max_files":
			return lc.MaxFiles, nil
		}
	}
	return nil, unknown
}

func lookupPool(pc PoolConfig, parts []string, unknown error) (any, error) {
	if len(parts) == 2 {
		var size platform.Size
		switch parts[0] {
		case "default_size":
			size = pc.DefaultSize
		case "max_size":
			size = pc.MaxSize
		default:
			return nil, unknown
		}
		switch parts[1] {
		case "width":
			return size.Width, nil
		case "height":
			return size.Height, nil
		}
		return nil, unknown
	}
	if len(parts) != 1 {
		return nil, unknown
	}
	switch parts[0] {
	case "min_idle":
		return pc.MinIdle, nil
	case "max_total":
		return pc.MaxTotal, nil
	case "ttl":
		return pc.TTL.String(), nil
	case "default_size":
		return pc.DefaultSize, nil
	case "max_size":
		return pc.MaxSize, nil
	case "default_view":
		return pc.DefaultView, nil
	}
	return nil, unknown
}
