package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawSize struct {
	Width  *int `yaml:"width"`
	Height *int `yaml:"height"`
}

type RawPool struct {
	MinIdle     *int     `yaml:"min_idle"`
	MaxTotal    *int     `yaml:"max_total"`
	TTL         *string  `yaml:"ttl"`
	DefaultSize *RawSize `yaml:"default_size"`
	MaxSize     *RawSize `yaml:"max_size"`
	DefaultView *string  `yaml:"default_view"`
}

type RawLogging struct {
	Enabled   *bool   `yaml:"enabled"`
	Level     *string `yaml:"level"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

// RawConfig is one file's worth of settings. Nil fields were not set.
type RawConfig struct {
	Include IncludeList `yaml:"include"`

	Pool          *RawPool           `yaml:"pool"`
	Hotkeys       *map[string]Hotkey `yaml:"hotkeys"`
	LogLevel      *string            `yaml:"log_level"`
	Display       *string            `yaml:"display"`
	MetricsListen *string            `yaml:"metrics_listen"`
	Logging       *RawLogging        `yaml:"logging"`
}

// merge returns r with every field set in o applied over it.
func (r RawConfig) merge(o RawConfig) RawConfig {
	out := r
	out.Include = nil

	if o.Pool != nil {
		out.Pool = mergeRawPool(out.Pool, o.Pool)
	}
	if o.Hotkeys != nil {
		// A later file replaces the whole map so bindings can be removed.
		m := make(map[string]Hotkey, len(*o.Hotkeys))
		for k, v := range *o.Hotkeys {
			m[k] = v
		}
		out.Hotkeys = &m
	}
	if o.LogLevel != nil {
		out.LogLevel = o.LogLevel
	}
	if o.Display != nil {
		out.Display = o.Display
	}
	if o.MetricsListen != nil {
		out.MetricsListen = o.MetricsListen
	}
	if o.Logging != nil {
		out.Logging = mergeRawLogging(out.Logging, o.Logging)
	}
	return out
}

func mergeRawPool(base, o *RawPool) *RawPool {
	out := RawPool{}
	if base != nil {
		out = *base
	}
	if o.MinIdle != nil {
		out.MinIdle = o.MinIdle
	}
	if o.MaxTotal != nil {
		out.MaxTotal = o.MaxTotal
	}
	if o.TTL != nil {
		out.TTL = o.TTL
	}
	if o.DefaultSize != nil {
		out.DefaultSize = mergeRawSize(out.DefaultSize, o.DefaultSize)
	}
	if o.MaxSize != nil {
		out.MaxSize = mergeRawSize(out.MaxSize, o.MaxSize)
	}
	if o.DefaultView != nil {
		out.DefaultView = o.DefaultView
	}
	return &out
}

func mergeRawSize(base, o *RawSize) *RawSize {
	out := RawSize{}
	if base != nil {
		out = *base
	}
	if o.Width != nil {
		out.Width = o.Width
	}
	if o.Height != nil {
		out.Height = o.Height
	}
	return &out
}

func mergeRawLogging(base, o *RawLogging) *RawLogging {
	out := RawLogging{}
	if base != nil {
		out = *base
	}
	if o.Enabled != nil {
		out.Enabled = o.Enabled
	}
	if o.Level != nil {
		out.Level = o.Level
	}
	if o.File != nil {
		out.File = o.File
	}
	if o.MaxSizeMB != nil {
		out.MaxSizeMB = o.MaxSizeMB
	}
	if o.MaxFiles != nil {
		out.MaxFiles = o.MaxFiles
	}
	return &out
}
