package pool

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/coxlong/zap/internal/platform"
)

const (
	DefaultMinIdle  = 2
	DefaultMaxTotal = 10
	DefaultTTL      = 5 * time.Minute
	DefaultView     = "default"

	// DefaultMinGCInterval is the floor for the GC sweep interval.
	DefaultMinGCInterval = time.Minute
)

// Config is the immutable pool configuration.
//
// MaxTotal bounds the idle queue only; callers can always acquire a window,
// creating a new one when the queue is empty.
type Config struct {
	MinIdle     int
	MaxTotal    int
	TTL         time.Duration
	DefaultSize platform.Size
	MaxSize     platform.Size
	// DefaultView is the neutral view replenished windows are bound to.
	DefaultView string
}

// DefaultConfig returns the launcher's stock pool settings.
func DefaultConfig() Config {
	return Config{
		MinIdle:     DefaultMinIdle,
		MaxTotal:    DefaultMaxTotal,
		TTL:         DefaultTTL,
		DefaultSize: platform.Size{Width: 800, Height: 600},
		MaxSize:     platform.Size{Width: 2000, Height: 1500},
		DefaultView: DefaultView,
	}
}

// Normalize validates c and returns the effective configuration.
//
// MinIdle larger than MaxTotal is clamped down to MaxTotal, since replenished
// windows beyond MaxTotal could never be queued.
func (c Config) Normalize() (Config, error) {
	if c.MinIdle < 0 {
		return c, &ConfigError{Field: "min_idle", Err: fmt.Errorf("must be >= 0")}
	}
	if c.MaxTotal < 0 {
		return c, &ConfigError{Field: "max_total", Err: fmt.Errorf("must be >= 0")}
	}
	if c.TTL <= 0 {
		return c, &ConfigError{Field: "ttl", Err: fmt.Errorf("must be > 0")}
	}
	if c.DefaultSize.Width <= 0 || c.DefaultSize.Height <= 0 {
		return c, &ConfigError{Field: "default_size", Err: fmt.Errorf("width and height must be > 0")}
	}
	if c.MaxSize.Width <= 0 || c.MaxSize.Height <= 0 {
		return c, &ConfigError{Field: "max_size", Err: fmt.Errorf("width and height must be > 0")}
	}
	if c.MinIdle > c.MaxTotal {
		c.MinIdle = c.MaxTotal
	}
	c.DefaultSize = clampSize(c.DefaultSize, c.MaxSize)
	if strings.TrimSpace(c.DefaultView) == "" {
		c.DefaultView = DefaultView
	}
	return c, nil
}

// GCInterval returns how often idle windows are swept: ten chances per TTL
// window, but never more often than floor.
func GCInterval(ttl, floor time.Duration) time.Duration {
	interval := ttl / 10
	if interval < floor {
		return floor
	}
	return interval
}

func clampSize(size, limit platform.Size) platform.Size {
	return platform.Size{
		Width:  min(size.Width, limit.Width),
		Height: min(size.Height, limit.Height),
	}
}

// Options carries the pool's collaborators. The zero value is usable.
type Options struct {
	Logger   *slog.Logger
	Recorder Recorder
	// MinGCInterval overrides DefaultMinGCInterval.
	MinGCInterval time.Duration
	// Now overrides time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.MinGCInterval <= 0 {
		o.MinGCInterval = DefaultMinGCInterval
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
