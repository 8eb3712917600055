package pool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/coxlong/zap/internal/platform"
)

// IdleEntry is a recycled window waiting in the idle queue.
type IdleEntry struct {
	ID         platform.WindowID
	CreatedAt  time.Time
	LastUsedAt time.Time
	UseCount   int
}

// ActiveEntry is a window currently lent to a caller.
type ActiveEntry struct {
	ID         platform.WindowID
	Lease      string
	View       string
	CreatedAt  time.Time
	AcquiredAt time.Time
	UseCount   int
}

// Overrides carries host-specific presentation flags. Nil fields are left
// untouched.
type Overrides struct {
	AlwaysOnTop *bool `json:"always_on_top,omitempty"`
	SkipTaskbar *bool `json:"skip_taskbar,omitempty"`
}

// WindowConfig describes what a window should display and how.
type WindowConfig struct {
	View      string     `json:"view"`
	Title     string     `json:"title,omitempty"`
	Width     int        `json:"width,omitempty"`
	Height    int        `json:"height,omitempty"`
	X         *int       `json:"x,omitempty"`
	Y         *int       `json:"y,omitempty"`
	Overrides *Overrides `json:"overrides,omitempty"`
}

// OpenWindowOptions is the request to acquire and display a window.
type OpenWindowOptions struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Config WindowConfig    `json:"config"`
}

func (o OpenWindowOptions) validate() error {
	if strings.TrimSpace(o.Config.View) == "" {
		return fmt.Errorf("%w: view is required", ErrInvalidOptions)
	}
	if len(o.Data) > 0 && !json.Valid(o.Data) {
		return fmt.Errorf("%w: data is not valid JSON", ErrInvalidOptions)
	}
	return nil
}

// hasPayload reports whether there is caller data worth delivering.
func (o OpenWindowOptions) hasPayload() bool {
	data := bytes.TrimSpace(o.Data)
	return len(data) > 0 && !bytes.Equal(data, []byte("null"))
}

// State is a point-in-time snapshot of the pool.
type State struct {
	PoolSize       int   `json:"pool_size"`
	ActiveCount    int   `json:"active_count"`
	IdleCount      int   `json:"idle_count"`
	TotalCreated   int64 `json:"total_created"`
	TotalReused    int64 `json:"total_reused"`
	TotalDestroyed int64 `json:"total_destroyed"`
}
