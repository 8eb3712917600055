package mcp

// OpenWindowInput is the input for the open_window tool.
type OpenWindowInput struct {
	View        string `json:"view" jsonschema:"View to display in the window (e.g. search, settings)"`
	Title       string `json:"title,omitempty" jsonschema:"Window title"`
	Width       int    `json:"width,omitempty" jsonschema:"Window width in pixels; clamped to the pool's max_size"`
	Height      int    `json:"height,omitempty" jsonschema:"Window height in pixels; clamped to the pool's max_size"`
	X           *int   `json:"x,omitempty" jsonschema:"Left edge in root coordinates. Needs y; the window is centered on the active monitor otherwise."`
	Y           *int   `json:"y,omitempty" jsonschema:"Top edge in root coordinates. Needs x."`
	Data        any    `json:"data,omitempty" jsonschema:"Optional JSON payload delivered to the view once it is shown"`
	AlwaysOnTop *bool  `json:"always_on_top,omitempty" jsonschema:"Keep the window above others"`
	SkipTaskbar *bool  `json:"skip_taskbar,omitempty" jsonschema:"Hide the window from taskbars and pagers"`
	Wait        *bool  `json:"wait,omitempty" jsonschema:"Wait until the window is configured and shown (default: true)"`
}

// OpenWindowOutput is the output for the open_window tool.
type OpenWindowOutput struct {
	WindowID   uint32 `json:"window_id"`
	Lease      string `json:"lease"`
	Configured bool   `json:"configured"`
}

// ReleaseWindowInput is the input for the release_window tool.
type ReleaseWindowInput struct {
	WindowID uint32 `json:"window_id" jsonschema:"Window id returned by open_window"`
}

// ReleaseWindowOutput is the output for the release_window tool.
type ReleaseWindowOutput struct {
	Released bool `json:"released"`
}

// PoolStateInput is the (empty) input for the pool_state tool.
type PoolStateInput struct{}

// PoolStateOutput is the output for the pool_state tool.
type PoolStateOutput struct {
	Initialized    bool  `json:"initialized"`
	PoolSize       int   `json:"pool_size"`
	ActiveCount    int   `json:"active_count"`
	IdleCount      int   `json:"idle_count"`
	TotalCreated   int64 `json:"total_created"`
	TotalReused    int64 `json:"total_reused"`
	TotalDestroyed int64 `json:"total_destroyed"`
}
