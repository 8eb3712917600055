package platform

import (
	"context"
	"errors"
)

// ErrUnknownWindow is returned for ids the host never created or has
// already destroyed.
var ErrUnknownWindow = errors.New("unknown window")

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Host abstracts the windowing system operations the window pool needs.
//
// Content state (current view, navigation history, delivered payload) belongs
// to the host; the pool only asks for it to be changed or reset.
type Host interface {
	Create(ctx context.Context, view string, size Size) (WindowID, error)
	Destroy(id WindowID) error
	IsDestroyed(id WindowID) bool
	// ContentAlive reports whether the content side of the window can still
	// receive navigation and reset requests.
	ContentAlive(id WindowID) bool

	Navigate(ctx context.Context, id WindowID, view string) error
	CurrentView(id WindowID) string

	Show(id WindowID) error
	Focus(id WindowID) error
	Hide(id WindowID) error
	SetSize(id WindowID, size Size) error
	SetPosition(id WindowID, x, y int) error
	SetTitle(id WindowID, title string) error
	SetAlwaysOnTop(id WindowID, on bool) error
	SetSkipTaskbar(id WindowID, skip bool) error

	// NotifyReset tells the loaded content to drop its transient state.
	NotifyReset(id WindowID) error
	// ResetContent clears history, listeners and storage so the window can
	// be handed to an unrelated caller.
	ResetContent(id WindowID) error
	DeliverPayload(id WindowID, data []byte) error

	// OnClosed registers a callback invoked when a window is destroyed
	// outside the pool's control.
	OnClosed(fn func(WindowID))
}

// Placer is implemented by hosts that can position a window relative to the
// active display.
type Placer interface {
	CenterOn(id WindowID) error
}
