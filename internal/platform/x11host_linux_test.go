//go:build linux

package platform

import (
	"errors"
	"log/slog"
	"testing"
)

type stubSurface struct {
	detached  int
	destroyed int
}

func (s *stubSurface) Show() error { return nil }
func (s *stubSurface) Hide() {}
func (s *stubSurface) Activate() error { return nil }
func (s *stubSurface) Destroy() { s.destroyed++ }
func (s *stubSurface) Detach() { s.detached++ }
func (s *stubSurface) Resize(int, int) error { return nil }
func (s *stubSurface) Move(int, int) error { return nil }
func (s *stubSurface) Size() (int, int, error) { return 0, 0, nil }
func (s *stubSurface) SetTitle(string) error { return nil }
func (s *stubSurface) SetState(string, bool) error { return nil }
func (s *stubSurface) SetProperty(string, []byte) error { return nil }
func (s *stubSurface) DeleteProperty(string) error { return nil }
func (s *stubSurface) Notify(string, ...uint32) error { return nil }

func TestX11HostClosedForgetsWindow(t *testing.T) {
	h := NewX11Host(nil, slog.New(slog.DiscardHandler))
	sf := &stubSurface{}
	h.windows[7] = &x11Window{surface: sf, view: "search", history: []string{"search"}}

	var notified []WindowID
	h.OnClosed(func(id WindowID) { notified = append(notified, id) })

	h.closed(7, "destroyed")
	h.closed(7, "destroyed")

	if len(notified) != 1 || notified[0] != 7 {
		t.Fatalf("notified = %v, want [7]", notified)
	}
	if _, ok := h.windows[7]; ok {
		t.Fatalf("closed window still tracked")
	}
	if sf.detached != 1 {
		t.Fatalf("detached = %d, want 1", sf.detached)
	}
	if !h.IsDestroyed(7) {
		t.Fatalf("closed window should report destroyed")
	}
	if err := h.Destroy(7); !errors.Is(err, ErrUnknownWindow) {
		t.Fatalf("Destroy after close = %v, want ErrUnknownWindow", err)
	}
	if sf.destroyed != 0 {
		t.Fatalf("surface destroyed %d times after external close", sf.destroyed)
	}
}
