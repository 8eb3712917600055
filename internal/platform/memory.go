package platform

import (
	"context"
	"fmt"
	"sync"
)

type memWindow struct {
	view      string
	title     string
	size      Size
	visible   bool
	payload   []byte
	destroyed bool
}

// MemoryHost is a Host that keeps windows in memory. It backs the headless
// daemon and tests that need a pool without a display.
type MemoryHost struct {
	mu       sync.Mutex
	next     WindowID
	windows  map[WindowID]*memWindow
	onClosed func(WindowID)
}

var _ Host = (*MemoryHost)(nil)

func NewMemoryHost() *MemoryHost {
	return &MemoryHost{windows: make(map[WindowID]*memWindow)}
}

func (h *MemoryHost) get(id WindowID) (*memWindow, error) {
	w, ok := h.windows[id]
	if !ok || w.destroyed {
		return nil, fmt.Errorf("window %d: %w", id, ErrUnknownWindow)
	}
	return w, nil
}

func (h *MemoryHost) update(id WindowID, fn func(*memWindow)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, err := h.get(id)
	if err != nil {
		return err
	}
	fn(w)
	return nil
}

func (h *MemoryHost) Create(ctx context.Context, view string, size Size) (WindowID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.windows[h.next] = &memWindow{view: view, size: size}
	return h.next, nil
}

func (h *MemoryHost) Destroy(id WindowID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.windows[id]; !ok {
		return fmt.Errorf("window %d: %w", id, ErrUnknownWindow)
	}
	delete(h.windows, id)
	return nil
}

func (h *MemoryHost) IsDestroyed(id WindowID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.get(id)
	return err != nil
}

func (h *MemoryHost) ContentAlive(id WindowID) bool {
	return !h.IsDestroyed(id)
}

func (h *MemoryHost) Navigate(ctx context.Context, id WindowID, view string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.update(id, func(w *memWindow) { w.view = view })
}

func (h *MemoryHost) CurrentView(id WindowID) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w, err := h.get(id); err == nil {
		return w.view
	}
	return ""
}

func (h *MemoryHost) Show(id WindowID) error {
	return h.update(id, func(w *memWindow) { w.visible = true })
}

func (h *MemoryHost) Focus(id WindowID) error {
	return h.update(id, func(*memWindow) {})
}

func (h *MemoryHost) Hide(id WindowID) error {
	return h.update(id, func(w *memWindow) { w.visible = false })
}

func (h *MemoryHost) SetSize(id WindowID, size Size) error {
	return h.update(id, func(w *memWindow) { w.size = size })
}

func (h *MemoryHost) SetPosition(id WindowID, _, _ int) error {
	return h.update(id, func(*memWindow) {})
}

func (h *MemoryHost) SetTitle(id WindowID, title string) error {
	return h.update(id, func(w *memWindow) { w.title = title })
}

func (h *MemoryHost) SetAlwaysOnTop(id WindowID, _ bool) error {
	return h.update(id, func(*memWindow) {})
}

func (h *MemoryHost) SetSkipTaskbar(id WindowID, _ bool) error {
	return h.update(id, func(*memWindow) {})
}

func (h *MemoryHost) NotifyReset(id WindowID) error {
	return h.update(id, func(*memWindow) {})
}

func (h *MemoryHost) ResetContent(id WindowID) error {
	return h.update(id, func(w *memWindow) { w.payload = nil })
}

func (h *MemoryHost) DeliverPayload(id WindowID, data []byte) error {
	return h.update(id, func(w *memWindow) { w.payload = append([]byte(nil), data...) })
}

func (h *MemoryHost) OnClosed(fn func(WindowID)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClosed = fn
}

// Close simulates the user closing a window and notifies the subscriber.
func (h *MemoryHost) Close(id WindowID) {
	h.mu.Lock()
	w, err := h.get(id)
	if err != nil {
		h.mu.Unlock()
		return
	}
	w.destroyed = true
	fn := h.onClosed
	h.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

// WindowInfo is a snapshot of a MemoryHost window.
type WindowInfo struct {
	View    string
	Title   string
	Size    Size
	Visible bool
	Payload []byte
}

// Window returns a snapshot of id, if it exists.
func (h *MemoryHost) Window(id WindowID) (WindowInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, err := h.get(id)
	if err != nil {
		return WindowInfo{}, false
	}
	return WindowInfo{
		View:    w.view,
		Title:   w.title,
		Size:    w.size,
		Visible: w.visible,
		Payload: append([]byte(nil), w.payload...),
	}, true
}

// Count returns the number of live windows.
func (h *MemoryHost) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, w := range h.windows {
		if !w.destroyed {
			n++
		}
	}
	return n
}
