//go:build linux

package platform

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coxlong/zap/internal/x11"
)

// Window properties and messages shared with the content renderer.
const (
	PropView    = "_ZAP_VIEW"
	PropPayload = "_ZAP_PAYLOAD"
	MsgReset    = "_ZAP_RESET"

	StateAbove       = "_NET_WM_STATE_ABOVE"
	StateSkipTaskbar = "_NET_WM_STATE_SKIP_TASKBAR"

	wmInstance = "zap"
	wmClass    = "Zap"
)

// windowSurface is the part of *x11.Surface the host drives.
type windowSurface interface {
	Show() error
	Hide()
	Activate() error
	Destroy()
	Detach()
	Resize(width, height int) error
	Move(x, y int) error
	Size() (int, int, error)
	SetTitle(title string) error
	SetState(state string, on bool) error
	SetProperty(name string, data []byte) error
	DeleteProperty(name string) error
	Notify(msgType string, data ...uint32) error
}

var _ windowSurface = (*x11.Surface)(nil)

type x11Window struct {
	surface   windowSurface
	view      string
	history   []string
	destroyed bool
}

// X11Host implements Host on top of plain X11 windows. Content is described
// to the renderer through window properties; the host itself tracks the
// navigation history.
type X11Host struct {
	conn   *x11.Connection
	logger *slog.Logger

	mu       sync.Mutex
	windows  map[WindowID]*x11Window
	onClosed func(WindowID)
}

var (
	_ Host   = (*X11Host)(nil)
	_ Placer = (*X11Host)(nil)
)

// NewX11Host creates a host from an existing X11 connection.
func NewX11Host(conn *x11.Connection, logger *slog.Logger) *X11Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &X11Host{
		conn:    conn,
		logger:  logger,
		windows: make(map[WindowID]*x11Window),
	}
}

// Connection returns the underlying X11 connection.
func (h *X11Host) Connection() *x11.Connection {
	return h.conn
}

func (h *X11Host) lookup(id WindowID) (*x11Window, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok || w.destroyed {
		return nil, fmt.Errorf("window %d: %w", id, ErrUnknownWindow)
	}
	return w, nil
}

func (h *X11Host) Create(ctx context.Context, view string, size Size) (WindowID, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	surface, err := h.conn.CreateSurface(size.Width, size.Height, wmInstance, wmClass)
	if err != nil {
		return 0, err
	}
	if err := surface.SetProperty(PropView, []byte(view)); err != nil {
		surface.Destroy()
		return 0, fmt.Errorf("set %s: %w", PropView, err)
	}

	id := WindowID(surface.ID())
	h.mu.Lock()
	h.windows[id] = &x11Window{surface: surface, view: view, history: []string{view}}
	h.mu.Unlock()

	surface.OnDestroyed(func() { h.closed(id, "destroyed") })
	surface.OnCloseRequest(func() {
		surface.Destroy()
		h.closed(id, "close requested")
	})

	h.logger.Debug("window created", "window_id", id, "view", view, "width", size.Width, "height", size.Height)
	return id, nil
}

// closed forgets a window destroyed out of band, drops its event handlers
// and notifies the subscriber.
func (h *X11Host) closed(id WindowID, reason string) {
	h.mu.Lock()
	w, ok := h.windows[id]
	if !ok || w.destroyed {
		h.mu.Unlock()
		return
	}
	w.destroyed = true
	delete(h.windows, id)
	fn := h.onClosed
	h.mu.Unlock()

	w.surface.Detach()

	h.logger.Info("window closed externally", "window_id", id, "reason", reason)
	if fn != nil {
		fn(id)
	}
}

func (h *X11Host) Destroy(id WindowID) error {
	h.mu.Lock()
	w, ok := h.windows[id]
	if !ok {
		h.mu.Unlock()
		return fmt.Errorf("window %d: %w", id, ErrUnknownWindow)
	}
	delete(h.windows, id)
	wasDestroyed := w.destroyed
	w.destroyed = true
	h.mu.Unlock()

	if !wasDestroyed {
		w.surface.Destroy()
	}
	return nil
}

func (h *X11Host) IsDestroyed(id WindowID) bool {
	_, err := h.lookup(id)
	return err != nil
}

// ContentAlive is the same as window liveness: content is rendered into the
// window by whichever client watches its properties.
func (h *X11Host) ContentAlive(id WindowID) bool {
	return !h.IsDestroyed(id)
}

func (h *X11Host) Navigate(ctx context.Context, id WindowID, view string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	if err := w.surface.SetProperty(PropView, []byte(view)); err != nil {
		return err
	}
	h.mu.Lock()
	w.view = view
	w.history = append(w.history, view)
	h.mu.Unlock()
	return nil
}

func (h *X11Host) CurrentView(id WindowID) string {
	w, err := h.lookup(id)
	if err != nil {
		return ""
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return w.view
}

func (h *X11Host) Show(id WindowID) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	return w.surface.Show()
}

func (h *X11Host) Focus(id WindowID) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	return w.surface.Activate()
}

func (h *X11Host) Hide(id WindowID) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	w.surface.Hide()
	return nil
}

func (h *X11Host) SetSize(id WindowID, size Size) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	return w.surface.Resize(size.Width, size.Height)
}

func (h *X11Host) SetPosition(id WindowID, x, y int) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	return w.surface.Move(x, y)
}

// CenterOn centers the window on the monitor the user is working on.
func (h *X11Host) CenterOn(id WindowID) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	mon, err := h.conn.ActiveMonitor()
	if err != nil {
		return err
	}
	width, height, err := w.surface.Size()
	if err != nil {
		return err
	}
	x, y := mon.Center(width, height)
	return w.surface.Move(x, y)
}

func (h *X11Host) SetTitle(id WindowID, title string) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	return w.surface.SetTitle(title)
}

func (h *X11Host) SetAlwaysOnTop(id WindowID, on bool) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	return w.surface.SetState(StateAbove, on)
}

func (h *X11Host) SetSkipTaskbar(id WindowID, skip bool) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	return w.surface.SetState(StateSkipTaskbar, skip)
}

func (h *X11Host) NotifyReset(id WindowID) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	return w.surface.Notify(MsgReset)
}

// ResetContent drops the navigation history and any delivered payload.
func (h *X11Host) ResetContent(id WindowID) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	if err := w.surface.DeleteProperty(PropPayload); err != nil {
		return fmt.Errorf("clear %s: %w", PropPayload, err)
	}
	h.mu.Lock()
	w.history = []string{w.view}
	h.mu.Unlock()
	return nil
}

func (h *X11Host) DeliverPayload(id WindowID, data []byte) error {
	w, err := h.lookup(id)
	if err != nil {
		return err
	}
	return w.surface.SetProperty(PropPayload, data)
}

func (h *X11Host) OnClosed(fn func(WindowID)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClosed = fn
}

// DestroyAll destroys every window still owned by the host.
func (h *X11Host) DestroyAll() {
	h.mu.Lock()
	ids := make([]WindowID, 0, len(h.windows))
	for id := range h.windows {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		_ = h.Destroy(id)
	}
}
