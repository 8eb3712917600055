package pool

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coxlong/zap/internal/platform"
)

var errGone = errors.New("window gone")

type fakeWindow struct {
	view        string
	history     []string
	size        platform.Size
	x, y        int
	centered    int
	title       string
	visible     bool
	focused     bool
	alwaysOnTop bool
	skipTaskbar bool
	payload     []byte
	destroyed   bool
	contentDead bool
	resets      int
	cleanups    int
	navigations int
}

type fakeHost struct {
	mu       sync.Mutex
	next     platform.WindowID
	windows  map[platform.WindowID]*fakeWindow
	onClosed func(platform.WindowID)

	createErr  error
	createGate chan struct{}
	titleErr   error
	cleanupErr error
	resetErr   error
	destroyLog []platform.WindowID
}

func newFakeHost() *fakeHost {
	return &fakeHost{next: 100, windows: make(map[platform.WindowID]*fakeWindow)}
}

var (
	_ platform.Host   = (*fakeHost)(nil)
	_ platform.Placer = (*fakeHost)(nil)
)

func (h *fakeHost) Create(ctx context.Context, view string, size platform.Size) (platform.WindowID, error) {
	h.mu.Lock()
	gate, err := h.createGate, h.createErr
	h.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.windows[h.next] = &fakeWindow{view: view, history: []string{view}, size: size}
	return h.next, nil
}

// live returns the window if it exists and has not been destroyed. Callers
// hold h.mu.
func (h *fakeHost) live(id platform.WindowID) (*fakeWindow, error) {
	w, ok := h.windows[id]
	if !ok || w.destroyed {
		return nil, errGone
	}
	return w, nil
}

func (h *fakeHost) update(id platform.WindowID, fn func(w *fakeWindow) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, err := h.live(id)
	if err != nil {
		return err
	}
	return fn(w)
}

func (h *fakeHost) Destroy(id platform.WindowID) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		h.windows[id] = &fakeWindow{destroyed: true}
	} else {
		w.destroyed = true
		w.visible = false
	}
	h.destroyLog = append(h.destroyLog, id)
	return nil
}

func (h *fakeHost) IsDestroyed(id platform.WindowID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.live(id)
	return err != nil
}

func (h *fakeHost) ContentAlive(id platform.WindowID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, err := h.live(id)
	return err == nil && !w.contentDead
}

func (h *fakeHost) Navigate(_ context.Context, id platform.WindowID, view string) error {
	return h.update(id, func(w *fakeWindow) error {
		w.view = view
		w.history = append(w.history, view)
		w.navigations++
		return nil
	})
}

func (h *fakeHost) CurrentView(id platform.WindowID) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w, err := h.live(id); err == nil {
		return w.view
	}
	return ""
}

func (h *fakeHost) Show(id platform.WindowID) error {
	return h.update(id, func(w *fakeWindow) error { w.visible = true; return nil })
}

func (h *fakeHost) Focus(id platform.WindowID) error {
	return h.update(id, func(w *fakeWindow) error { w.focused = true; return nil })
}

func (h *fakeHost) Hide(id platform.WindowID) error {
	return h.update(id, func(w *fakeWindow) error { w.visible, w.focused = false, false; return nil })
}

func (h *fakeHost) SetSize(id platform.WindowID, size platform.Size) error {
	return h.update(id, func(w *fakeWindow) error { w.size = size; return nil })
}

func (h *fakeHost) SetPosition(id platform.WindowID, x, y int) error {
	return h.update(id, func(w *fakeWindow) error { w.x, w.y = x, y; return nil })
}

func (h *fakeHost) CenterOn(id platform.WindowID) error {
	return h.update(id, func(w *fakeWindow) error { w.centered++; return nil })
}

func (h *fakeHost) SetTitle(id platform.WindowID, title string) error {
	return h.update(id, func(w *fakeWindow) error {
		if h.titleErr != nil {
			return h.titleErr
		}
		w.title = title
		return nil
	})
}

func (h *fakeHost) SetAlwaysOnTop(id platform.WindowID, on bool) error {
	return h.update(id, func(w *fakeWindow) error { w.alwaysOnTop = on; return nil })
}

func (h *fakeHost) SetSkipTaskbar(id platform.WindowID, skip bool) error {
	return h.update(id, func(w *fakeWindow) error { w.skipTaskbar = skip; return nil })
}

func (h *fakeHost) NotifyReset(id platform.WindowID) error {
	return h.update(id, func(w *fakeWindow) error {
		if h.resetErr != nil {
			return h.resetErr
		}
		w.resets++
		return nil
	})
}

func (h *fakeHost) ResetContent(id platform.WindowID) error {
	return h.update(id, func(w *fakeWindow) error {
		if h.cleanupErr != nil {
			return h.cleanupErr
		}
		w.cleanups++
		w.history = []string{w.view}
		w.payload = nil
		return nil
	})
}

func (h *fakeHost) DeliverPayload(id platform.WindowID, data []byte) error {
	return h.update(id, func(w *fakeWindow) error {
		w.payload = append([]byte(nil), data...)
		return nil
	})
}

func (h *fakeHost) OnClosed(fn func(platform.WindowID)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onClosed = fn
}

// closeExternally destroys id and notifies the pool, as a user killing the
// window would.
func (h *fakeHost) closeExternally(id platform.WindowID) {
	h.mu.Lock()
	if w, ok := h.windows[id]; ok {
		w.destroyed = true
	}
	fn := h.onClosed
	h.mu.Unlock()
	if fn != nil {
		fn(id)
	}
}

// kill destroys id without notifying anyone.
func (h *fakeHost) kill(id platform.WindowID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if w, ok := h.windows[id]; ok {
		w.destroyed = true
	}
}

func (h *fakeHost) window(id platform.WindowID) fakeWindow {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[id]
	if !ok {
		return fakeWindow{}
	}
	return *w
}

func (h *fakeHost) set(fn func(h *fakeHost)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fn(h)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type captureRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *captureRecorder) Record(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *captureRecorder) count(action Action) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Action == action {
			n++
		}
	}
	return n
}

func testConfig(minIdle, maxTotal int) Config {
	cfg := DefaultConfig()
	cfg.MinIdle = minIdle
	cfg.MaxTotal = maxTotal
	return cfg
}

func newTestPool(t *testing.T, host *fakeHost, cfg Config, opts Options) *Pool {
	t.Helper()
	p, err := New(host, cfg, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(p.Destroy)
	p.replenishWG.Wait()
	return p
}

func acquire(t *testing.T, p *Pool, opts OpenWindowOptions) *Handle {
	t.Helper()
	h, err := p.Acquire(context.Background(), opts)
	if err != nil {
		t.Fatalf("Acquire(%q): %v", opts.Config.View, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("configure %d: %v", h.ID, err)
	}
	return h
}

func view(name string) OpenWindowOptions {
	return OpenWindowOptions{Config: WindowConfig{View: name}}
}

func idleIDs(p *Pool) []platform.WindowID {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]platform.WindowID, 0, len(p.idle))
	for _, e := range p.idle {
		ids = append(ids, e.ID)
	}
	return ids
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
