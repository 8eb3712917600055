package hotkeys

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/xevent"

	"github.com/coxlong/zap/internal/config"
	"github.com/coxlong/zap/internal/platform"
	"github.com/coxlong/zap/internal/pool"
)

// configureTimeout bounds how long a hotkey waits before logging a slow
// configuration.
const configureTimeout = 5 * time.Second

// Opener is the part of the pool manager hotkeys drive.
type Opener interface {
	OpenWindow(ctx context.Context, opts pool.OpenWindowOptions) (*pool.Handle, error)
	ReleaseWindow(id platform.WindowID)
	Lookup(id platform.WindowID) (pool.ActiveEntry, bool)
}

// Handler manages global keyboard shortcuts. Each binding toggles a window
// showing its view: the first press opens one, the next releases it.
type Handler struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	opener Opener
	logger *slog.Logger

	mu   sync.Mutex
	open map[string]openWindow
}

type openWindow struct {
	id     platform.WindowID
	lease  string
	handle *pool.Handle
}

var ignoreModsOnce sync.Once

// NewHandler creates a new hotkey handler. xu may be nil in tests, in which
// case nothing can be registered.
func NewHandler(xu *xgbutil.XUtil, opener Opener, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if xu != nil {
		ignoreModsOnce.Do(func() {
			configureIgnoreMods(xu)
		})
	}
	h := &Handler{
		xu:     xu,
		opener: opener,
		logger: logger,
		open:   make(map[string]openWindow),
	}
	if xu != nil {
		h.root = xu.RootWin()
	}
	return h
}

// RegisterAll binds every configured hotkey. Failures are collected so one
// bad key sequence does not disable the others.
func (h *Handler) RegisterAll(bindings map[string]config.Hotkey) error {
	keys := make([]string, 0, len(bindings))
	for k := range bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var failed []string
	for _, key := range keys {
		if err := h.Register(key, bindings[key]); err != nil {
			h.logger.Warn("hotkey registration failed", "keys", key, "error", err)
			failed = append(failed, key)
			continue
		}
		h.logger.Info("hotkey registered", "keys", key, "view", bindings[key].View)
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to register hotkeys: %v", failed)
	}
	return nil
}

// Register binds keySequence to toggling a window for hk.
func (h *Handler) Register(keySequence string, hk config.Hotkey) error {
	return h.RegisterFunc(keySequence, func() {
		// Keep the X event loop free while the pool talks to the server.
		go h.Toggle(keySequence, hk)
	})
}

// RegisterFunc registers an arbitrary hotkey callback.
func (h *Handler) RegisterFunc(keySequence string, callback func()) error {
	if h.xu == nil {
		return fmt.Errorf("no X connection")
	}
	return keybind.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		callback()
	}).Connect(h.xu, h.root, keySequence, true)
}

// Toggle releases the window key last opened if the caller still holds it,
// and otherwise opens a new one.
func (h *Handler) Toggle(key string, hk config.Hotkey) {
	h.mu.Lock()
	prev, ok := h.open[key]
	delete(h.open, key)
	h.mu.Unlock()

	if ok {
		// Let configuration finish so a recycled window is never shown.
		if prev.handle != nil {
			timer := time.NewTimer(configureTimeout)
			select {
			case <-prev.handle.Done():
			case <-timer.C:
				h.logger.Warn("hotkey releasing window still being configured", "keys", key, "window_id", prev.id)
			}
			timer.Stop()
		}
		if entry, live := h.opener.Lookup(prev.id); live && entry.Lease == prev.lease {
			h.logger.Debug("hotkey closing window", "keys", key, "window_id", prev.id)
			h.opener.ReleaseWindow(prev.id)
			return
		}
	}

	handle, err := h.opener.OpenWindow(context.Background(), OptionsFor(hk))
	if err != nil {
		h.logger.Error("hotkey open failed", "keys", key, "view", hk.View, "error", err)
		return
	}
	h.mu.Lock()
	h.open[key] = openWindow{id: handle.ID, lease: handle.Lease, handle: handle}
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), configureTimeout)
	defer cancel()
	if err := handle.Wait(ctx); err != nil {
		h.logger.Warn("hotkey window not configured", "keys", key, "window_id", handle.ID, "error", err)
	}
}

// OptionsFor builds the open request for a hotkey binding.
func OptionsFor(hk config.Hotkey) pool.OpenWindowOptions {
	return pool.OpenWindowOptions{
		Config: pool.WindowConfig{
			View:   hk.View,
			Title:  hk.Title,
			Width:  hk.Width,
			Height: hk.Height,
		},
	}
}

func configureIgnoreMods(xu *xgbutil.XUtil) {
	// Always ignore CapsLock.
	caps := uint16(xproto.ModMaskLock)

	numLock := modMaskForKeysym(xu, "Num_Lock")
	scrollLock := modMaskForKeysym(xu, "Scroll_Lock")

	unique := map[uint16]struct{}{0: {}}
	base := []uint16{caps}
	if numLock != 0 && numLock != caps {
		base = append(base, numLock)
	}
	if scrollLock != 0 && scrollLock != caps && scrollLock != numLock {
		base = append(base, scrollLock)
	}
	for _, mask := range lockCombinations(base) {
		unique[mask] = struct{}{}
	}

	ignore := make([]uint16, 0, len(unique))
	for mask := range unique {
		ignore = append(ignore, mask)
	}
	xevent.IgnoreMods = ignore
}

// lockCombinations returns the OR of every non-empty subset of masks.
func lockCombinations(masks []uint16) []uint16 {
	var out []uint16
	for subset := 1; subset < (1 << len(masks)); subset++ {
		var mask uint16
		for bit := range masks {
			if subset&(1<<bit) != 0 {
				mask |= masks[bit]
			}
		}
		out = append(out, mask)
	}
	return out
}

func modMaskForKeysym(xu *xgbutil.XUtil, keysym string) uint16 {
	for _, keycode := range keybind.StrToKeycodes(xu, keysym) {
		if mask := keybind.ModGet(xu, keycode); mask != 0 {
			return mask
		}
	}
	return 0
}
