package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// pager/direct action
const sourceIndication = 2

// CurrentDesktop returns the current virtual desktop number (0-indexed).
func (c *Connection) CurrentDesktop() (int, error) {
	desktop, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get current desktop: %w", err)
	}
	return int(desktop), nil
}

// MoveToDesktop asks the window manager to move win to desktop.
func (c *Connection) MoveToDesktop(win xproto.Window, desktop int) error {
	return c.sendRootMessage(win, "_NET_WM_DESKTOP", uint32(desktop), sourceIndication)
}

// Activate raises and focuses win using _NET_ACTIVE_WINDOW.
func (c *Connection) Activate(win xproto.Window) error {
	return c.sendRootMessage(win, "_NET_ACTIVE_WINDOW", sourceIndication)
}

// ActiveWindow returns the currently focused client, or 0.
func (c *Connection) ActiveWindow() xproto.Window {
	win, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil {
		return 0
	}
	return win
}
