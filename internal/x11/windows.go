package x11

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// _NET_WM_STATE actions.
const (
	stateRemove = 0
	stateAdd    = 1
)

// Surface is a top-level window created and owned by this process.
type Surface struct {
	conn   *Connection
	win    *xwindow.Window
	mapped atomic.Bool
}

// CreateSurface creates an unmapped top-level window of the given size,
// tagged with the WM_CLASS instance/class pair.
func (c *Connection) CreateSurface(width, height int, instance, class string) (*Surface, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return nil, fmt.Errorf("allocate window id: %w", err)
	}

	screen := c.XUtil.Screen()
	err = win.CreateChecked(c.Root, 0, 0, width, height,
		xproto.CwBackPixel|xproto.CwEventMask,
		screen.BlackPixel,
		xproto.EventMaskStructureNotify|xproto.EventMaskPropertyChange)
	if err != nil {
		return nil, fmt.Errorf("create window: %w", err)
	}

	if err := icccm.WmClassSet(c.XUtil, win.Id, &icccm.WmClass{Instance: instance, Class: class}); err != nil {
		win.Destroy()
		return nil, fmt.Errorf("set WM_CLASS: %w", err)
	}
	return &Surface{conn: c, win: win}, nil
}

// ID returns the X window id.
func (s *Surface) ID() xproto.Window {
	return s.win.Id
}

// Show maps the window on the current desktop.
func (s *Surface) Show() error {
	s.win.Map()
	s.mapped.Store(true)
	if desktop, err := s.conn.CurrentDesktop(); err == nil {
		// Windows recycled while hidden may belong to another desktop.
		_ = s.conn.MoveToDesktop(s.win.Id, desktop)
	}
	return nil
}

// Hide unmaps the window.
func (s *Surface) Hide() {
	s.win.Unmap()
	s.mapped.Store(false)
}

// Activate raises and focuses the window.
func (s *Surface) Activate() error {
	return s.conn.Activate(s.win.Id)
}

// Destroy detaches event handlers and destroys the window.
func (s *Surface) Destroy() {
	s.win.Destroy()
}

// Detach drops every event handler registered for the window without
// destroying it.
func (s *Surface) Detach() {
	s.win.Detach()
}

// Resize asks the window manager to resize the window.
func (s *Surface) Resize(width, height int) error {
	if err := s.win.WMResize(width, height); err != nil {
		s.win.Resize(width, height)
	}
	return nil
}

// Move asks the window manager to move the window.
func (s *Surface) Move(x, y int) error {
	if err := s.win.WMMove(x, y); err != nil {
		s.win.Move(x, y)
	}
	return nil
}

// Size returns the current window size.
func (s *Surface) Size() (int, int, error) {
	geom, err := s.win.Geometry()
	if err != nil {
		return 0, 0, err
	}
	return geom.Width(), geom.Height(), nil
}

// SetTitle sets both _NET_WM_NAME and WM_NAME.
func (s *Surface) SetTitle(title string) error {
	if err := ewmh.WmNameSet(s.conn.XUtil, s.win.Id, title); err != nil {
		return err
	}
	return icccm.WmNameSet(s.conn.XUtil, s.win.Id, title)
}

// SetState toggles an _NET_WM_STATE atom such as _NET_WM_STATE_ABOVE.
// Unmapped windows get the property written directly; mapped windows must
// ask the window manager.
func (s *Surface) SetState(state string, on bool) error {
	if s.mapped.Load() {
		action := uint32(stateRemove)
		if on {
			action = stateAdd
		}
		atom, err := s.conn.Atom(state)
		if err != nil {
			return err
		}
		return s.conn.sendRootMessage(s.win.Id, "_NET_WM_STATE", action, uint32(atom), 0, sourceIndication)
	}

	states, _ := ewmh.WmStateGet(s.conn.XUtil, s.win.Id)
	states = slices.DeleteFunc(states, func(v string) bool { return v == state })
	if on {
		states = append(states, state)
	}
	return ewmh.WmStateSet(s.conn.XUtil, s.win.Id, states)
}

// SetProperty stores data in a UTF8_STRING property on the window.
func (s *Surface) SetProperty(name string, data []byte) error {
	return xprop.ChangeProp(s.conn.XUtil, s.win.Id, 8, name, "UTF8_STRING", data)
}

// DeleteProperty removes a window property. Missing properties are fine.
func (s *Surface) DeleteProperty(name string) error {
	atom, err := s.conn.Atom(name)
	if err != nil {
		return err
	}
	return xproto.DeletePropertyChecked(s.conn.XUtil.Conn(), s.win.Id, atom).Check()
}

// Notify sends a client message of type msgType to the window itself, for
// whatever client renders its content.
func (s *Surface) Notify(msgType string, data ...uint32) error {
	atom, err := s.conn.Atom(msgType)
	if err != nil {
		return err
	}
	return s.conn.sendMessage(s.win.Id, s.win.Id, atom, xproto.EventMaskNoEvent, data)
}

// OnDestroyed registers fn for the window's DestroyNotify. Handlers are
// detached by Destroy, so fn only fires for destruction by someone else.
func (s *Surface) OnDestroyed(fn func()) {
	xevent.DestroyNotifyFun(func(_ *xgbutil.XUtil, _ xevent.DestroyNotifyEvent) {
		fn()
	}).Connect(s.conn.XUtil, s.win.Id)
}

// OnCloseRequest advertises WM_DELETE_WINDOW and calls fn when the window
// manager asks the window to close.
func (s *Surface) OnCloseRequest(fn func()) {
	s.win.WMGracefulClose(func(*xwindow.Window) {
		fn()
	})
}
