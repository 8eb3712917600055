package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

func (m Monitor) contains(x, y int) bool {
	return x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height
}

// Center returns the top-left corner that centers a width x height window
// on m, clamped so the window's origin stays on the monitor.
func (m Monitor) Center(width, height int) (int, int) {
	x := m.X + (m.Width-width)/2
	y := m.Y + (m.Height-height)/2
	return max(x, m.X), max(y, m.Y)
}

// Monitors lists active CRTCs using XRandR.
func (c *Connection) Monitors() ([]Monitor, error) {
	conn := c.XUtil.Conn()
	if err := randr.Init(conn); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		info, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil || info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}

		name := fmt.Sprintf("Monitor%d", i)
		if out, err := randr.GetOutputInfo(conn, info.Outputs[0], resources.ConfigTimestamp).Reply(); err == nil {
			name = string(out.Name)
		}

		monitors = append(monitors, Monitor{
			ID:     i,
			Name:   name,
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}
	return monitors, nil
}

// ActiveMonitor returns the monitor under the pointer, falling back to the
// one holding the focused window and then the first monitor. The result is
// trimmed to the current desktop's work area.
func (c *Connection) ActiveMonitor() (Monitor, error) {
	monitors, err := c.Monitors()
	if err != nil {
		return Monitor{}, err
	}
	if len(monitors) == 0 {
		return Monitor{}, fmt.Errorf("no monitors found")
	}

	mon, ok := Monitor{}, false
	if x, y, err := c.pointer(); err == nil {
		mon, ok = monitorAt(monitors, x, y)
	}
	if !ok {
		if x, y, err := c.windowCenter(c.ActiveWindow()); err == nil {
			mon, ok = monitorAt(monitors, x, y)
		}
	}
	if !ok {
		mon = monitors[0]
	}

	if area, err := c.workArea(); err == nil {
		mon = clipToArea(mon, area)
	}
	return mon, nil
}

func (c *Connection) pointer() (int, int, error) {
	reply, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return 0, 0, err
	}
	return int(reply.RootX), int(reply.RootY), nil
}

func (c *Connection) windowCenter(win xproto.Window) (int, int, error) {
	if win == 0 {
		return 0, 0, fmt.Errorf("no window")
	}
	conn := c.XUtil.Conn()
	geom, err := xproto.GetGeometry(conn, xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, err
	}
	pos, err := xproto.TranslateCoordinates(conn, win, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, err
	}
	return int(pos.DstX) + int(geom.Width)/2, int(pos.DstY) + int(geom.Height)/2, nil
}

func (c *Connection) workArea() (Monitor, error) {
	areas, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil {
		return Monitor{}, err
	}
	if len(areas) == 0 {
		return Monitor{}, fmt.Errorf("empty _NET_WORKAREA")
	}
	idx := 0
	if desktop, err := c.CurrentDesktop(); err == nil && desktop < len(areas) {
		idx = desktop
	}
	a := areas[idx]
	return Monitor{X: int(a.X), Y: int(a.Y), Width: int(a.Width), Height: int(a.Height)}, nil
}

func monitorAt(monitors []Monitor, x, y int) (Monitor, bool) {
	for _, m := range monitors {
		if m.contains(x, y) {
			return m, true
		}
	}
	return Monitor{}, false
}

// clipToArea intersects m with area, keeping m unchanged when they do not
// overlap.
func clipToArea(m, area Monitor) Monitor {
	x1 := max(m.X, area.X)
	y1 := max(m.Y, area.Y)
	x2 := min(m.X+m.Width, area.X+area.Width)
	y2 := min(m.Y+m.Height, area.Y+area.Height)
	if x2 <= x1 || y2 <= y1 {
		return m
	}
	m.X, m.Y = x1, y1
	m.Width, m.Height = x2-x1, y2-y1
	return m
}
