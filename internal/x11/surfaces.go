package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Surfaces are plain override-redirect windows: the window manager never
// frames them, so reparenting one under another behaves like a compositor
// leash being attached to a host surface.

const surfaceBackground = 0x202020

// CreateSurface creates an unmapped override-redirect window under parent
// (the root window when parent is 0).
func (c *Connection) CreateSurface(parent xproto.Window, x, y, width, height int) (xproto.Window, error) {
	if parent == 0 {
		parent = c.Root
	}
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate window id: %w", err)
	}
	err = win.CreateChecked(parent, x, y, max(width, 1), max(height, 1),
		xproto.CwBackPixel|xproto.CwOverrideRedirect,
		surfaceBackground, 1)
	if err != nil {
		return 0, fmt.Errorf("failed to create surface window: %w", err)
	}
	return win.Id, nil
}

// DestroySurface destroys the window and all of its children.
func (c *Connection) DestroySurface(id xproto.Window) {
	xwindow.New(c.XUtil, id).Destroy()
}

// ReparentSurface moves id under parent at the origin. A zero parent detaches
// the surface to the root window and unmaps it.
func (c *Connection) ReparentSurface(id, parent xproto.Window) error {
	if parent == 0 {
		if err := xproto.UnmapWindowChecked(c.XUtil.Conn(), id).Check(); err != nil {
			return fmt.Errorf("failed to unmap detached surface: %w", err)
		}
		parent = c.Root
	}
	return xproto.ReparentWindowChecked(c.XUtil.Conn(), id, parent, 0, 0).Check()
}

// MoveSurface moves a surface relative to its parent.
func (c *Connection) MoveSurface(id xproto.Window, x, y int) {
	xwindow.New(c.XUtil, id).Move(x, y)
}

// MoveResizeSurface sets the full geometry of a surface.
func (c *Connection) MoveResizeSurface(id xproto.Window, x, y, width, height int) {
	xwindow.New(c.XUtil, id).MoveResize(x, y, max(width, 1), max(height, 1))
}

// SetSurfaceOpacity writes _NET_WM_WINDOW_OPACITY, honoured by compositing
// managers. alpha is clamped to [0, 1].
func (c *Connection) SetSurfaceOpacity(id xproto.Window, alpha float64) error {
	alpha = min(max(alpha, 0), 1)
	return xprop.ChangeProp32(c.XUtil, id, "_NET_WM_WINDOW_OPACITY", "CARDINAL",
		uint(alpha*float64(0xffffffff)))
}

// SetSurfaceMapped maps or unmaps a surface.
func (c *Connection) SetSurfaceMapped(id xproto.Window, mapped bool) {
	win := xwindow.New(c.XUtil, id)
	if mapped {
		win.Map()
		return
	}
	win.Unmap()
}
