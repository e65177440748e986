package platform

import "errors"

// SurfaceID is a platform-neutral compositor surface identifier.
// Zero means "no surface".
type SurfaceID uint32

// NoSurface detaches a surface when used as a reparent target.
const NoSurface SurfaceID = 0

// ErrUnknownSurface is returned when an operation references a surface the
// backend does not know.
var ErrUnknownSurface = errors.New("unknown surface")

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Offset returns r translated by dx, dy.
func (r Rect) Offset(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// Contains reports whether the point lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds Rect
	Usable Rect
}

// Backend abstracts compositor surface operations across platforms.
type Backend interface {
	Displays() ([]Display, error)
	CreateSurface(parent SurfaceID, bounds Rect) (SurfaceID, error)
	DestroySurface(id SurfaceID) error
	Reparent(id, parent SurfaceID) error
	SetPosition(id SurfaceID, x, y int) error
	MoveResize(id SurfaceID, bounds Rect) error
	SetAlpha(id SurfaceID, alpha float64) error
	SetVisible(id SurfaceID, visible bool) error
	SetCornerRadius(id SurfaceID, radius int) error
}
