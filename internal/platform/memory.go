package platform

import (
	"fmt"
	"sort"
	"sync"
)

// SurfaceState is the observable state of a surface held by MemoryBackend.
type SurfaceState struct {
	Parent       SurfaceID
	Bounds       Rect
	Alpha        float64
	Visible      bool
	CornerRadius int
}

// MemoryBackend is an in-process compositor. It keeps a surface tree in
// memory and is used for headless daemon runs and tests.
type MemoryBackend struct {
	mu       sync.Mutex
	displays []Display
	surfaces map[SurfaceID]*SurfaceState
	nextID   SurfaceID
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an in-memory backend serving the given displays.
func NewMemoryBackend(displays ...Display) *MemoryBackend {
	sorted := append([]Display(nil), displays...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID < sorted[j].ID
	})
	return &MemoryBackend{
		displays: sorted,
		surfaces: make(map[SurfaceID]*SurfaceState),
	}
}

// Displays returns the configured displays.
func (b *MemoryBackend) Displays() ([]Display, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Display(nil), b.displays...), nil
}

// SetDisplayBounds replaces the bounds of a display, mimicking a resize.
func (b *MemoryBackend) SetDisplayBounds(displayID int, bounds Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.displays {
		if b.displays[i].ID == displayID {
			b.displays[i].Bounds = bounds
			b.displays[i].Usable = bounds
			return nil
		}
	}
	return fmt.Errorf("display with id %d not found", displayID)
}

func (b *MemoryBackend) CreateSurface(parent SurfaceID, bounds Rect) (SurfaceID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if parent != NoSurface {
		if _, ok := b.surfaces[parent]; !ok {
			return NoSurface, fmt.Errorf("create surface under %d: %w", parent, ErrUnknownSurface)
		}
	}
	b.nextID++
	id := b.nextID
	b.surfaces[id] = &SurfaceState{
		Parent: parent,
		Bounds: bounds,
		Alpha:  1,
	}
	return id, nil
}

func (b *MemoryBackend) DestroySurface(id SurfaceID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.surfaces[id]; !ok {
		return fmt.Errorf("destroy surface %d: %w", id, ErrUnknownSurface)
	}
	delete(b.surfaces, id)
	for _, s := range b.surfaces {
		if s.Parent == id {
			s.Parent = NoSurface
		}
	}
	return nil
}

func (b *MemoryBackend) Reparent(id, parent SurfaceID) error {
	return b.update(id, func(s *SurfaceState) error {
		if parent != NoSurface {
			if _, ok := b.surfaces[parent]; !ok {
				return fmt.Errorf("reparent %d under %d: %w", id, parent, ErrUnknownSurface)
			}
		}
		s.Parent = parent
		return nil
	})
}

func (b *MemoryBackend) SetPosition(id SurfaceID, x, y int) error {
	return b.update(id, func(s *SurfaceState) error {
		s.Bounds.X = x
		s.Bounds.Y = y
		return nil
	})
}

func (b *MemoryBackend) MoveResize(id SurfaceID, bounds Rect) error {
	return b.update(id, func(s *SurfaceState) error {
		s.Bounds = bounds
		return nil
	})
}

func (b *MemoryBackend) SetAlpha(id SurfaceID, alpha float64) error {
	return b.update(id, func(s *SurfaceState) error {
		s.Alpha = alpha
		return nil
	})
}

func (b *MemoryBackend) SetVisible(id SurfaceID, visible bool) error {
	return b.update(id, func(s *SurfaceState) error {
		s.Visible = visible
		return nil
	})
}

func (b *MemoryBackend) SetCornerRadius(id SurfaceID, radius int) error {
	return b.update(id, func(s *SurfaceState) error {
		s.CornerRadius = radius
		return nil
	})
}

// Surface returns a copy of the surface state.
func (b *MemoryBackend) Surface(id SurfaceID) (SurfaceState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.surfaces[id]
	if !ok {
		return SurfaceState{}, false
	}
	return *s, true
}

// Children lists the direct children of parent in id order.
func (b *MemoryBackend) Children(parent SurfaceID) []SurfaceID {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []SurfaceID
	for id, s := range b.surfaces {
		if s.Parent == parent {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (b *MemoryBackend) update(id SurfaceID, fn func(s *SurfaceState) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.surfaces[id]
	if !ok {
		return fmt.Errorf("surface %d: %w", id, ErrUnknownSurface)
	}
	return fn(s)
}
