// Package daview coordinates display-area backed surfaces ("views") with the
// host window-manager transition pipeline.
//
// A View owns the surface a display area is rendered into. Transitions keeps
// the committed visible/bounds state of every tracked view, turns requested
// states into host mutations, runs them one at a time and hands playback to a
// pluggable AnimationHandler. All coordinator state lives on a single
// mainthread.Executor.
package daview

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/1broseidon/dashell/internal/compositor"
	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/wm"
)

// InvalidFeatureID marks an unset display-area feature id.
const InvalidFeatureID = -1

// ErrInvalidFeature is returned by NewView for a view without a feature id.
var ErrInvalidFeature = errors.New("display area feature id is not set")

// ID identifies a view: the display id in the high 32 bits and the
// display-area feature id in the low 32 bits.
type ID uint64

// MakeID composes a view id.
func MakeID(displayID, featureID int) ID {
	return ID(uint64(uint32(displayID))<<32 | uint64(uint32(featureID)))
}

// DisplayID returns the display part of the id.
func (id ID) DisplayID() int { return int(int32(uint32(id >> 32))) }

// FeatureID returns the display-area feature part of the id.
func (id ID) FeatureID() int { return int(int32(uint32(id))) }

func (id ID) String() string {
	return fmt.Sprintf("%d:%d", id.DisplayID(), id.FeatureID())
}

// InstantApplier applies mutations outside of animated transitions.
type InstantApplier interface {
	InstantApplyViaTaskOrganizer(m *wm.Mutation)
	InstantApplyViaShellTransit(m *wm.Mutation)
}

// ViewConfig describes the display area a view hosts.
//
// When used with a display-area group, FeatureID is the group and
// LaunchFeatureID the single task display area inside it. When used with a
// task display area directly both point at it; a zero LaunchFeatureID means
// the same as FeatureID.
type ViewConfig struct {
	Name            string
	DisplayID       int
	FeatureID       int
	LaunchFeatureID int
	CornerRadius    int
	// SyncSurfaceToWm pushes every surface size change to the window manager
	// immediately instead of waiting for a transition.
	SyncSurfaceToWm bool
}

// ViewDeps are the collaborators of a view.
type ViewDeps struct {
	Organizer wm.Organizer
	Backend   platform.Backend
	Applier   InstantApplier
	Logger    *slog.Logger
}

type insetsKey struct {
	index int
	typ   int
}

// View is a surface whose content is the leash of one display area.
type View struct {
	id              ID
	name            string
	displayID       int
	featureID       int
	launchFeatureID int
	cornerRadius    int
	insetsOwner     string

	backend platform.Backend
	applier InstantApplier
	logger  *slog.Logger

	mu             sync.Mutex
	info           wm.DisplayAreaInfo
	hasInfo        bool
	leash          platform.SurfaceID
	surface        platform.SurfaceID
	surfaceCreated bool
	bounds         platform.Rect
	syncToWm       bool
	insets         map[insetsKey]platform.Rect
	obscured       []platform.Rect
}

// NewView creates a view and registers it with the display-area organizer to
// learn the leash of its display area.
func NewView(cfg ViewConfig, deps ViewDeps) (*View, error) {
	if cfg.FeatureID == InvalidFeatureID || cfg.FeatureID == 0 {
		return nil, ErrInvalidFeature
	}
	launch := cfg.LaunchFeatureID
	if launch == 0 || launch == InvalidFeatureID {
		launch = cfg.FeatureID
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	v := &View{
		id:              MakeID(cfg.DisplayID, cfg.FeatureID),
		name:            cfg.Name,
		displayID:       cfg.DisplayID,
		featureID:       cfg.FeatureID,
		launchFeatureID: launch,
		cornerRadius:    cfg.CornerRadius,
		insetsOwner:     uuid.NewString(),
		backend:         deps.Backend,
		applier:         deps.Applier,
		logger:          logger,
		syncToWm:        cfg.SyncSurfaceToWm,
		insets:          make(map[insetsKey]platform.Rect),
	}

	if deps.Organizer != nil {
		appeared, err := deps.Organizer.RegisterOrganizer(cfg.FeatureID, v)
		if err != nil {
			return nil, fmt.Errorf("register organizer for feature %d: %w", cfg.FeatureID, err)
		}
		// (display, feature) is unique, so at most one entry matches.
		for _, a := range appeared {
			if a.Info.DisplayID == cfg.DisplayID {
				v.info = a.Info
				v.hasInfo = true
				v.leash = a.Leash
			}
		}
	}
	return v, nil
}

func (v *View) ID() ID               { return v.id }
func (v *View) Name() string         { return v.name }
func (v *View) DisplayID() int       { return v.displayID }
func (v *View) FeatureID() int       { return v.featureID }
func (v *View) LaunchFeatureID() int { return v.launchFeatureID }
func (v *View) CornerRadius() int    { return v.cornerRadius }
func (v *View) InsetsOwner() string  { return v.insetsOwner }
func (v *View) String() string       { return fmt.Sprintf("DaView{%s id=%s}", v.name, v.id) }
func (v *View) owns(t wm.TaskInfo) bool {
	return t.DisplayAreaFeatureID == v.launchFeatureID && t.DisplayID == v.displayID
}

// Token returns the display area's container token, empty until the display
// area appeared.
func (v *View) Token() wm.Token {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.hasInfo {
		return ""
	}
	return v.info.Token
}

// Leash returns the display area leash the view owns.
func (v *View) Leash() platform.SurfaceID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.leash
}

// Surface returns the render surface the leash is attached to.
func (v *View) Surface() platform.SurfaceID {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.surface
}

// HasSurface reports whether the render surface currently exists.
func (v *View) HasSurface() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.surfaceCreated
}

// Bounds returns the last on-screen bounds reported for the surface.
func (v *View) Bounds() platform.Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bounds
}

// SetSyncSurfaceToWm toggles immediate bounds sync on surface changes.
func (v *View) SetSyncSurfaceToWm(enabled bool) {
	v.mu.Lock()
	v.syncToWm = enabled
	v.mu.Unlock()
}

// OnDisplayAreaAppeared implements wm.DisplayAreaListener.
func (v *View) OnDisplayAreaAppeared(info wm.DisplayAreaInfo, leash platform.SurfaceID) {
	if info.DisplayID != v.displayID {
		return
	}
	v.mu.Lock()
	v.info = info
	v.hasInfo = true
	v.leash = leash
	created, surface := v.surfaceCreated, v.surface
	v.mu.Unlock()

	if !created {
		return
	}
	// A leash handed over again (e.g. after a restart) may carry a stale
	// position, so it is reset to the origin.
	tx := compositor.NewTransaction(v.backend).
		Reparent(leash, surface).
		SetPosition(leash, 0, 0).
		Show(leash)
	if err := tx.Apply(); err != nil {
		v.logger.Warn("failed to attach reappeared leash", "view", v.String(), "error", err)
	}
}

// SurfaceCreated attaches the leash to the newly created render surface and
// syncs the surface bounds to the window manager.
func (v *View) SurfaceCreated(surface platform.SurfaceID, bounds platform.Rect) {
	v.mu.Lock()
	v.surface = surface
	v.surfaceCreated = true
	v.bounds = bounds
	leash := v.leash
	v.mu.Unlock()

	tx := compositor.NewTransaction(v.backend).SetCornerRadius(surface, v.cornerRadius)
	if leash != platform.NoSurface {
		tx.Reparent(leash, surface).
			SetPosition(leash, 0, 0).
			Show(leash)
	}
	if err := tx.Apply(); err != nil {
		v.logger.Warn("failed to attach leash to surface", "view", v.String(), "error", err)
	}
	v.SyncBoundsToWm()
}

// SurfaceChanged records new surface bounds.
func (v *View) SurfaceChanged(bounds platform.Rect) {
	v.mu.Lock()
	v.bounds = bounds
	sync := v.syncToWm
	v.mu.Unlock()

	if sync {
		v.SyncBoundsToWm()
	}
}

// SurfaceDestroyed detaches the leash from the render surface.
func (v *View) SurfaceDestroyed() {
	v.mu.Lock()
	v.surfaceCreated = false
	leash := v.leash
	v.mu.Unlock()

	if leash == platform.NoSurface {
		return
	}
	if err := compositor.NewTransaction(v.backend).Reparent(leash, platform.NoSurface).Apply(); err != nil {
		v.logger.Warn("failed to detach leash", "view", v.String(), "error", err)
	}
}

// SyncBoundsToWm resizes the display area to the surface bounds without an
// animation.
func (v *View) SyncBoundsToWm() {
	token := v.Token()
	if token == "" || v.applier == nil {
		return
	}
	v.applier.InstantApplyViaShellTransit(wm.NewMutation().SetBounds(token, v.Bounds()))
}

// ResyncLeash records ops putting the leash back under the render surface at
// the origin. Does nothing while the surface does not exist.
func (v *View) ResyncLeash(tx *compositor.Transaction) {
	v.mu.Lock()
	created, surface, leash := v.surfaceCreated, v.surface, v.leash
	v.mu.Unlock()

	if !created || leash == platform.NoSurface {
		return
	}
	tx.Reparent(leash, surface).
		SetPosition(leash, 0, 0).
		Show(leash)
}

// SetObscuredTouchRegion marks a region of the view as not touchable. Nil
// clears it.
func (v *View) SetObscuredTouchRegion(region []platform.Rect) {
	v.mu.Lock()
	v.obscured = append([]platform.Rect(nil), region...)
	v.mu.Unlock()
}

// ObscuredTouchRegion returns the non-touchable region.
func (v *View) ObscuredTouchRegion() []platform.Rect {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]platform.Rect(nil), v.obscured...)
}

// AddInsets contributes an insets frame to the display area.
func (v *View) AddInsets(index, typ int, frame platform.Rect) {
	v.mu.Lock()
	v.insets[insetsKey{index, typ}] = frame
	token := v.info.Token
	v.mu.Unlock()

	if v.applier == nil {
		return
	}
	v.applier.InstantApplyViaTaskOrganizer(wm.NewMutation().AddInsetsSource(token, wm.InsetsSource{
		Owner: v.insetsOwner,
		Index: index,
		Type:  typ,
		Frame: frame,
	}))
}

// RemoveInsets withdraws an insets frame added by AddInsets.
func (v *View) RemoveInsets(index, typ int) {
	v.mu.Lock()
	if len(v.insets) == 0 {
		v.mu.Unlock()
		v.logger.Warn("no insets set", "view", v.String())
		return
	}
	key := insetsKey{index, typ}
	if _, ok := v.insets[key]; !ok {
		v.mu.Unlock()
		v.logger.Warn("insets were not added by this view", "view", v.String(), "index", index, "type", typ)
		return
	}
	delete(v.insets, key)
	token := v.info.Token
	v.mu.Unlock()

	if v.applier == nil {
		return
	}
	v.applier.InstantApplyViaTaskOrganizer(wm.NewMutation().RemoveInsetsSource(token, v.insetsOwner, index, typ))
}

// Insets returns the active insets frames ordered by index then type.
func (v *View) Insets() []wm.InsetsSource {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]wm.InsetsSource, 0, len(v.insets))
	for k, frame := range v.insets {
		out = append(out, wm.InsetsSource{Owner: v.insetsOwner, Index: k.index, Type: k.typ, Frame: frame})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Type < out[j].Type
	})
	return out
}
