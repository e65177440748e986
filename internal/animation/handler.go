// Package animation provides the default display-area animation handler:
// a group-exclusive open policy, proportional display-resize policy and eased
// bounds/alpha playback on the compositor backend.
package animation

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/1broseidon/dashell/internal/compositor"
	"github.com/1broseidon/dashell/internal/daview"
	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/wm"
)

// DefaultFrameInterval is roughly 60 frames per second.
const DefaultFrameInterval = 16 * time.Millisecond

// Area registers a view with the handler. Views sharing a non-empty Group on
// the same display are mutually exclusive: opening one hides the others.
type Area struct {
	View  *daview.View
	Group string
	Home  platform.Rect
}

// Config configures a Handler.
type Config struct {
	Backend       platform.Backend
	Duration      time.Duration
	Easing        EasingFunc
	FrameInterval time.Duration
	// State returns the committed state of a view. Called from the policy
	// callbacks, which run on the coordinator's executor.
	State  func(id daview.ID) (daview.State, bool)
	Logger *slog.Logger
}

type areaState struct {
	view    *daview.View
	group   string
	home    platform.Rect
	visible bool
	bounds  platform.Rect
}

// Handler implements daview.AnimationHandler.
type Handler struct {
	backend platform.Backend
	frame   time.Duration
	state   func(id daview.ID) (daview.State, bool)
	logger  *slog.Logger

	mu       sync.Mutex
	duration time.Duration
	easing   EasingFunc
	areas    map[daview.ID]*areaState
	displays map[int]platform.Rect

	wg       sync.WaitGroup
	stop     chan struct{}
	stopOnce sync.Once
}

var _ daview.AnimationHandler = (*Handler)(nil)

// New creates a handler. Display bounds are read from the backend once.
func New(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	easing := cfg.Easing
	if easing == nil {
		easing = EaseSmoothstep
	}
	frame := cfg.FrameInterval
	if frame <= 0 {
		frame = DefaultFrameInterval
	}

	h := &Handler{
		backend:  cfg.Backend,
		frame:    frame,
		state:    cfg.State,
		logger:   logger,
		duration: cfg.Duration,
		easing:   easing,
		areas:    make(map[daview.ID]*areaState),
		displays: make(map[int]platform.Rect),
		stop:     make(chan struct{}),
	}
	if cfg.Backend != nil {
		displays, err := cfg.Backend.Displays()
		if err != nil {
			logger.Warn("failed to read displays", "error", err)
		}
		for _, d := range displays {
			h.displays[d.ID] = d.Bounds
		}
	}
	return h
}

// Register adds or replaces an area.
func (h *Handler) Register(a Area) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.areas[a.View.ID()] = &areaState{
		view:  a.View,
		group: a.Group,
		home:  a.Home,
	}
}

// SetTiming changes duration and easing for animations started afterwards.
func (h *Handler) SetTiming(duration time.Duration, easing EasingFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.duration = duration
	if easing != nil {
		h.easing = easing
	}
}

// Home returns the current home bounds of an area.
func (h *Handler) Home(id daview.ID) (platform.Rect, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.areas[id]
	if !ok {
		return platform.Rect{}, false
	}
	return a.home, true
}

// SetHome moves the home bounds of an area. Later shows and display
// resizes start from it.
func (h *Handler) SetHome(id daview.ID, home platform.Rect) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.areas[id]
	if ok {
		a.home = home
	}
	return ok
}

// ShowTransaction builds the transaction that shows or hides an area at its
// home bounds. Showing also hides the other areas of its group.
func (h *Handler) ShowTransaction(id daview.ID, visible bool) (daview.Transaction, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.areas[id]
	if !ok {
		return daview.Transaction{}, false
	}
	if visible {
		return h.exclusiveLocked(id, a), true
	}
	return daview.Transaction{States: map[daview.ID]daview.State{
		id: {Visible: false, Bounds: a.home},
	}}, true
}

// HandleOpenTransitionOnDa shows v and hides its group siblings.
func (h *Handler) HandleOpenTransitionOnDa(v *daview.View, trigger wm.TaskInfo, _ *wm.Mutation) daview.Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	a, ok := h.areas[v.ID()]
	if !ok {
		h.logger.Debug("open on unregistered area", "view", v.String(), "task", trigger.ID)
		return daview.Transaction{}
	}
	return h.exclusiveLocked(v.ID(), a)
}

func (h *Handler) exclusiveLocked(id daview.ID, target *areaState) daview.Transaction {
	tx := daview.Transaction{
		States: map[daview.ID]daview.State{id: {Visible: true, Bounds: target.home}},
		Focus:  id,
	}
	if target.group == "" {
		return tx
	}
	for otherID, other := range h.areas {
		if otherID == id || other.group != target.group || other.view.DisplayID() != target.view.DisplayID() {
			continue
		}
		tx.States[otherID] = daview.State{Visible: false, Bounds: other.home}
	}
	return tx
}

// HandleDisplayChangeTransition scales every area on the display
// proportionally to the new display bounds, keeping visibility.
func (h *Handler) HandleDisplayChangeTransition(displayID int, newBounds platform.Rect) daview.Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()

	old, known := h.displays[displayID]
	h.displays[displayID] = newBounds

	tx := daview.Transaction{States: make(map[daview.ID]daview.State)}
	for id, a := range h.areas {
		if a.view.DisplayID() != displayID {
			continue
		}
		if known && !old.Empty() {
			a.home = scaleRect(a.home, old, newBounds)
		}
		visible := a.visible
		if h.state != nil {
			if st, ok := h.state(id); ok {
				visible = st.Visible
			}
		}
		tx.States[id] = daview.State{Visible: visible, Bounds: a.home}
	}
	return tx
}

type track struct {
	view      *daview.View
	from, to  platform.Rect
	fromAlpha float64
	toAlpha   float64
	visible   bool
}

// PlayAnimation animates the view surfaces off the caller's goroutine and
// signals done when the last frame is applied.
func (h *Handler) PlayAnimation(resolved daview.Transaction, done *daview.Completion) {
	h.mu.Lock()
	duration, easing := h.duration, h.easing
	ids := make([]daview.ID, 0, len(resolved.States))
	for id := range resolved.States {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tracks := make([]track, 0, len(ids))
	for _, id := range ids {
		st := resolved.States[id]
		a, ok := h.areas[id]
		if !ok {
			h.logger.Warn("animating unregistered area", "id", id.String())
			continue
		}
		tr := track{
			view:    a.view,
			from:    a.bounds,
			to:      st.Bounds,
			toAlpha: alphaFor(st.Visible),
			visible: st.Visible,
		}
		tr.fromAlpha = alphaFor(a.visible)
		if tr.from.Empty() {
			tr.from = st.Bounds
		}
		a.visible = st.Visible
		a.bounds = st.Bounds
		tracks = append(tracks, tr)
	}
	h.mu.Unlock()

	h.wg.Add(1)
	go h.play(tracks, duration, easing, done)
}

func (h *Handler) play(tracks []track, duration time.Duration, easing EasingFunc, done *daview.Completion) {
	defer h.wg.Done()
	defer func() {
		if err := recover(); err != nil {
			h.logger.Error("animation panic recovered", "error", err)
		}
		if err := done.Finish(); err != nil {
			h.logger.Warn("animation completion failed", "error", err)
		}
	}()

	h.applyFrame(tracks, 0, true)
	if duration > 0 {
		h.run(tracks, duration, easing)
	}
	h.applyFinal(tracks)
}

func (h *Handler) run(tracks []track, duration time.Duration, easing EasingFunc) {
	ticker := time.NewTicker(h.frame)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-h.stop:
			return
		case now := <-ticker.C:
			progress := float64(now.Sub(start)) / float64(duration)
			if progress >= 1 {
				return
			}
			h.applyFrame(tracks, easing(progress), false)
		}
	}
}

func (h *Handler) applyFrame(tracks []track, t float64, first bool) {
	tx := compositor.NewTransaction(h.backend)
	for _, tr := range tracks {
		if !tr.view.HasSurface() {
			continue
		}
		surface := tr.view.Surface()
		if first && tr.visible {
			tx.Show(surface)
		}
		tx.SetBounds(surface, lerpRect(tr.from, tr.to, t)).
			SetAlpha(surface, lerp(tr.fromAlpha, tr.toAlpha, t))
	}
	h.apply(tx)
}

func (h *Handler) applyFinal(tracks []track) {
	tx := compositor.NewTransaction(h.backend)
	for _, tr := range tracks {
		if !tr.view.HasSurface() {
			continue
		}
		surface := tr.view.Surface()
		tx.SetBounds(surface, tr.to).SetAlpha(surface, tr.toAlpha)
		if !tr.visible {
			tx.Hide(surface)
		}
	}
	h.apply(tx)
}

func (h *Handler) apply(tx *compositor.Transaction) {
	if h.backend == nil || tx.Len() == 0 {
		return
	}
	if err := tx.Apply(); err != nil {
		h.logger.Warn("failed to apply animation frame", "error", err)
	}
}

// Wait blocks until running animations finished.
func (h *Handler) Wait() { h.wg.Wait() }

// Close jumps running animations to their final frame and waits for them.
func (h *Handler) Close() {
	h.stopOnce.Do(func() { close(h.stop) })
	h.wg.Wait()
}

func alphaFor(visible bool) float64 {
	if visible {
		return 1
	}
	return 0
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpInt(a, b int, t float64) int {
	return a + int(math.Round(float64(b-a)*t))
}

func lerpRect(a, b platform.Rect, t float64) platform.Rect {
	return platform.Rect{
		X:      lerpInt(a.X, b.X, t),
		Y:      lerpInt(a.Y, b.Y, t),
		Width:  lerpInt(a.Width, b.Width, t),
		Height: lerpInt(a.Height, b.Height, t),
	}
}

// scaleRect maps r from the old display bounds into the new ones.
func scaleRect(r, from, to platform.Rect) platform.Rect {
	sx := func(v int) int { return to.X + (v-from.X)*to.Width/from.Width }
	sy := func(v int) int { return to.Y + (v-from.Y)*to.Height/from.Height }
	x0, y0 := sx(r.X), sy(r.Y)
	x1, y1 := sx(r.X+r.Width), sy(r.Y+r.Height)
	return platform.Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
