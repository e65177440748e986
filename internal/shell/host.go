// Package shell is an in-process window manager host. It owns display areas
// and tasks, dispatches transition requests and animations to registered
// handlers and falls back to applying changes directly when no handler takes
// a transition.
package shell

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/1broseidon/dashell/internal/compositor"
	"github.com/1broseidon/dashell/internal/mainthread"
	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/wm"
)

var (
	ErrUnknownDisplayArea = errors.New("display area not found")
	ErrUnknownTask        = errors.New("task not found")
)

// Options configures a Host.
type Options struct {
	Backend     platform.Backend
	Executor    mainthread.Executor
	Placeholder wm.ComponentName
	Logger      *slog.Logger
}

// AreaSpec describes a display area to create. Tasks launch into
// LaunchFeatureID; zero means FeatureID.
type AreaSpec struct {
	DisplayID       int
	FeatureID       int
	LaunchFeatureID int
	Bounds          platform.Rect
}

// LaunchRequest starts a task in a display area.
type LaunchRequest struct {
	DisplayID       int
	LaunchFeatureID int
	Activity        wm.ComponentName
	// TaskView marks the task as hosted by an embedded task view.
	TaskView bool
}

// AreaInfo is a snapshot of a display area.
type AreaInfo struct {
	Token           wm.Token      `json:"token"`
	DisplayID       int           `json:"display_id"`
	FeatureID       int           `json:"feature_id"`
	LaunchFeatureID int           `json:"launch_feature_id"`
	Bounds          platform.Rect `json:"bounds"`
	Insets          int           `json:"insets"`
}

type displayArea struct {
	info   wm.DisplayAreaInfo
	launch int
	leash  platform.SurfaceID
	bounds platform.Rect
	insets map[wm.InsetsSource]platform.Rect
}

type task struct {
	info     wm.TaskInfo
	leash    platform.SurfaceID
	taskView bool
}

// Host implements wm.Host and wm.Organizer.
type Host struct {
	backend     platform.Backend
	exec        mainthread.Executor
	placeholder wm.ComponentName
	logger      *slog.Logger

	mu         sync.Mutex
	areas      []*displayArea
	tasks      []*task
	handlers   []wm.Handler
	listeners  map[int][]wm.DisplayAreaListener
	nextTaskID int
	nextID     wm.TransitionID
}

var (
	_ wm.Host      = (*Host)(nil)
	_ wm.Organizer = (*Host)(nil)
)

// New creates an empty host.
func New(opts Options) (*Host, error) {
	if opts.Backend == nil {
		return nil, errors.New("shell: backend is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("shell: executor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	placeholder := opts.Placeholder
	if placeholder == (wm.ComponentName{}) {
		placeholder = wm.PlaceholderActivity
	}
	return &Host{
		backend:     opts.Backend,
		exec:        opts.Executor,
		placeholder: placeholder,
		logger:      logger,
		listeners:   make(map[int][]wm.DisplayAreaListener),
	}, nil
}

func areaToken(displayID, featureID int) wm.Token {
	return wm.Token(fmt.Sprintf("da:%d:%d", displayID, featureID))
}

func taskToken(id int) wm.Token {
	return wm.Token(fmt.Sprintf("task:%d", id))
}

// AddDisplayArea creates a display area and its leash, and notifies
// organizers registered for its feature.
func (h *Host) AddDisplayArea(spec AreaSpec) (wm.DisplayAreaInfo, error) {
	launch := spec.LaunchFeatureID
	if launch == 0 {
		launch = spec.FeatureID
	}

	h.mu.Lock()
	for _, a := range h.areas {
		if a.info.DisplayID == spec.DisplayID && (a.info.FeatureID == spec.FeatureID || a.launch == launch) {
			h.mu.Unlock()
			return wm.DisplayAreaInfo{}, fmt.Errorf("display area %d:%d already exists", spec.DisplayID, spec.FeatureID)
		}
	}
	h.mu.Unlock()

	leash, err := h.backend.CreateSurface(platform.NoSurface, platform.Rect{Width: spec.Bounds.Width, Height: spec.Bounds.Height})
	if err != nil {
		return wm.DisplayAreaInfo{}, fmt.Errorf("create leash for display area %d:%d: %w", spec.DisplayID, spec.FeatureID, err)
	}

	area := &displayArea{
		info: wm.DisplayAreaInfo{
			Token:     areaToken(spec.DisplayID, spec.FeatureID),
			DisplayID: spec.DisplayID,
			FeatureID: spec.FeatureID,
		},
		launch: launch,
		leash:  leash,
		bounds: spec.Bounds,
		insets: make(map[wm.InsetsSource]platform.Rect),
	}

	h.mu.Lock()
	h.areas = append(h.areas, area)
	listeners := append([]wm.DisplayAreaListener(nil), h.listeners[spec.FeatureID]...)
	h.mu.Unlock()

	for _, l := range listeners {
		l.OnDisplayAreaAppeared(area.info, leash)
	}
	return area.info, nil
}

// RegisterOrganizer implements wm.Organizer.
func (h *Host) RegisterOrganizer(featureID int, l wm.DisplayAreaListener) ([]wm.DisplayAreaAppeared, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l != nil {
		h.listeners[featureID] = append(h.listeners[featureID], l)
	}
	var out []wm.DisplayAreaAppeared
	for _, a := range h.areas {
		if a.info.FeatureID == featureID {
			out = append(out, wm.DisplayAreaAppeared{Info: a.info, Leash: a.leash})
		}
	}
	return out, nil
}

// AddHandler implements wm.Host.
func (h *Host) AddHandler(handler wm.Handler) {
	h.mu.Lock()
	h.handlers = append(h.handlers, handler)
	h.mu.Unlock()
}

// RunningTasks implements wm.Host. Tasks are ordered bottom to top.
func (h *Host) RunningTasks() []wm.TaskInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]wm.TaskInfo, 0, len(h.tasks))
	for _, t := range h.tasks {
		out = append(out, t.info)
	}
	return out
}

// Areas returns the display areas in creation order.
func (h *Host) Areas() []AreaInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]AreaInfo, 0, len(h.areas))
	for _, a := range h.areas {
		out = append(out, AreaInfo{
			Token:           a.info.Token,
			DisplayID:       a.info.DisplayID,
			FeatureID:       a.info.FeatureID,
			LaunchFeatureID: a.launch,
			Bounds:          a.bounds,
			Insets:          len(a.insets),
		})
	}
	return out
}

// IsTaskViewTask reports tasks launched with LaunchRequest.TaskView.
func (h *Host) IsTaskViewTask(t wm.TaskInfo) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cur := range h.tasks {
		if cur.info.ID == t.ID {
			return cur.taskView
		}
	}
	return false
}

// StartTransition implements wm.Host. The transition plays on the executor
// after the caller returns.
func (h *Host) StartTransition(kind wm.TransitionType, m *wm.Mutation, handler wm.Handler) wm.TransitionID {
	id := h.newTransitionID()
	h.exec.Execute(func() {
		h.play(id, kind, m, handler, nil)
	})
	return id
}

// ApplyTransaction implements wm.Host.
func (h *Host) ApplyTransaction(m *wm.Mutation) {
	if _, _, err := h.applyMutation(m, nil); err != nil {
		h.logger.Warn("failed to apply mutation", "ops", m.String(), "error", err)
	}
}

// LaunchTask starts a task and runs the resulting open transition. Handlers
// may claim the transition while it is requested.
func (h *Host) LaunchTask(ctx context.Context, req LaunchRequest) (wm.TaskInfo, error) {
	h.mu.Lock()
	area := h.areaByLaunch(req.DisplayID, req.LaunchFeatureID)
	if area == nil {
		h.mu.Unlock()
		return wm.TaskInfo{}, fmt.Errorf("launch into %d:%d: %w", req.DisplayID, req.LaunchFeatureID, ErrUnknownDisplayArea)
	}
	h.nextTaskID++
	info := wm.TaskInfo{
		ID:                   h.nextTaskID,
		Token:                taskToken(h.nextTaskID),
		DisplayID:            req.DisplayID,
		DisplayAreaFeatureID: area.launch,
		TopActivity:          req.Activity,
		Bounds:               platform.Rect{Width: area.bounds.Width, Height: area.bounds.Height},
	}
	h.mu.Unlock()

	launch := &task{info: info, taskView: req.TaskView}
	err := mainthread.Call(ctx, h.exec, func() {
		h.request(wm.TransitOpen, wm.RequestInfo{Type: wm.TransitOpen, TriggerTask: &info}, wm.NewMutation(), launch)
	})
	if err != nil {
		return wm.TaskInfo{}, err
	}
	return info, nil
}

// CloseTask finishes a task through a close transition.
func (h *Host) CloseTask(ctx context.Context, taskID int) error {
	h.mu.Lock()
	var info *wm.TaskInfo
	for _, t := range h.tasks {
		if t.info.ID == taskID {
			cp := t.info
			info = &cp
		}
	}
	h.mu.Unlock()
	if info == nil {
		return fmt.Errorf("close task %d: %w", taskID, ErrUnknownTask)
	}
	return mainthread.Call(ctx, h.exec, func() {
		h.request(wm.TransitClose, wm.RequestInfo{Type: wm.TransitClose, TriggerTask: info}, wm.NewMutation().RemoveTask(info.Token), nil)
	})
}

// ChangeDisplaySize resizes a display through a change transition.
func (h *Host) ChangeDisplaySize(ctx context.Context, displayID int, bounds platform.Rect) error {
	if resizer, ok := h.backend.(interface {
		SetDisplayBounds(int, platform.Rect) error
	}); ok {
		if err := resizer.SetDisplayBounds(displayID, bounds); err != nil {
			return err
		}
	}
	end := bounds
	return mainthread.Call(ctx, h.exec, func() {
		h.request(wm.TransitChange, wm.RequestInfo{
			Type:          wm.TransitChange,
			DisplayChange: &wm.DisplayChange{DisplayID: displayID, EndBounds: &end},
		}, wm.NewMutation(), nil)
	})
}

// request asks handlers to claim a host-originated transition and posts its
// playback. Runs on the executor.
func (h *Host) request(kind wm.TransitionType, req wm.RequestInfo, base *wm.Mutation, launch *task) {
	id := h.newTransitionID()
	var owner wm.Handler
	merged := wm.NewMutation()
	for _, handler := range h.handlerList() {
		if m := handler.HandleRequest(id, req); m != nil {
			owner = handler
			merged.Merge(m)
			break
		}
	}
	merged.Merge(base)
	h.exec.Execute(func() {
		h.play(id, kind, merged, owner, launch)
	})
}

func (h *Host) play(id wm.TransitionID, kind wm.TransitionType, m *wm.Mutation, owner wm.Handler, launch *task) {
	changes, closed, err := h.applyMutation(m, launch)
	if err != nil {
		h.logger.Warn("aborting transition", "transition", id, "error", err)
		for _, handler := range h.handlerList() {
			handler.OnTransitionConsumed(id, true, nil)
		}
		return
	}

	start := compositor.NewTransaction(h.backend)
	finish := compositor.NewTransaction(h.backend)
	var once sync.Once
	done := func() {
		once.Do(func() {
			h.applyLogged(finish)
			for _, leash := range closed {
				if err := h.backend.DestroySurface(leash); err != nil {
					h.logger.Debug("failed to destroy task leash", "leash", leash, "error", err)
				}
			}
		})
	}

	info := wm.TransitionInfo{Type: kind, Changes: changes}
	for _, handler := range h.orderedHandlers(owner) {
		if handler.StartAnimation(id, info, start, finish, done) {
			return
		}
	}

	// Nobody animated it: put task leashes in their display areas.
	for _, chg := range changes {
		if chg.Task == nil || chg.Leash == platform.NoSurface {
			continue
		}
		area := h.areaForTask(*chg.Task)
		if area != nil {
			start.Reparent(chg.Leash, area.leash).SetPosition(chg.Leash, 0, 0)
		}
		if chg.Mode.IsClosing() {
			start.Hide(chg.Leash)
		} else {
			start.Show(chg.Leash).SetAlpha(chg.Leash, 1)
		}
	}
	h.applyLogged(start)
	done()
}

// applyMutation validates and applies m, returning the transition changes
// and the leashes of closed tasks. Nothing is applied when an op refers to
// an unknown container.
func (h *Host) applyMutation(m *wm.Mutation, launch *task) ([]wm.Change, []platform.SurfaceID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ops := m.Ops()
	if err := h.validateLocked(ops, launch); err != nil {
		return nil, nil, err
	}

	var (
		changes []wm.Change
		closed  []platform.SurfaceID
	)
	if launch != nil {
		t, err := h.startTaskLocked(launch)
		if err != nil {
			return nil, nil, err
		}
		info := t.info
		changes = append(changes, wm.Change{Container: info.Token, Mode: wm.TransitOpen, Task: &info, Leash: t.leash})
	}
	// A task opened or closed in this transition gets no extra bounds change.
	changed := func(tok wm.Token) bool {
		for _, c := range changes {
			if c.Container == tok {
				return true
			}
		}
		return false
	}

	for _, op := range ops {
		switch op.Kind {
		case wm.OpSetBounds:
			if area := h.areaByTokenLocked(op.Container); area != nil {
				area.bounds = op.Bounds
				changes = append(changes, wm.Change{Container: area.info.Token, Mode: wm.TransitChange, Leash: area.leash})
				if top := h.topTaskLocked(area); top != nil && !changed(top.info.Token) {
					top.info.Bounds = platform.Rect{Width: op.Bounds.Width, Height: op.Bounds.Height}
					info := top.info
					changes = append(changes, wm.Change{Container: info.Token, Mode: wm.TransitChange, Task: &info, Leash: top.leash})
				}
				continue
			}
			if t := h.taskByTokenLocked(op.Container); t != nil {
				t.info.Bounds = op.Bounds
			}
		case wm.OpLaunchPlaceholder:
			t, err := h.startTaskLocked(&task{info: wm.TaskInfo{
				DisplayID:            op.DisplayID,
				DisplayAreaFeatureID: op.LaunchFeatureID,
				TopActivity:          h.placeholder,
			}})
			if err != nil {
				return nil, nil, err
			}
			info := t.info
			changes = append(changes, wm.Change{Container: info.Token, Mode: wm.TransitOpen, Task: &info, Leash: t.leash})
		case wm.OpRemoveTask:
			for i, t := range h.tasks {
				if t.info.Token != op.Container {
					continue
				}
				h.tasks = append(h.tasks[:i], h.tasks[i+1:]...)
				info := t.info
				changes = append(changes, wm.Change{Container: info.Token, Mode: wm.TransitClose, Task: &info, Leash: t.leash})
				closed = append(closed, t.leash)
				break
			}
		case wm.OpReorder:
			for i, t := range h.tasks {
				if t.info.Token == op.Container && op.OnTop {
					h.tasks = append(append(h.tasks[:i:i], h.tasks[i+1:]...), t)
					break
				}
			}
		case wm.OpAddInsetsSource:
			if area := h.areaByTokenLocked(op.Container); area != nil {
				key := op.Insets
				key.Frame = platform.Rect{}
				area.insets[key] = op.Insets.Frame
			}
		case wm.OpRemoveInsetsSource:
			if area := h.areaByTokenLocked(op.Container); area != nil {
				key := op.Insets
				key.Frame = platform.Rect{}
				delete(area.insets, key)
			}
		}
	}
	return changes, closed, nil
}

func (h *Host) validateLocked(ops []wm.Op, launch *task) error {
	knownTask := func(tok wm.Token) bool {
		return h.taskByTokenLocked(tok) != nil || (launch != nil && launch.info.Token == tok)
	}
	for _, op := range ops {
		switch op.Kind {
		case wm.OpSetBounds, wm.OpReorder:
			if h.areaByTokenLocked(op.Container) == nil && !knownTask(op.Container) {
				return fmt.Errorf("%s %s: %w", op.Kind, op.Container, ErrUnknownDisplayArea)
			}
		case wm.OpAddInsetsSource, wm.OpRemoveInsetsSource:
			if h.areaByTokenLocked(op.Container) == nil {
				return fmt.Errorf("%s %s: %w", op.Kind, op.Container, ErrUnknownDisplayArea)
			}
		case wm.OpLaunchPlaceholder:
			if h.areaByLaunch(op.DisplayID, op.LaunchFeatureID) == nil {
				return fmt.Errorf("%s %d:%d: %w", op.Kind, op.DisplayID, op.LaunchFeatureID, ErrUnknownDisplayArea)
			}
		case wm.OpRemoveTask:
			if !knownTask(op.Container) {
				return fmt.Errorf("%s %s: %w", op.Kind, op.Container, ErrUnknownTask)
			}
		}
	}
	return nil
}

func (h *Host) startTaskLocked(t *task) (*task, error) {
	if t.info.Token == "" {
		h.nextTaskID++
		t.info.ID = h.nextTaskID
		t.info.Token = taskToken(h.nextTaskID)
	}
	area := h.areaByLaunch(t.info.DisplayID, t.info.DisplayAreaFeatureID)
	if area == nil {
		return nil, fmt.Errorf("start task %d: %w", t.info.ID, ErrUnknownDisplayArea)
	}
	t.info.Bounds = platform.Rect{Width: area.bounds.Width, Height: area.bounds.Height}
	leash, err := h.backend.CreateSurface(area.leash, t.info.Bounds)
	if err != nil {
		return nil, fmt.Errorf("create task leash: %w", err)
	}
	t.leash = leash
	h.tasks = append(h.tasks, t)
	return t, nil
}

func (h *Host) areaByLaunch(displayID, launchFeatureID int) *displayArea {
	for _, a := range h.areas {
		if a.info.DisplayID == displayID && a.launch == launchFeatureID {
			return a
		}
	}
	return nil
}

func (h *Host) areaByTokenLocked(tok wm.Token) *displayArea {
	for _, a := range h.areas {
		if a.info.Token == tok {
			return a
		}
	}
	return nil
}

func (h *Host) taskByTokenLocked(tok wm.Token) *task {
	for _, t := range h.tasks {
		if t.info.Token == tok {
			return t
		}
	}
	return nil
}

func (h *Host) topTaskLocked(area *displayArea) *task {
	for i := len(h.tasks) - 1; i >= 0; i-- {
		t := h.tasks[i]
		if t.info.DisplayID == area.info.DisplayID && t.info.DisplayAreaFeatureID == area.launch {
			return t
		}
	}
	return nil
}

func (h *Host) areaForTask(t wm.TaskInfo) *displayArea {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.areaByLaunch(t.DisplayID, t.DisplayAreaFeatureID)
}

func (h *Host) handlerList() []wm.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]wm.Handler(nil), h.handlers...)
}

// orderedHandlers puts owner first.
func (h *Host) orderedHandlers(owner wm.Handler) []wm.Handler {
	all := h.handlerList()
	if owner == nil {
		return all
	}
	out := []wm.Handler{owner}
	for _, handler := range all {
		if handler != owner {
			out = append(out, handler)
		}
	}
	return out
}

func (h *Host) newTransitionID() wm.TransitionID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	return h.nextID
}

func (h *Host) applyLogged(tx *compositor.Transaction) {
	if tx.Len() == 0 {
		return
	}
	if err := tx.Apply(); err != nil {
		h.logger.Warn("failed to apply surface transaction", "error", err)
	}
}
