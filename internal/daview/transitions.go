package daview

import (
	"context"
	"errors"
	"log/slog"

	"github.com/1broseidon/dashell/internal/compositor"
	"github.com/1broseidon/dashell/internal/mainthread"
	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/wm"
)

// AnimationHandler decides which views take part in host-originated
// transitions and plays the animations.
type AnimationHandler interface {
	// HandleOpenTransitionOnDa returns the target states when a task opens
	// in v. It may append ops to m.
	HandleOpenTransitionOnDa(v *View, trigger wm.TaskInfo, m *wm.Mutation) Transaction
	// HandleDisplayChangeTransition returns the target states when a display
	// is resized.
	HandleDisplayChangeTransition(displayID int, newBounds platform.Rect) Transaction
	// PlayAnimation animates to resolved and signals done exactly once.
	PlayAnimation(resolved Transaction, done *Completion)
}

// TaskViewChecker reports tasks hosted by an embedded task view. Their
// leashes are positioned inside the view bounds rather than at the origin.
type TaskViewChecker interface {
	IsTaskViewTask(t wm.TaskInfo) bool
}

// Options configures a Transitions coordinator.
type Options struct {
	Host      wm.Host
	Executor  mainthread.Executor
	Backend   platform.Backend
	TaskViews TaskViewChecker
	// Placeholder is the top activity of the task that marks a display area
	// hidden. Defaults to wm.PlaceholderActivity.
	Placeholder wm.ComponentName
	Logger      *slog.Logger
}

// Transitions coordinates view state changes with host transitions.
//
// Add, Remove, StartTransaction, SetAnimationHandler and the instant apply
// methods may be called from any goroutine. Host callbacks must arrive on the
// executor.
type Transitions struct {
	host        wm.Host
	exec        mainthread.Executor
	backend     platform.Backend
	taskViews   TaskViewChecker
	placeholder wm.ComponentName
	logger      *slog.Logger

	// Owned by the executor.
	registry  *Registry
	store     *Store
	queue     transitionQueue
	active    *pendingTransition
	animation AnimationHandler
}

var _ wm.Handler = (*Transitions)(nil)
var _ InstantApplier = (*Transitions)(nil)

// New creates a coordinator and registers it with the host.
func New(opts Options) (*Transitions, error) {
	if opts.Host == nil {
		return nil, errors.New("transitions: host is required")
	}
	if opts.Executor == nil {
		return nil, errors.New("transitions: executor is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	placeholder := opts.Placeholder
	if placeholder == (wm.ComponentName{}) {
		placeholder = wm.PlaceholderActivity
	}

	t := &Transitions{
		host:        opts.Host,
		exec:        opts.Executor,
		backend:     opts.Backend,
		taskViews:   opts.TaskViews,
		placeholder: placeholder,
		logger:      logger,
		registry:    NewRegistry(),
		store:       NewStore(),
	}
	opts.Host.AddHandler(t)
	return t, nil
}

// Add starts tracking v with a hidden, empty state.
func (t *Transitions) Add(v *View) {
	t.exec.Execute(func() {
		t.registry.Add(v)
		t.store.Track(v)
	})
}

// Remove stops tracking v.
func (t *Transitions) Remove(v *View) {
	t.exec.Execute(func() {
		t.registry.Remove(v)
		t.store.Forget(v)
	})
}

// SetAnimationHandler installs h. Nil disables animations; transitions are
// then left to the host defaults.
func (t *Transitions) SetAnimationHandler(h AnimationHandler) {
	t.exec.Execute(func() {
		t.animation = h
	})
}

// StartTransaction requests the views in tx to move to their target states.
// The committed state changes only once the transition completes.
func (t *Transitions) StartTransaction(tx Transaction) {
	t.exec.Execute(func() {
		t.startTransaction(tx)
	})
}

func (t *Transitions) startTransaction(tx Transaction) {
	requested := t.resolve(tx.States)
	m := wm.NewMutation()
	d := t.differ()
	if tx.AfterPending {
		d.Current = targetLookup{t}
	}
	changed := d.Compute(requested, m)

	if tx.Focus != 0 {
		if v, ok := t.registry.Get(tx.Focus); ok && v.Token() != "" {
			m.Reorder(v.Token(), true, true)
		} else {
			t.logger.Warn("focus view not found", "id", tx.Focus.String())
		}
	}

	if m.Empty() {
		t.logger.Debug("transaction matches committed state, nothing to do")
		return
	}

	kind := wm.TransitOpen
	if tx.Instant {
		kind = wm.TransitChange
	}
	t.logger.Debug("queueing transaction", "views", len(changed), "ops", m.String(), "instant", tx.Instant)
	t.queue.push(&pendingTransition{
		kind:      kind,
		mutation:  m,
		requested: changed,
		instant:   tx.Instant,
	})
	t.startNext()
}

// InstantApplyViaTaskOrganizer applies m directly, outside any transition.
func (t *Transitions) InstantApplyViaTaskOrganizer(m *wm.Mutation) {
	if m.Empty() {
		return
	}
	t.exec.Execute(func() {
		t.host.ApplyTransaction(m)
	})
}

// InstantApplyViaShellTransit runs m as a transition without an animation.
func (t *Transitions) InstantApplyViaShellTransit(m *wm.Mutation) {
	if m.Empty() {
		return
	}
	t.exec.Execute(func() {
		t.queue.push(&pendingTransition{
			kind:      wm.TransitChange,
			mutation:  m,
			requested: map[*View]State{},
			instant:   true,
		})
		t.startNext()
	})
}

// ResyncLeashes puts every view's leash back under its surface.
func (t *Transitions) ResyncLeashes() {
	t.exec.Execute(t.resyncAll)
}

// startNext submits the queue head unless a transition is already in
// flight: claimed by the host or still animating.
func (t *Transitions) startNext() {
	for t.active == nil && t.queue.claimed() == 0 {
		head := t.queue.head()
		if head == nil {
			return
		}
		head.claim = t.host.StartTransition(head.kind, head.mutation, t)
		if head.claim != 0 {
			return
		}
		t.logger.Error("host rejected transition", "ops", head.mutation.String())
		t.queue.remove(head)
	}
}

// HandleRequest implements wm.Handler.
func (t *Transitions) HandleRequest(id wm.TransitionID, req wm.RequestInfo) *wm.Mutation {
	t.logger.Debug("handle request", "transition", id, "type", req.Type.String())

	if dc := req.DisplayChange; dc != nil && dc.EndBounds != nil {
		return t.handleDisplayChange(id, req, *dc)
	}
	if req.TriggerTask == nil {
		return nil
	}
	if !req.Type.IsOpening() {
		t.logger.Debug("request is not an opening transition")
		return nil
	}
	v := t.registry.ByTask(*req.TriggerTask)
	if v == nil {
		t.logger.Debug("trigger task is not in a tracked display area", "task", req.TriggerTask.ID)
		return nil
	}
	if _, ok := t.store.Get(v); !ok {
		t.logger.Debug("display area state not found", "view", v.String())
		return nil
	}
	return t.handleOpen(id, v, req)
}

func (t *Transitions) handleDisplayChange(id wm.TransitionID, req wm.RequestInfo, dc wm.DisplayChange) *wm.Mutation {
	var participants map[*View]State
	if t.animation != nil {
		participants = t.resolve(t.animation.HandleDisplayChangeTransition(dc.DisplayID, *dc.EndBounds).States)
	}
	if len(participants) == 0 {
		t.logger.Error("no participants in display change transition, state may become inconsistent", "display", dc.DisplayID)
		return nil
	}

	m := wm.NewMutation()
	changed := t.differ().Compute(participants, m)
	t.queue.push(&pendingTransition{
		kind:      req.Type,
		mutation:  m,
		requested: changed,
		claim:     id,
	})
	return m
}

func (t *Transitions) handleOpen(id wm.TransitionID, v *View, req wm.RequestInfo) *wm.Mutation {
	d := t.differ()
	m := wm.NewMutation()
	// A translucent activity would otherwise reveal a leftover placeholder.
	d.RemovePlaceholders(v, m)

	var changed map[*View]State
	if t.showPending(v) {
		t.logger.Debug("display area already requested visible", "view", v.String())
	} else {
		var participants map[*View]State
		if t.animation != nil {
			participants = t.resolve(t.animation.HandleOpenTransitionOnDa(v, *req.TriggerTask, m).States)
		}
		if len(participants) == 0 {
			t.logger.Error("no participants in display area transition, state may become inconsistent", "view", v.String())
			return nil
		}
		changed = d.Compute(participants, m)
		if len(changed) == 0 {
			return nil
		}
	}
	if m.Empty() {
		return nil
	}

	m.Reorder(req.TriggerTask.Token, true, true)
	t.queue.push(&pendingTransition{
		kind:      req.Type,
		mutation:  m,
		requested: changed,
		claim:     id,
	})
	return m
}

// showPending reports whether a queued or animating transition already
// makes v visible.
func (t *Transitions) showPending(v *View) bool {
	if t.active != nil {
		if st, ok := t.active.requested[v]; ok && st.Visible {
			return true
		}
	}
	return t.queue.requestsVisible(v)
}

// StartAnimation implements wm.Handler.
func (t *Transitions) StartAnimation(id wm.TransitionID, info wm.TransitionInfo, start, finish *compositor.Transaction, done wm.FinishFunc) bool {
	p := t.queue.find(id)
	if p == nil {
		t.logger.Error("transition is not related to any display area", "transition", id)
		t.resyncAll()
		return false
	}
	t.queue.remove(p)

	if p.instant {
		t.logger.Debug("playing instant transition", "transition", id)
		t.apply(start)
		t.store.Commit(p.requested)
		done()
		t.startNext()
		return true
	}

	changes := t.classify(info, p, start, finish)
	for _, v := range sortedChangeViews(changes) {
		changes[v].typ.logChange(t.logger, v)
	}
	t.configureLeashes(info, p, start, changes)

	if len(p.requested) == 0 || t.animation == nil {
		t.startNext()
		return false
	}

	t.apply(start)
	t.active = p
	completion := newCompletion(t.logger, func(closeDone func()) {
		t.exec.Execute(func() {
			t.store.Commit(p.requested)
			if t.active == p {
				t.active = nil
			}
			done()
			t.startNext()
			closeDone()
		})
	})
	t.animation.PlayAnimation(resolvedTransaction(p.requested), completion)
	return true
}

func (t *Transitions) classify(info wm.TransitionInfo, p *pendingTransition, start, finish *compositor.Transaction) map[*View]*viewChange {
	changes := make(map[*View]*viewChange)
	entry := func(v *View) *viewChange {
		c, ok := changes[v]
		if !ok {
			c = &viewChange{}
			changes[v] = c
		}
		return c
	}

	for _, chg := range info.Changes {
		if v := t.registry.ByToken(chg.Container); v != nil {
			// Display-area level change; only its snapshot matters.
			if chg.Snapshot != platform.NoSurface {
				entry(v).snapshot = chg.Snapshot
			}
			continue
		}
		if chg.Task == nil {
			continue
		}
		task := *chg.Task
		t.logger.Debug("task change", "mode", chg.Mode.String(), "task", task.ID, "activity", task.TopActivity.String())

		v := t.registry.ByTask(task)
		if v == nil {
			t.logger.Warn("changed display area is not tracked", "task", task.ID)
			continue
		}

		v.ResyncLeash(start)
		v.ResyncLeash(finish)

		want, ok := p.requested[v]
		if !ok {
			t.logger.Warn("changed display area is not part of the transition", "view", v.String())
			if v.HasSurface() {
				start.Reparent(chg.Leash, v.Surface()).
					SetPosition(chg.Leash, 0, 0).
					SetAlpha(chg.Leash, 1)
			}
			continue
		}

		cur, known := t.store.Get(v)
		typ := ChangeNone
		if c, ok := changes[v]; ok {
			typ = c.typ
		}
		placeholder := task.TopActivity == t.placeholder

		switch {
		case chg.Mode.IsOpening() && placeholder:
			if known && !cur.Visible {
				t.logger.Warn("display area being hidden is already hidden", "view", v.String())
				continue
			}
			typ = ChangeHide
		case (chg.Mode.IsClosing() && placeholder) || (chg.Mode.IsOpening() && !placeholder):
			if known && cur.Visible {
				t.logger.Warn("display area being shown is already shown", "view", v.String())
				continue
			}
			typ = ChangeShow
		default:
			if known && cur.Bounds == want.Bounds {
				t.logger.Debug("display area already has the requested bounds", "view", v.String())
				continue
			}
			// A task inside an area being shown or hidden may also change
			// bounds; the show or hide wins.
			if typ != ChangeShow && typ != ChangeHide {
				typ = ChangeBounds
			}
		}
		entry(v).typ = typ
	}
	return changes
}

func (t *Transitions) configureLeashes(info wm.TransitionInfo, p *pendingTransition, start *compositor.Transaction, changes map[*View]*viewChange) {
	for _, v := range sortedChangeViews(changes) {
		c := changes[v]
		if c.typ.behavior().attachSnapshot && c.snapshot != platform.NoSurface && v.HasSurface() {
			start.Reparent(c.snapshot, v.Surface())
		}
	}

	for _, chg := range info.Changes {
		if chg.Task == nil {
			continue
		}
		task := *chg.Task
		v := t.registry.ByTask(task)
		if v == nil {
			continue
		}
		c, ok := changes[v]
		if !ok {
			continue
		}
		if _, ok := p.requested[v]; !ok {
			continue
		}
		if task.TopActivity == t.placeholder {
			continue
		}
		if !v.HasSurface() {
			t.logger.Warn("view surface not created, leaving task leash in place", "view", v.String(), "task", task.ID)
			continue
		}

		visible := c.typ.LeashVisible(chg.Mode, c.snapshot != platform.NoSurface)
		x, y := 0, 0
		if visible && t.taskViews != nil && t.taskViews.IsTaskViewTask(task) {
			cur, _ := t.store.Get(v)
			pos := task.Bounds.Offset(cur.Bounds.X, cur.Bounds.Y)
			x, y = pos.X, pos.Y
		}
		alpha := 0.0
		if visible {
			alpha = 1
		}
		start.Reparent(chg.Leash, v.Surface()).
			SetPosition(chg.Leash, x, y).
			SetAlpha(chg.Leash, alpha)
	}
}

// OnTransitionConsumed implements wm.Handler.
func (t *Transitions) OnTransitionConsumed(id wm.TransitionID, aborted bool, finish *compositor.Transaction) {
	t.logger.Debug("transition consumed", "transition", id, "aborted", aborted)
	if !aborted {
		return
	}
	p := t.queue.find(id)
	if p == nil {
		return
	}
	t.queue.remove(p)
	// The visual outcome is unknown; assume the requested state was reached.
	t.logger.Info("transition aborted, committing requested state", "transition", id, "views", len(p.requested))
	t.store.Commit(p.requested)
	t.startNext()
}

func (t *Transitions) resyncAll() {
	tx := compositor.NewTransaction(t.backend)
	for _, v := range t.registry.All() {
		v.ResyncLeash(tx)
	}
	if tx.Len() == 0 {
		return
	}
	t.apply(tx)
}

func (t *Transitions) apply(tx *compositor.Transaction) {
	if tx == nil || tx.Len() == 0 {
		return
	}
	if err := tx.Apply(); err != nil {
		t.logger.Warn("failed to apply surface transaction", "error", err)
	}
}

func (t *Transitions) differ() Differ {
	return Differ{
		Current:     t.store,
		Tasks:       t.host.RunningTasks,
		Placeholder: t.placeholder,
		Logger:      t.logger,
	}
}

// resolve maps view ids to tracked views, dropping unknown ids.
func (t *Transitions) resolve(states map[ID]State) map[*View]State {
	out := make(map[*View]State, len(states))
	for id, st := range states {
		v, ok := t.registry.Get(id)
		if !ok {
			t.logger.Warn("view is not known to the coordinator", "id", id.String())
			continue
		}
		out[v] = st
	}
	return out
}

func resolvedTransaction(states map[*View]State) Transaction {
	out := Transaction{States: make(map[ID]State, len(states))}
	for v, st := range states {
		out.States[v.ID()] = st
	}
	return out
}

func sortedChangeViews(changes map[*View]*viewChange) []*View {
	states := make(map[*View]State, len(changes))
	for v := range changes {
		states[v] = State{}
	}
	return sortedViews(states)
}

// Committed returns the committed state of a tracked view. Must be called on
// the executor, e.g. from AnimationHandler policy callbacks.
func (t *Transitions) Committed(id ID) (State, bool) {
	v, ok := t.registry.Get(id)
	if !ok {
		return State{}, false
	}
	return t.store.Get(v)
}

// Target returns the state a tracked view is headed for: the request of the
// newest queued or animating transition that includes it, else its committed
// state. Must be called on the executor.
func (t *Transitions) Target(id ID) (State, bool) {
	v, ok := t.registry.Get(id)
	if !ok {
		return State{}, false
	}
	return t.target(v)
}

func (t *Transitions) target(v *View) (State, bool) {
	if _, ok := t.store.Get(v); !ok {
		return State{}, false
	}
	if st, ok := t.queue.latest(v); ok {
		return st, true
	}
	if t.active != nil {
		if st, ok := t.active.requested[v]; ok {
			return st, true
		}
	}
	return t.store.Get(v)
}

type targetLookup struct{ t *Transitions }

func (l targetLookup) Get(v *View) (State, bool) { return l.t.target(v) }

// SurfaceStatus is a snapshot of one tracked view.
type SurfaceStatus struct {
	ID              ID            `json:"id"`
	Name            string        `json:"name"`
	DisplayID       int           `json:"display_id"`
	FeatureID       int           `json:"feature_id"`
	LaunchFeatureID int           `json:"launch_feature_id"`
	Visible         bool          `json:"visible"`
	Bounds          platform.Rect `json:"bounds"`
	SurfaceCreated  bool          `json:"surface_created"`
}

// Status is a snapshot of the coordinator.
type Status struct {
	Surfaces            []SurfaceStatus `json:"surfaces"`
	Pending             int             `json:"pending"`
	InFlight            bool            `json:"in_flight"`
	HasAnimationHandler bool            `json:"has_animation_handler"`
}

// Status returns a snapshot taken on the executor.
func (t *Transitions) Status(ctx context.Context) (Status, error) {
	var st Status
	if err := mainthread.Call(ctx, t.exec, func() { st = t.status() }); err != nil {
		return Status{}, err
	}
	return st, nil
}

func (t *Transitions) status() Status {
	st := Status{
		Pending:             t.queue.len(),
		InFlight:            t.active != nil || t.queue.claimed() > 0,
		HasAnimationHandler: t.animation != nil,
	}
	for _, v := range t.registry.All() {
		cur, _ := t.store.Get(v)
		st.Surfaces = append(st.Surfaces, SurfaceStatus{
			ID:              v.ID(),
			Name:            v.Name(),
			DisplayID:       v.DisplayID(),
			FeatureID:       v.FeatureID(),
			LaunchFeatureID: v.LaunchFeatureID(),
			Visible:         cur.Visible,
			Bounds:          cur.Bounds,
			SurfaceCreated:  v.HasSurface(),
		})
	}
	return st
}
