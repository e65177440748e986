package daview

import (
	"fmt"
	"testing"

	"github.com/1broseidon/dashell/internal/compositor"
	"github.com/1broseidon/dashell/internal/mainthread"
	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/wm"
)

type startedTransition struct {
	id       wm.TransitionID
	kind     wm.TransitionType
	mutation *wm.Mutation
}

// fakeHost records transitions instead of running them.
type fakeHost struct {
	handlers []wm.Handler
	nextID   wm.TransitionID
	started  []startedTransition
	applied  []*wm.Mutation
	tasks    []wm.TaskInfo
}

func (h *fakeHost) AddHandler(handler wm.Handler) { h.handlers = append(h.handlers, handler) }

func (h *fakeHost) StartTransition(kind wm.TransitionType, m *wm.Mutation, _ wm.Handler) wm.TransitionID {
	h.nextID++
	h.started = append(h.started, startedTransition{id: h.nextID, kind: kind, mutation: m})
	return h.nextID
}

func (h *fakeHost) ApplyTransaction(m *wm.Mutation) { h.applied = append(h.applied, m) }

func (h *fakeHost) RunningTasks() []wm.TaskInfo { return append([]wm.TaskInfo(nil), h.tasks...) }

// fakeOrganizer hands out one leash per (display, feature).
type fakeOrganizer struct {
	backend *platform.MemoryBackend
	display int
}

func (o *fakeOrganizer) RegisterOrganizer(featureID int, _ wm.DisplayAreaListener) ([]wm.DisplayAreaAppeared, error) {
	leash, err := o.backend.CreateSurface(platform.NoSurface, platform.Rect{})
	if err != nil {
		return nil, err
	}
	return []wm.DisplayAreaAppeared{{
		Info: wm.DisplayAreaInfo{
			Token:     wm.Token(fmt.Sprintf("da:%d:%d", o.display, featureID)),
			DisplayID: o.display,
			FeatureID: featureID,
		},
		Leash: leash,
	}}, nil
}

type fakeAnimation struct {
	open        Transaction
	display     Transaction
	openCalls   int
	played      []Transaction
	completions []*Completion
}

func (a *fakeAnimation) HandleOpenTransitionOnDa(*View, wm.TaskInfo, *wm.Mutation) Transaction {
	a.openCalls++
	return a.open
}

func (a *fakeAnimation) HandleDisplayChangeTransition(int, platform.Rect) Transaction {
	return a.display
}

func (a *fakeAnimation) PlayAnimation(resolved Transaction, done *Completion) {
	a.played = append(a.played, resolved)
	a.completions = append(a.completions, done)
}

type taskViewSet map[int]bool

func (s taskViewSet) IsTaskViewTask(t wm.TaskInfo) bool { return s[t.ID] }

type harness struct {
	t       *testing.T
	exec    *mainthread.Manual
	backend *platform.MemoryBackend
	host    *fakeHost
	anim    *fakeAnimation
	tr      *Transitions
}

func newHarness(t *testing.T, taskViews TaskViewChecker) *harness {
	t.Helper()
	h := &harness{
		t:       t,
		exec:    &mainthread.Manual{},
		backend: platform.NewMemoryBackend(),
		host:    &fakeHost{},
		anim:    &fakeAnimation{},
	}
	tr, err := New(Options{
		Host:      h.host,
		Executor:  h.exec,
		Backend:   h.backend,
		TaskViews: taskViews,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.tr = tr
	tr.SetAnimationHandler(h.anim)
	h.exec.Drain()
	return h
}

// addView creates and tracks a view whose surface exists.
func (h *harness) addView(name string, featureID int) *View {
	h.t.Helper()
	v, err := NewView(ViewConfig{Name: name, DisplayID: 0, FeatureID: featureID}, ViewDeps{
		Organizer: &fakeOrganizer{backend: h.backend},
		Backend:   h.backend,
	})
	if err != nil {
		h.t.Fatalf("NewView: %v", err)
	}
	surface, err := h.backend.CreateSurface(platform.NoSurface, platform.Rect{Width: 100, Height: 100})
	if err != nil {
		h.t.Fatalf("CreateSurface: %v", err)
	}
	v.SurfaceCreated(surface, platform.Rect{Width: 100, Height: 100})
	h.tr.Add(v)
	h.exec.Drain()
	return v
}

func (h *harness) committed(v *View) State {
	h.t.Helper()
	st, ok := h.tr.store.Get(v)
	if !ok {
		h.t.Fatalf("%s is not tracked", v)
	}
	return st
}

func (h *harness) newTask(id int, v *View, activity wm.ComponentName) wm.TaskInfo {
	return wm.TaskInfo{
		ID:                   id,
		Token:                wm.Token(fmt.Sprintf("task:%d", id)),
		DisplayID:            v.DisplayID(),
		DisplayAreaFeatureID: v.LaunchFeatureID(),
		TopActivity:          activity,
	}
}

func (h *harness) newLeash() platform.SurfaceID {
	h.t.Helper()
	id, err := h.backend.CreateSurface(platform.NoSurface, platform.Rect{})
	if err != nil {
		h.t.Fatalf("CreateSurface: %v", err)
	}
	return id
}

func (h *harness) startAnimation(id wm.TransitionID, info wm.TransitionInfo) (bool, *int) {
	finished := 0
	ok := h.tr.StartAnimation(id, info,
		compositor.NewTransaction(h.backend),
		compositor.NewTransaction(h.backend),
		func() { finished++ })
	return ok, &finished
}

var (
	appActivity = wm.ComponentName{Package: "com.example.maps", Class: ".Main"}
	r1          = platform.Rect{X: 0, Y: 0, Width: 400, Height: 300}
	r2          = platform.Rect{X: 0, Y: 300, Width: 400, Height: 200}
)
