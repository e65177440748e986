package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/dashell/internal/animation"
	"github.com/1broseidon/dashell/internal/daview"
	"github.com/1broseidon/dashell/internal/mainthread"
	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/wm"
)

var (
	mapsBounds  = platform.Rect{Width: 600, Height: 800}
	mediaBounds = platform.Rect{X: 600, Width: 400, Height: 800}
	appActivity = wm.ComponentName{Package: "com.example.media", Class: ".Player"}
)

type stack struct {
	ctx     context.Context
	backend *platform.MemoryBackend
	host    *Host
	tr      *daview.Transitions
	anim    *animation.Handler
}

func newStack(t *testing.T) *stack {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	backend := platform.NewMemoryBackend(platform.Display{ID: 0, Bounds: platform.Rect{Width: 1000, Height: 800}})
	loop := mainthread.NewLoop(nil)
	go loop.Run(ctx)

	host, err := New(Options{Backend: backend, Executor: loop})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	tr, err := daview.New(daview.Options{Host: host, Executor: loop, Backend: backend, TaskViews: host})
	if err != nil {
		t.Fatalf("daview.New: %v", err)
	}
	anim := animation.New(animation.Config{Backend: backend, State: tr.Committed})
	t.Cleanup(anim.Close)
	tr.SetAnimationHandler(anim)

	return &stack{ctx: ctx, backend: backend, host: host, tr: tr, anim: anim}
}

func (s *stack) addArea(t *testing.T, name string, feature int, bounds platform.Rect) *daview.View {
	t.Helper()
	if _, err := s.host.AddDisplayArea(AreaSpec{FeatureID: feature, Bounds: bounds}); err != nil {
		t.Fatalf("AddDisplayArea: %v", err)
	}
	return s.addView(t, name, feature, bounds)
}

func (s *stack) addView(t *testing.T, name string, feature int, bounds platform.Rect) *daview.View {
	t.Helper()
	v, err := daview.NewView(daview.ViewConfig{Name: name, FeatureID: feature}, daview.ViewDeps{
		Organizer: s.host,
		Backend:   s.backend,
		Applier:   s.tr,
	})
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	surface, err := s.backend.CreateSurface(platform.NoSurface, bounds)
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	s.tr.Add(v)
	s.anim.Register(animation.Area{View: v, Group: "main", Home: bounds})
	v.SurfaceCreated(surface, bounds)
	return v
}

func (s *stack) waitFor(t *testing.T, what string, cond func(daview.Status) bool) daview.Status {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		st, err := s.tr.Status(s.ctx)
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s: %+v", what, st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func surfaceState(st daview.Status, name string) daview.SurfaceStatus {
	for _, s := range st.Surfaces {
		if s.Name == name {
			return s
		}
	}
	return daview.SurfaceStatus{}
}

func idle(st daview.Status) bool { return st.Pending == 0 && !st.InFlight }

func (s *stack) placeholders(feature int) int {
	n := 0
	for _, task := range s.host.RunningTasks() {
		if task.DisplayAreaFeatureID == feature && task.TopActivity == wm.PlaceholderActivity {
			n++
		}
	}
	return n
}

func TestOpenTaskSwapsGroupedAreas(t *testing.T) {
	s := newStack(t)
	maps := s.addArea(t, "maps", 1, mapsBounds)
	media := s.addArea(t, "media", 2, mediaBounds)

	tx, _ := s.anim.ShowTransaction(maps.ID(), true)
	s.tr.StartTransaction(tx)
	s.waitFor(t, "maps visible", func(st daview.Status) bool {
		return idle(st) && surfaceState(st, "maps").Visible
	})

	if _, err := s.host.LaunchTask(s.ctx, LaunchRequest{LaunchFeatureID: 2, Activity: appActivity}); err != nil {
		t.Fatalf("LaunchTask: %v", err)
	}
	st := s.waitFor(t, "media shown and maps hidden", func(st daview.Status) bool {
		return idle(st) && surfaceState(st, "media").Visible && !surfaceState(st, "maps").Visible
	})
	if got := surfaceState(st, "media").Bounds; got != mediaBounds {
		t.Fatalf("media bounds %+v, want %+v", got, mediaBounds)
	}
	if n := s.placeholders(1); n != 1 {
		t.Fatalf("expected one placeholder in maps, got %d", n)
	}

	var mediaTask wm.TaskInfo
	for _, task := range s.host.RunningTasks() {
		if task.TopActivity == appActivity {
			mediaTask = task
		}
	}
	s.anim.Wait()
	// The task leash ends up under the media surface, visible.
	leashes := s.backend.Children(media.Surface())
	found := false
	for _, id := range leashes {
		if st, _ := s.backend.Surface(id); st.Alpha == 1 && id != media.Leash() {
			found = true
		}
	}
	if mediaTask.ID == 0 || !found {
		t.Fatalf("media task leash not attached to its view (task=%+v children=%v)", mediaTask, leashes)
	}

	tx, _ = s.anim.ShowTransaction(maps.ID(), true)
	s.tr.StartTransaction(tx)
	s.waitFor(t, "maps shown again", func(st daview.Status) bool {
		return idle(st) && surfaceState(st, "maps").Visible && !surfaceState(st, "media").Visible
	})
	if n := s.placeholders(1); n != 0 {
		t.Fatalf("placeholder should be removed when maps is shown, got %d", n)
	}
	if n := s.placeholders(2); n != 1 {
		t.Fatalf("media should now hold a placeholder, got %d", n)
	}
}

func TestInvalidMutationAbortsAndCommits(t *testing.T) {
	s := newStack(t)
	s.addArea(t, "maps", 1, mapsBounds)
	// No display area exists for feature 9, so its view never gets a token.
	orphan := s.addView(t, "orphan", 9, mediaBounds)

	s.tr.StartTransaction(daview.Transaction{States: map[daview.ID]daview.State{
		orphan.ID(): {Visible: true, Bounds: mediaBounds},
	}})
	s.waitFor(t, "optimistic commit", func(st daview.Status) bool {
		return idle(st) && surfaceState(st, "orphan").Visible
	})
}

func TestDisplayResizeScalesAreas(t *testing.T) {
	s := newStack(t)
	s.addArea(t, "maps", 1, mapsBounds)

	tx, _ := s.anim.ShowTransaction(daview.MakeID(0, 1), true)
	s.tr.StartTransaction(tx)
	s.waitFor(t, "maps visible", func(st daview.Status) bool { return idle(st) && surfaceState(st, "maps").Visible })

	if err := s.host.ChangeDisplaySize(s.ctx, 0, platform.Rect{Width: 2000, Height: 800}); err != nil {
		t.Fatalf("ChangeDisplaySize: %v", err)
	}
	want := platform.Rect{Width: 1200, Height: 800}
	s.waitFor(t, "scaled bounds", func(st daview.Status) bool {
		m := surfaceState(st, "maps")
		return idle(st) && m.Visible && m.Bounds == want
	})
	for _, a := range s.host.Areas() {
		if a.FeatureID == 1 && a.Bounds != want {
			t.Fatalf("host area bounds %+v, want %+v", a.Bounds, want)
		}
	}
}

func TestCloseTaskUsesDefaultHandling(t *testing.T) {
	s := newStack(t)
	s.addArea(t, "maps", 1, mapsBounds)

	task, err := s.host.LaunchTask(s.ctx, LaunchRequest{LaunchFeatureID: 1, Activity: appActivity})
	if err != nil {
		t.Fatalf("LaunchTask: %v", err)
	}
	s.waitFor(t, "launch settled", idle)

	if err := s.host.CloseTask(s.ctx, task.ID); err != nil {
		t.Fatalf("CloseTask: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for len(s.host.RunningTasks()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("task not closed: %+v", s.host.RunningTasks())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := s.host.CloseTask(s.ctx, task.ID); !errors.Is(err, ErrUnknownTask) {
		t.Fatalf("closing twice: got %v, want ErrUnknownTask", err)
	}
	if _, err := s.host.LaunchTask(s.ctx, LaunchRequest{LaunchFeatureID: 42}); !errors.Is(err, ErrUnknownDisplayArea) {
		t.Fatalf("launch into unknown area: got %v", err)
	}
}

func TestRegisterOrganizerReportsExistingAreas(t *testing.T) {
	host, err := New(Options{Backend: platform.NewMemoryBackend(), Executor: &mainthread.Manual{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := host.AddDisplayArea(AreaSpec{FeatureID: 3, Bounds: mapsBounds}); err != nil {
		t.Fatalf("AddDisplayArea: %v", err)
	}
	if _, err := host.AddDisplayArea(AreaSpec{FeatureID: 3, Bounds: mapsBounds}); err == nil {
		t.Fatalf("duplicate display area must fail")
	}
	got, err := host.RegisterOrganizer(3, nil)
	if err != nil || len(got) != 1 || got[0].Info.Token != "da:0:3" || got[0].Leash == platform.NoSurface {
		t.Fatalf("unexpected organizer result %+v, %v", got, err)
	}
}
