package animation

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/1broseidon/dashell/internal/config"
	"github.com/1broseidon/dashell/internal/daview"
	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/wm"
)

type organizer struct {
	backend *platform.MemoryBackend
}

func (o organizer) RegisterOrganizer(featureID int, _ wm.DisplayAreaListener) ([]wm.DisplayAreaAppeared, error) {
	leash, err := o.backend.CreateSurface(platform.NoSurface, platform.Rect{})
	if err != nil {
		return nil, err
	}
	return []wm.DisplayAreaAppeared{{
		Info:  wm.DisplayAreaInfo{Token: wm.Token(fmt.Sprintf("da:0:%d", featureID)), FeatureID: featureID},
		Leash: leash,
	}}, nil
}

func newView(t *testing.T, backend *platform.MemoryBackend, feature int) *daview.View {
	t.Helper()
	v, err := daview.NewView(daview.ViewConfig{FeatureID: feature}, daview.ViewDeps{
		Organizer: organizer{backend: backend},
		Backend:   backend,
	})
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	surface, err := backend.CreateSurface(platform.NoSurface, platform.Rect{})
	if err != nil {
		t.Fatalf("CreateSurface: %v", err)
	}
	v.SurfaceCreated(surface, platform.Rect{})
	return v
}

var display = platform.Display{ID: 0, Bounds: platform.Rect{Width: 1000, Height: 800}}

func TestEasingByName(t *testing.T) {
	for _, name := range EasingNames() {
		fn, err := EasingByName(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if fn(0) != 0 || fn(1) != 1 {
			t.Errorf("%s must map 0->0 and 1->1, got %v %v", name, fn(0), fn(1))
		}
	}
	if fn, err := EasingByName(""); err != nil || fn(0.5) != EaseSmoothstep(0.5) {
		t.Fatalf("empty name should default to smoothstep")
	}
	configured := slices.Clone(config.Easings)
	slices.Sort(configured)
	if !slices.Equal(configured, EasingNames()) {
		t.Errorf("config easings %v differ from %v", configured, EasingNames())
	}
	if _, err := EasingByName("bounce"); err == nil {
		t.Fatalf("expected error for unknown easing")
	}
}

func TestOpenHidesGroupSiblings(t *testing.T) {
	backend := platform.NewMemoryBackend(display)
	h := New(Config{Backend: backend})
	maps, media, dock := newView(t, backend, 1), newView(t, backend, 2), newView(t, backend, 3)
	mapsHome := platform.Rect{Width: 600, Height: 800}
	mediaHome := platform.Rect{X: 600, Width: 400, Height: 800}
	h.Register(Area{View: maps, Group: "main", Home: mapsHome})
	h.Register(Area{View: media, Group: "main", Home: mediaHome})
	h.Register(Area{View: dock, Home: platform.Rect{Y: 700, Width: 1000, Height: 100}})

	tx := h.HandleOpenTransitionOnDa(maps, wm.TaskInfo{ID: 1}, wm.NewMutation())
	if len(tx.States) != 2 {
		t.Fatalf("expected target and sibling, got %+v", tx.States)
	}
	if got := tx.States[maps.ID()]; !got.Visible || got.Bounds != mapsHome {
		t.Fatalf("unexpected target state %+v", got)
	}
	if got := tx.States[media.ID()]; got.Visible || got.Bounds != mediaHome {
		t.Fatalf("sibling should be hidden at home, got %+v", got)
	}
	if tx.Focus != maps.ID() {
		t.Fatalf("target should get focus")
	}

	if tx := h.HandleOpenTransitionOnDa(dock, wm.TaskInfo{ID: 2}, wm.NewMutation()); len(tx.States) != 1 {
		t.Fatalf("ungrouped area should only show itself, got %+v", tx.States)
	}

	stray := newView(t, backend, 9)
	if tx := h.HandleOpenTransitionOnDa(stray, wm.TaskInfo{ID: 3}, wm.NewMutation()); len(tx.States) != 0 {
		t.Fatalf("unregistered view must yield no participants")
	}
}

func TestDisplayChangeScalesHomes(t *testing.T) {
	backend := platform.NewMemoryBackend(display)
	v := newView(t, backend, 1)
	h := New(Config{Backend: backend, State: func(id daview.ID) (daview.State, bool) {
		return daview.State{Visible: id == v.ID()}, true
	}})
	h.Register(Area{View: v, Home: platform.Rect{X: 100, Y: 0, Width: 400, Height: 800}})

	tx := h.HandleDisplayChangeTransition(0, platform.Rect{Width: 2000, Height: 400})
	want := daview.State{Visible: true, Bounds: platform.Rect{X: 200, Y: 0, Width: 800, Height: 400}}
	if got := tx.States[v.ID()]; got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if home, _ := h.Home(v.ID()); home != want.Bounds {
		t.Fatalf("home not updated: %+v", home)
	}
	if tx := h.HandleDisplayChangeTransition(7, platform.Rect{Width: 10, Height: 10}); len(tx.States) != 0 {
		t.Fatalf("other display must have no participants")
	}
}

func TestPlayAnimationAppliesFinalFrame(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
	}{
		{"instant", 0},
		{"timed", 40 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := platform.NewMemoryBackend(display)
			shown, hidden := newView(t, backend, 1), newView(t, backend, 2)
			h := New(Config{Backend: backend, Duration: tt.duration, Easing: EaseLinear, FrameInterval: 5 * time.Millisecond})
			h.Register(Area{View: shown})
			h.Register(Area{View: hidden})

			target := platform.Rect{X: 10, Y: 20, Width: 300, Height: 200}
			finished := make(chan struct{})
			done := daview.NewCompletion(nil, func() { close(finished) })
			h.PlayAnimation(daview.Transaction{States: map[daview.ID]daview.State{
				shown.ID():  {Visible: true, Bounds: target},
				hidden.ID(): {Visible: false, Bounds: target},
			}}, done)

			select {
			case <-finished:
			case <-time.After(2 * time.Second):
				t.Fatalf("animation did not finish")
			}
			if !done.Finished() {
				t.Fatalf("completion not signalled")
			}

			st, _ := backend.Surface(shown.Surface())
			if st.Bounds != target || st.Alpha != 1 || !st.Visible {
				t.Fatalf("shown surface: %+v", st)
			}
			st, _ = backend.Surface(hidden.Surface())
			if st.Alpha != 0 || st.Visible {
				t.Fatalf("hidden surface: %+v", st)
			}
		})
	}
}

func TestCloseFinishesRunningAnimations(t *testing.T) {
	backend := platform.NewMemoryBackend(display)
	v := newView(t, backend, 1)
	h := New(Config{Backend: backend, Duration: time.Hour})
	h.Register(Area{View: v})

	done := daview.NewCompletion(nil, nil)
	h.PlayAnimation(daview.Transaction{States: map[daview.ID]daview.State{
		v.ID(): {Visible: true, Bounds: platform.Rect{Width: 50, Height: 50}},
	}}, done)
	h.Close()

	if !done.Finished() {
		t.Fatalf("Close must finish running animations")
	}
	if st, _ := backend.Surface(v.Surface()); st.Bounds.Width != 50 {
		t.Fatalf("final frame not applied: %+v", st)
	}
}

func TestScaleRect(t *testing.T) {
	got := scaleRect(platform.Rect{X: 50, Y: 50, Width: 100, Height: 100},
		platform.Rect{Width: 200, Height: 200},
		platform.Rect{X: 1000, Width: 400, Height: 100})
	want := platform.Rect{X: 1100, Y: 25, Width: 200, Height: 50}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
