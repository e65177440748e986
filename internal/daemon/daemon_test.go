package daemon

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/1broseidon/dashell/internal/config"
	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/platform"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Backend = config.BackendMemory
	cfg.ReconcileIntervalSeconds = 0
	cfg.Animation.DurationMS = 0
	return cfg
}

func startDaemon(t *testing.T, cfg *config.Config, cfgPath string) (*Daemon, *ipc.Client) {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "d.sock")
	d, err := New(Options{
		Config:     cfg,
		ConfigPath: cfgPath,
		SocketPath: socket,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("daemon did not stop")
		}
	})

	client := ipc.NewClientAt(socket)
	deadline := time.Now().Add(2 * time.Second)
	for client.Ping() != nil {
		if time.Now().After(deadline) {
			t.Fatal("daemon socket never came up")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return d, client
}

func surface(st *ipc.StatusData, name string) (ipc.SurfaceData, bool) {
	for _, s := range st.Surfaces {
		if s.Name == name {
			return s, true
		}
	}
	return ipc.SurfaceData{}, false
}

func waitStatus(t *testing.T, client *ipc.Client, desc string, cond func(*ipc.StatusData) bool) *ipc.StatusData {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st, err := client.GetStatus()
		if err != nil {
			t.Fatalf("GetStatus: %v", err)
		}
		if cond(st) && st.Pending == 0 && !st.InFlight {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s: %+v", desc, st)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func visible(name string, want bool) func(*ipc.StatusData) bool {
	return func(st *ipc.StatusData) bool {
		s, ok := surface(st, name)
		return ok && s.Visible == want
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.DisplayAreas = nil
	if _, err := New(Options{Config: cfg, Backend: platform.NewMemoryBackend()}); !errors.Is(err, config.ErrNoDisplayAreas) {
		t.Fatalf("expected ErrNoDisplayAreas, got %v", err)
	}

	cfg = testConfig()
	cfg.Animation.Easing = "bounce"
	if _, err := New(Options{Config: cfg}); err == nil {
		t.Fatal("expected error for unknown easing")
	}
}

func TestDaemonShowsInitialAreas(t *testing.T) {
	_, client := startDaemon(t, testConfig(), "")

	st := waitStatus(t, client, "maps visible", visible("maps", true))
	apps, _ := surface(st, "apps")
	if apps.Visible {
		t.Fatal("apps should start hidden")
	}
	maps, _ := surface(st, "maps")
	if maps.Group != "main" || maps.Bounds != (platform.Rect{Width: 1920, Height: 1080}) {
		t.Fatalf("unexpected maps status %+v", maps)
	}
	if !st.HasAnimationHandler {
		t.Fatal("animation handler not installed")
	}
}

func TestDaemonShowIsGroupExclusive(t *testing.T) {
	_, client := startDaemon(t, testConfig(), "")
	waitStatus(t, client, "maps visible", visible("maps", true))

	if err := client.Show("apps"); err != nil {
		t.Fatalf("Show: %v", err)
	}
	waitStatus(t, client, "apps shown, maps hidden", func(st *ipc.StatusData) bool {
		return visible("apps", true)(st) && visible("maps", false)(st)
	})

	if err := client.Hide("apps"); err != nil {
		t.Fatalf("Hide: %v", err)
	}
	waitStatus(t, client, "apps hidden", visible("apps", false))

	if err := client.Show("ghost"); err == nil || !strings.Contains(err.Error(), "unknown display area") {
		t.Fatalf("expected unknown area error, got %v", err)
	}
}

func TestDaemonSetSurfaces(t *testing.T) {
	d, client := startDaemon(t, testConfig(), "")
	waitStatus(t, client, "maps visible", visible("maps", true))

	on := true
	bounds := platform.Rect{X: 10, Y: 20, Width: 300, Height: 200}
	if err := client.SetSurfaces(ipc.SetSurfacesPayload{
		Surfaces: []ipc.SurfaceRequest{{Name: "apps", Visible: &on, Bounds: &bounds}},
		Focus:    "apps",
	}); err != nil {
		t.Fatalf("SetSurfaces: %v", err)
	}
	st := waitStatus(t, client, "apps at new bounds", func(st *ipc.StatusData) bool {
		s, ok := surface(st, "apps")
		return ok && s.Visible && s.Bounds == bounds
	})
	// SetSurfaces is not group exclusive.
	if !visible("maps", true)(st) {
		t.Fatal("maps should stay visible")
	}

	apps, _ := surface(st, "apps")
	id := d.areas["apps"].view.ID()
	if id.String() != apps.ID {
		t.Fatalf("status id %q, want %q", apps.ID, id.String())
	}
	if home, _ := d.anim.Home(id); home != bounds {
		t.Fatalf("home not updated: %+v", home)
	}

	if err := client.SetBounds("maps", platform.Rect{Width: 960, Height: 540}); err != nil {
		t.Fatalf("SetBounds: %v", err)
	}
	waitStatus(t, client, "maps resized", func(st *ipc.StatusData) bool {
		s, ok := surface(st, "maps")
		return ok && s.Visible && s.Bounds.Width == 960
	})

	err := client.SetSurfaces(ipc.SetSurfacesPayload{
		Surfaces: []ipc.SurfaceRequest{{Name: "ghost", Visible: &on}},
	})
	if err == nil {
		t.Fatal("expected error for unknown area")
	}

	// A bad entry rejects the whole request, including valid entries before it.
	tiny := platform.Rect{X: 5, Y: 5, Width: 11, Height: 11}
	err = client.SetSurfaces(ipc.SetSurfacesPayload{
		Surfaces: []ipc.SurfaceRequest{{Name: "apps", Bounds: &tiny}, {Name: "ghost"}},
	})
	if err == nil || !strings.Contains(err.Error(), "unknown display area") {
		t.Fatalf("expected unknown area error, got %v", err)
	}
	if home, _ := d.anim.Home(id); home != bounds {
		t.Fatalf("failed request changed home to %+v", home)
	}
	st = waitStatus(t, client, "idle", func(*ipc.StatusData) bool { return true })
	if apps, _ := surface(st, "apps"); apps.Bounds != bounds {
		t.Fatalf("failed request changed apps bounds to %+v", apps.Bounds)
	}
}

func TestDaemonToggleTwiceDuringAnimation(t *testing.T) {
	cfg := testConfig()
	cfg.Animation.DurationMS = 300
	d, client := startDaemon(t, cfg, "")
	waitStatus(t, client, "maps visible", visible("maps", true))

	if err := d.Toggle("apps"); err != nil {
		t.Fatalf("first Toggle: %v", err)
	}
	if err := d.Toggle("apps"); err != nil {
		t.Fatalf("second Toggle: %v", err)
	}
	st := waitStatus(t, client, "apps hidden again", visible("apps", false))
	if maps, _ := surface(st, "maps"); maps.Visible {
		t.Fatal("maps should stay hidden by the first toggle")
	}

	if err := d.Toggle("ghost"); !errors.Is(err, ErrUnknownArea) {
		t.Fatalf("expected ErrUnknownArea, got %v", err)
	}
}

func TestDaemonLaunchAndCloseTask(t *testing.T) {
	_, client := startDaemon(t, testConfig(), "")
	waitStatus(t, client, "maps visible", visible("maps", true))

	task, err := client.LaunchTask(ipc.LaunchTaskPayload{Area: "apps", Activity: "org.example/.Main"})
	if err != nil {
		t.Fatalf("LaunchTask: %v", err)
	}
	if task.Placeholder || task.Activity != "org.example/.Main" || task.FeatureID != 2 {
		t.Fatalf("unexpected task %+v", task)
	}
	st := waitStatus(t, client, "apps opened", func(st *ipc.StatusData) bool {
		return visible("apps", true)(st) && visible("maps", false)(st)
	})
	found := false
	for _, tk := range st.Tasks {
		if tk.ID == task.ID {
			found = true
		}
	}
	if !found {
		t.Fatalf("launched task missing from %+v", st.Tasks)
	}

	if err := client.CloseTask(task.ID); err != nil {
		t.Fatalf("CloseTask: %v", err)
	}
	waitStatus(t, client, "task closed", func(st *ipc.StatusData) bool {
		for _, tk := range st.Tasks {
			if tk.ID == task.ID {
				return false
			}
		}
		return true
	})

	if _, err := client.LaunchTask(ipc.LaunchTaskPayload{Area: "apps", Activity: "broken"}); err == nil {
		t.Fatal("expected error for malformed activity")
	}
}

func TestDaemonResizeDisplay(t *testing.T) {
	_, client := startDaemon(t, testConfig(), "")
	waitStatus(t, client, "maps visible", visible("maps", true))

	if err := client.ResizeDisplay(0, 960, 540); err != nil {
		t.Fatalf("ResizeDisplay: %v", err)
	}
	waitStatus(t, client, "areas scaled", func(st *ipc.StatusData) bool {
		maps, ok1 := surface(st, "maps")
		apps, ok2 := surface(st, "apps")
		return ok1 && ok2 &&
			maps.Visible && maps.Bounds == (platform.Rect{Width: 960, Height: 540}) &&
			apps.Bounds == (platform.Rect{X: 240, Y: 30, Width: 700, Height: 480})
	})

	if err := client.ResizeDisplay(7, 100, 100); err == nil {
		t.Fatal("expected error for unknown display")
	}
}

func TestDaemonReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "backend: memory\nlog_level: debug\nanimation:\n  duration_ms: 120\n  easing: linear\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	d, client := startDaemon(t, testConfig(), path)
	if err := client.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	d.mu.Lock()
	level, anim := d.cfg.LogLevel, d.cfg.Animation
	d.mu.Unlock()
	if level != "debug" || anim.DurationMS != 120 || anim.Easing != "linear" {
		t.Fatalf("reload not applied: level=%s animation=%+v", level, anim)
	}

	if err := os.WriteFile(path, []byte("nope: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := client.Reload(); err == nil || !strings.Contains(err.Error(), "failed to reload config") {
		t.Fatalf("expected reload error, got %v", err)
	}
}

func TestDaemonInsetsAndObscuredTouch(t *testing.T) {
	_, client := startDaemon(t, testConfig(), "")
	waitStatus(t, client, "maps visible", visible("maps", true))

	frame := platform.Rect{Y: 1040, Width: 1920, Height: 40}
	if err := client.SetInsets("maps", 0, 1, &frame); err != nil {
		t.Fatalf("SetInsets: %v", err)
	}
	region := []platform.Rect{{Width: 100, Height: 100}}
	if err := client.SetObscuredTouch("maps", region); err != nil {
		t.Fatalf("SetObscuredTouch: %v", err)
	}

	st, err := client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	maps, _ := surface(st, "maps")
	if len(maps.Insets) != 1 || maps.Insets[0] != (ipc.InsetsData{Index: 0, Type: 1, Frame: frame}) {
		t.Fatalf("unexpected insets %+v", maps.Insets)
	}
	if len(maps.ObscuredTouch) != 1 || maps.ObscuredTouch[0] != region[0] {
		t.Fatalf("unexpected obscured region %+v", maps.ObscuredTouch)
	}

	if err := client.SetInsets("maps", 0, 1, nil); err != nil {
		t.Fatalf("remove insets: %v", err)
	}
	if err := client.SetInsets("maps", 0, 1, nil); err == nil || !strings.Contains(err.Error(), "no insets") {
		t.Fatalf("expected error removing missing insets, got %v", err)
	}
	if err := client.SetObscuredTouch("maps", nil); err != nil {
		t.Fatalf("clear obscured: %v", err)
	}
	st, err = client.GetStatus()
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if maps, _ := surface(st, "maps"); len(maps.Insets) != 0 || len(maps.ObscuredTouch) != 0 {
		t.Fatalf("insets and region should be cleared: %+v", maps)
	}

	if err := client.SetInsets("ghost", 0, 1, &frame); err == nil {
		t.Fatal("expected error for unknown area")
	}
}
