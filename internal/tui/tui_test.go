package tui

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/1broseidon/dashell/internal/config"
	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/platform"
)

type fakeDaemon struct {
	status  ipc.StatusData
	down    bool
	shown   []string
	hidden  []string
	set     []ipc.SetSurfacesPayload
	closed  []int
	reloads int
}

func (f *fakeDaemon) Ping() error {
	if f.down {
		return errors.New("daemon not running")
	}
	return nil
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.down {
		return nil, errors.New("daemon not running")
	}
	st := f.status
	return &st, nil
}

func (f *fakeDaemon) Show(name string) error { f.shown = append(f.shown, name); return nil }
func (f *fakeDaemon) Hide(name string) error { f.hidden = append(f.hidden, name); return nil }

func (f *fakeDaemon) SetSurfaces(p ipc.SetSurfacesPayload) error {
	f.set = append(f.set, p)
	return nil
}

func (f *fakeDaemon) SetBounds(string, platform.Rect) error { return nil }

func (f *fakeDaemon) LaunchTask(p ipc.LaunchTaskPayload) (*ipc.TaskData, error) {
	return &ipc.TaskData{ID: 1, Activity: p.Activity}, nil
}

func (f *fakeDaemon) CloseTask(id int) error { f.closed = append(f.closed, id); return nil }
func (f *fakeDaemon) Reload() error          { f.reloads++; return nil }

func testStatus() ipc.StatusData {
	return ipc.StatusData{
		Surfaces: []ipc.SurfaceData{
			{Name: "maps", FeatureID: 1, LaunchFeatureID: 1, Group: "main", Visible: true},
			{Name: "apps", FeatureID: 2, LaunchFeatureID: 2, Group: "main"},
		},
		Tasks: []ipc.TaskData{
			{ID: 4, FeatureID: 2, Activity: "dashell/.PlaceholderActivity", Placeholder: true},
		},
		HasAnimationHandler: true,
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, d *fakeDaemon) model {
	t.Helper()
	m := newModel(filepath.Join(t.TempDir(), "config.yaml"), d)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(model)
}

func send(m model, msg tea.Msg) model {
	next, _ := m.Update(msg)
	return next.(model)
}

func TestModelLoadsStatus(t *testing.T) {
	d := &fakeDaemon{status: testStatus()}
	m := newTestModel(t, d)

	if m.result == nil || m.loadErr != nil {
		t.Fatalf("expected default config, got err %v", m.loadErr)
	}
	if m.status == nil {
		t.Fatal("expected daemon status")
	}
	if n := len(m.surfacesTab.list.Items()); n != 2 {
		t.Fatalf("expected 2 surfaces, got %d", n)
	}
	if n := len(m.tasksTab.list.Items()); n != 1 {
		t.Fatalf("expected 1 task, got %d", n)
	}
	item := m.tasksTab.list.Items()[0].(taskItem)
	if item.area != "apps" || !strings.Contains(item.Title(), "placeholder") {
		t.Fatalf("unexpected task item %+v", item)
	}
	if !strings.Contains(m.View(), "daemon connected") {
		t.Fatal("status bar should report a connected daemon")
	}
}

func TestModelWithoutDaemon(t *testing.T) {
	m := newTestModel(t, &fakeDaemon{down: true})
	if m.status != nil {
		t.Fatal("status should be nil without a daemon")
	}
	if !strings.Contains(m.View(), "daemon not running") {
		t.Fatal("status bar should report a missing daemon")
	}
}

func TestSurfacesToggle(t *testing.T) {
	d := &fakeDaemon{status: testStatus()}
	m := newTestModel(t, d)

	// maps is selected and visible
	m = send(m, key("enter"))
	if len(d.hidden) != 1 || d.hidden[0] != "maps" {
		t.Fatalf("expected maps hidden, got hidden=%v shown=%v", d.hidden, d.shown)
	}

	m = send(m, key("i"))
	if len(d.set) != 1 || !d.set[0].Instant || *d.set[0].Surfaces[0].Visible {
		t.Fatalf("unexpected instant payload %+v", d.set)
	}

	send(m, key("f"))
	if len(d.set) != 2 || d.set[1].Focus != "maps" {
		t.Fatalf("unexpected focus payload %+v", d.set)
	}
}

func TestTabSwitching(t *testing.T) {
	d := &fakeDaemon{status: testStatus()}
	m := newTestModel(t, d)

	m = send(m, key("2"))
	if m.activeTab != TabTasks {
		t.Fatalf("expected tasks tab, got %s", m.activeTab)
	}
	m = send(m, key("x"))
	if len(d.closed) != 1 || d.closed[0] != 4 {
		t.Fatalf("expected task 4 closed, got %v", d.closed)
	}
	m = send(m, key("tab"))
	if m.activeTab != TabSettings {
		t.Fatalf("expected settings tab, got %s", m.activeTab)
	}
	m = send(m, key("e"))
	if !m.capturing() {
		t.Fatal("settings form should capture input")
	}
	// q goes to the form while it is open.
	m = send(m, key("q"))
	if !m.capturing() || m.activeTab != TabSettings {
		t.Fatal("q should not leave the settings form")
	}
}

func TestSettingsApplyForm(t *testing.T) {
	cfg := config.DefaultConfig()
	g := NewSettingsTab(cfg, nil)
	g.startEditing()

	g.fields.logLevel = "debug"
	g.fields.durationMS = "400"
	g.fields.easing = "linear"
	g.fields.reconcile = "bogus"
	g.fields.placeholder = "noslash"
	g.applyForm()

	if cfg.LogLevel != "debug" || cfg.Animation.DurationMS != 400 || cfg.Animation.Easing != "linear" {
		t.Fatalf("form values not applied: %+v", cfg)
	}
	if cfg.ReconcileIntervalSeconds != 30 || cfg.PlaceholderActivity != "dashell/.PlaceholderActivity" {
		t.Fatalf("invalid values should be ignored: %+v", cfg)
	}
}

func TestFormBounds(t *testing.T) {
	s := NewSurfacesTab(nil)
	s.fields.x, s.fields.y, s.fields.width, s.fields.height = "10", "20", "300", "200"
	r, err := s.formBounds()
	if err != nil || r != (platform.Rect{X: 10, Y: 20, Width: 300, Height: 200}) {
		t.Fatalf("formBounds = %+v, %v", r, err)
	}
	s.fields.width = "0"
	if _, err := s.formBounds(); err == nil {
		t.Fatal("expected error for empty bounds")
	}
}

func TestApplyAction(t *testing.T) {
	status := testStatus()
	tests := []struct {
		name, area, action string
		wantShown          int
		wantHidden         int
		wantSet            int
		wantErr            bool
	}{
		{"toggle visible hides", "maps", ActionToggle, 0, 1, 0, false},
		{"toggle hidden shows", "apps", ActionToggle, 1, 0, 0, false},
		{"show", "maps", ActionShow, 1, 0, 0, false},
		{"instant", "apps", ActionInstant, 0, 0, 1, false},
		{"unknown area", "ghost", ActionShow, 0, 0, 0, true},
		{"unknown action", "maps", "spin", 0, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDaemon{}
			_, err := ApplyAction(d, &status, tt.area, tt.action)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(d.shown) != tt.wantShown || len(d.hidden) != tt.wantHidden || len(d.set) != tt.wantSet {
				t.Fatalf("shown=%v hidden=%v set=%v", d.shown, d.hidden, d.set)
			}
		})
	}
}

func TestComputeDiffLines(t *testing.T) {
	orig := config.DefaultConfig()
	if lines := computeDiffLines(orig, cloneConfig(orig)); lines != nil {
		t.Fatalf("expected no diff, got %v", lines)
	}

	changed := cloneConfig(orig)
	changed.Animation.DurationMS = 900
	lines := computeDiffLines(orig, changed)
	var added, removed bool
	for _, l := range lines {
		if l.kind == diffAdded && strings.Contains(l.text, "900") {
			added = true
		}
		if l.kind == diffRemoved && strings.Contains(l.text, "250") {
			removed = true
		}
	}
	if !added || !removed {
		t.Fatalf("unexpected diff %+v", lines)
	}

	// areas are keyed by name
	reordered := cloneConfig(orig)
	areas := reordered.DisplayAreas
	areas[0], areas[1] = areas[1], areas[0]
	if lines := computeDiffLines(orig, reordered); lines != nil {
		t.Fatalf("reordering areas should not be a change, got %v", lines)
	}
}

func TestSaveOverlayNoChanges(t *testing.T) {
	var s SaveOverlay
	cfg := config.DefaultConfig()
	s.Show(cfg, cloneConfig(cfg))
	if !s.Active() || s.err == nil || !strings.Contains(s.err.Error(), "no changes") {
		t.Fatalf("expected no-changes result, got %+v", s)
	}
}

func TestSaveOverlayWritesAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	orig := config.DefaultConfig()
	cfg := cloneConfig(orig)
	cfg.LogLevel = "warn"

	var s SaveOverlay
	s.Show(orig, cfg)
	if s.phase != savePreview {
		t.Fatalf("expected preview phase, got %v", s.phase)
	}
	d := &fakeDaemon{}
	s = s.Update(key("enter"), path, cfg, d, true)
	if !s.SaveSucceeded() || !s.reloaded || d.reloads != 1 {
		t.Fatalf("save failed: err=%v reloaded=%v", s.err, s.reloaded)
	}

	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("load saved config: %v", err)
	}
	if res.Config.LogLevel != "warn" {
		t.Fatalf("saved log level = %q", res.Config.LogLevel)
	}
}
