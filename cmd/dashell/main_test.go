package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/dashell/internal/config"
	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/platform"
)

func TestParseRect(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    platform.Rect
		wantErr bool
	}{
		{"valid", []string{"10", "-20", "300", "200"}, platform.Rect{X: 10, Y: -20, Width: 300, Height: 200}, false},
		{"too few", []string{"1", "2", "3"}, platform.Rect{}, true},
		{"not a number", []string{"a", "0", "1", "1"}, platform.Rect{}, true},
		{"empty", []string{"0", "0", "0", "10"}, platform.Rect{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRect(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseRegion(t *testing.T) {
	region, err := parseRegion([]string{"0", "0", "10", "10", "50", "0", "5", "5"})
	if err != nil {
		t.Fatalf("parseRegion: %v", err)
	}
	if len(region) != 2 || region[1] != (platform.Rect{X: 50, Width: 5, Height: 5}) {
		t.Fatalf("unexpected region %+v", region)
	}
	if region, err := parseRegion(nil); err != nil || region != nil {
		t.Fatalf("empty args should clear: %+v %v", region, err)
	}
	if _, err := parseRegion([]string{"1", "2", "3", "4", "5"}); err == nil {
		t.Fatal("expected error for partial rectangle")
	}
}

func TestBuildSetPayload(t *testing.T) {
	p, err := buildSetPayload("apps", "false", "1 2 30 40", true, true)
	if err != nil {
		t.Fatalf("buildSetPayload: %v", err)
	}
	req := p.Surfaces[0]
	if req.Name != "apps" || req.Visible == nil || *req.Visible {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Bounds == nil || *req.Bounds != (platform.Rect{X: 1, Y: 2, Width: 30, Height: 40}) {
		t.Fatalf("unexpected bounds %+v", req.Bounds)
	}
	if p.Focus != "apps" || !p.Instant {
		t.Fatalf("unexpected payload %+v", p)
	}

	p, err = buildSetPayload("maps", "", "", false, false)
	if err != nil {
		t.Fatalf("buildSetPayload: %v", err)
	}
	if p.Surfaces[0].Visible != nil || p.Surfaces[0].Bounds != nil || p.Focus != "" {
		t.Fatalf("unset flags should keep committed values: %+v", p)
	}

	if _, err := buildSetPayload("maps", "maybe", "", false, false); err == nil {
		t.Fatal("expected error for invalid visibility")
	}
	if _, err := buildSetPayload("maps", "", "1 2 3", false, false); err == nil {
		t.Fatal("expected error for invalid bounds")
	}
}

func TestPrintStatus(t *testing.T) {
	var buf bytes.Buffer
	printStatus(&buf, &ipc.StatusData{
		DaemonRunning: true,
		Pending:       1,
		Surfaces: []ipc.SurfaceData{
			{Name: "maps", Visible: true, Bounds: platform.Rect{Width: 1920, Height: 1080}, FeatureID: 1, Group: "main"},
		},
		Tasks: []ipc.TaskData{
			{ID: 3, FeatureID: 1, Activity: "dashell/.PlaceholderActivity", Placeholder: true},
		},
	})
	out := buf.String()
	for _, want := range []string{"daemon_running: true", "pending:        1", "maps", "1920x1080+0+0", "(placeholder)"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output missing %q:\n%s", want, out)
		}
	}
}

func TestRunConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashell", "config.yaml")

	if rc := runConfig([]string{"init", "--path", path}); rc != 0 {
		t.Fatalf("config init rc=%d, want 0", rc)
	}
	if rc := runConfig([]string{"init", "--path", path}); rc != 1 {
		t.Fatalf("second config init rc=%d, want 1", rc)
	}
	if rc := runConfig([]string{"validate", "--path", path}); rc != 0 {
		t.Fatalf("config validate rc=%d, want 0", rc)
	}

	res, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if len(res.Config.DisplayAreas) != len(config.DefaultConfig().DisplayAreas) {
		t.Fatalf("display areas = %d", len(res.Config.DisplayAreas))
	}

	if rc := runConfig([]string{"bogus"}); rc != 2 {
		t.Fatalf("unknown subcommand rc=%d, want 2", rc)
	}
}

func TestRunCommandsRejectBadArgs(t *testing.T) {
	tests := []struct {
		name string
		run  func([]string) int
		args []string
	}{
		{"bounds missing values", runBounds, []string{"maps", "1", "2"}},
		{"bounds empty", runBounds, []string{"maps", "0", "0", "0", "0"}},
		{"insets missing type", runInsets, []string{"maps", "0"}},
		{"insets bad index", runInsets, []string{"maps", "x", "1"}},
		{"insets empty frame", runInsets, []string{"maps", "0", "1", "0", "0", "0", "0"}},
		{"obscure without area", runObscure, nil},
		{"obscure partial rect", runObscure, []string{"maps", "1", "2", "3"}},
		{"close non-numeric", runClose, []string{"abc"}},
		{"launch without area", runLaunch, []string{"pkg/.Main"}},
		{"resize zero width", runResize, []string{"0", "10"}},
		{"status extra args", runStatus, []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rc := tt.run(tt.args); rc != 2 {
				t.Fatalf("rc=%d, want 2", rc)
			}
		})
	}
}
