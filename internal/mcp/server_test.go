package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/platform"
)

type fakeDaemon struct {
	status   ipc.StatusData
	set      []ipc.SetSurfacesPayload
	shown    []string
	hidden   []string
	launched []ipc.LaunchTaskPayload
	closed   []int
	resized  [][3]int
	err      error
}

func (f *fakeDaemon) GetStatus() (*ipc.StatusData, error) {
	if f.err != nil {
		return nil, f.err
	}
	st := f.status
	return &st, nil
}

func (f *fakeDaemon) SetSurfaces(p ipc.SetSurfacesPayload) error {
	f.set = append(f.set, p)
	return f.err
}

func (f *fakeDaemon) Show(name string) error {
	f.shown = append(f.shown, name)
	return f.err
}

func (f *fakeDaemon) Hide(name string) error {
	f.hidden = append(f.hidden, name)
	return f.err
}

func (f *fakeDaemon) SetBounds(string, platform.Rect) error { return f.err }

func (f *fakeDaemon) LaunchTask(p ipc.LaunchTaskPayload) (*ipc.TaskData, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.launched = append(f.launched, p)
	return &ipc.TaskData{ID: 7, FeatureID: 2, Activity: p.Activity}, nil
}

func (f *fakeDaemon) CloseTask(id int) error {
	f.closed = append(f.closed, id)
	return f.err
}

func (f *fakeDaemon) ResizeDisplay(id, w, h int) error {
	f.resized = append(f.resized, [3]int{id, w, h})
	return f.err
}

func boolPtr(b bool) *bool { return &b }

func TestNewServerRegistersTools(t *testing.T) {
	s := NewServer(&fakeDaemon{}, nil)
	if s.mcpServer == nil {
		t.Fatal("mcp server not created")
	}
}

func TestListSurfacesFiltersByGroup(t *testing.T) {
	d := &fakeDaemon{status: ipc.StatusData{
		Surfaces: []ipc.SurfaceData{
			{Name: "maps", Group: "main", Visible: true},
			{Name: "apps", Group: "main"},
			{Name: "hud", Group: "overlay"},
		},
		Pending: 1,
	}}
	s := NewServer(d, nil)

	_, out, err := s.handleListSurfaces(context.Background(), nil, ListSurfacesInput{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Surfaces) != 3 || out.Pending != 1 || out.Tasks == nil {
		t.Fatalf("unexpected output %+v", out)
	}

	_, out, err = s.handleListSurfaces(context.Background(), nil, ListSurfacesInput{Group: "overlay"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out.Surfaces) != 1 || out.Surfaces[0].Name != "hud" {
		t.Fatalf("group filter failed: %+v", out.Surfaces)
	}
}

func TestSetSurface(t *testing.T) {
	tests := []struct {
		name    string
		in      SetSurfaceInput
		wantErr string
	}{
		{"missing name", SetSurfaceInput{Visible: boolPtr(true)}, "name is required"},
		{"no change", SetSurfaceInput{Name: "maps"}, "nothing to change"},
		{"empty bounds", SetSurfaceInput{Name: "maps", Bounds: &BoundsInput{Width: 0, Height: 10}}, "positive size"},
		{"visible", SetSurfaceInput{Name: "maps", Visible: boolPtr(false)}, ""},
		{"bounds and focus", SetSurfaceInput{Name: "apps", Bounds: &BoundsInput{X: 1, Y: 2, Width: 30, Height: 40}, Focus: true, Instant: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDaemon{}
			s := NewServer(d, nil)
			_, out, err := s.handleSetSurface(context.Background(), nil, tt.in)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("expected error %q, got %v", tt.wantErr, err)
				}
				if len(d.set) != 0 {
					t.Fatal("daemon should not be called")
				}
				return
			}
			if err != nil || !out.Applied {
				t.Fatalf("unexpected result %+v, %v", out, err)
			}
			p := d.set[0]
			req := p.Surfaces[0]
			if req.Name != tt.in.Name || p.Instant != tt.in.Instant {
				t.Fatalf("unexpected payload %+v", p)
			}
			if tt.in.Focus && p.Focus != tt.in.Name {
				t.Fatalf("focus not forwarded: %+v", p)
			}
			if tt.in.Bounds != nil && *req.Bounds != (platform.Rect{X: 1, Y: 2, Width: 30, Height: 40}) {
				t.Fatalf("bounds not forwarded: %+v", req.Bounds)
			}
		})
	}
}

func TestShowSurface(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)

	if _, _, err := s.handleShowSurface(context.Background(), nil, ShowSurfaceInput{Name: "maps"}); err != nil {
		t.Fatalf("show: %v", err)
	}
	if _, _, err := s.handleShowSurface(context.Background(), nil, ShowSurfaceInput{Name: "apps", Visible: boolPtr(false)}); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if len(d.shown) != 1 || d.shown[0] != "maps" || len(d.hidden) != 1 || d.hidden[0] != "apps" {
		t.Fatalf("shown=%v hidden=%v", d.shown, d.hidden)
	}

	d.err = errors.New(`unknown display area "ghost"`)
	if _, out, err := s.handleShowSurface(context.Background(), nil, ShowSurfaceInput{Name: "ghost"}); err == nil || out.Applied {
		t.Fatalf("expected error, got %+v", out)
	}
}

func TestLaunchAndCloseTask(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)

	if _, _, err := s.handleLaunchTask(context.Background(), nil, LaunchTaskInput{Area: "apps", Activity: "Main"}); err == nil {
		t.Fatal("expected error for malformed activity")
	}
	_, out, err := s.handleLaunchTask(context.Background(), nil, LaunchTaskInput{Area: "apps", Activity: "org.example/.Main", TaskView: true})
	if err != nil {
		t.Fatalf("launch: %v", err)
	}
	if out.Task.ID != 7 || !d.launched[0].TaskView {
		t.Fatalf("unexpected launch %+v %+v", out, d.launched)
	}

	if _, _, err := s.handleCloseTask(context.Background(), nil, CloseTaskInput{}); err == nil {
		t.Fatal("expected error for missing task id")
	}
	if _, res, err := s.handleCloseTask(context.Background(), nil, CloseTaskInput{TaskID: 7}); err != nil || !res.Closed {
		t.Fatalf("close: %+v %v", res, err)
	}
}

func TestResizeDisplay(t *testing.T) {
	d := &fakeDaemon{}
	s := NewServer(d, nil)

	if _, _, err := s.handleResizeDisplay(context.Background(), nil, ResizeDisplayInput{Width: 10}); err == nil {
		t.Fatal("expected error for zero height")
	}
	_, out, err := s.handleResizeDisplay(context.Background(), nil, ResizeDisplayInput{DisplayID: 1, Width: 800, Height: 600})
	if err != nil {
		t.Fatalf("resize: %v", err)
	}
	if out.Width != 800 || d.resized[0] != [3]int{1, 800, 600} {
		t.Fatalf("unexpected resize %+v %v", out, d.resized)
	}
}
