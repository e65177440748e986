package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/platform"
)

func (s *Server) handleListSurfaces(_ context.Context, _ *mcpsdk.CallToolRequest, args ListSurfacesInput) (*mcpsdk.CallToolResult, ListSurfacesOutput, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, ListSurfacesOutput{}, err
	}

	out := ListSurfacesOutput{
		Surfaces: make([]ipc.SurfaceData, 0, len(status.Surfaces)),
		Tasks:    status.Tasks,
		Pending:  status.Pending,
		InFlight: status.InFlight,
	}
	if out.Tasks == nil {
		out.Tasks = []ipc.TaskData{}
	}
	for _, sd := range status.Surfaces {
		if args.Group != "" && sd.Group != args.Group {
			continue
		}
		out.Surfaces = append(out.Surfaces, sd)
	}
	return nil, out, nil
}

func (s *Server) handleSetSurface(_ context.Context, _ *mcpsdk.CallToolRequest, args SetSurfaceInput) (*mcpsdk.CallToolResult, SetSurfaceOutput, error) {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return nil, SetSurfaceOutput{}, fmt.Errorf("name is required")
	}
	if args.Visible == nil && args.Bounds == nil && !args.Focus {
		return nil, SetSurfaceOutput{}, fmt.Errorf("nothing to change: set visible, bounds or focus")
	}

	req := ipc.SurfaceRequest{Name: name, Visible: args.Visible}
	if args.Bounds != nil {
		b := platform.Rect{X: args.Bounds.X, Y: args.Bounds.Y, Width: args.Bounds.Width, Height: args.Bounds.Height}
		if b.Empty() {
			return nil, SetSurfaceOutput{}, fmt.Errorf("bounds must have a positive size")
		}
		req.Bounds = &b
	}
	payload := ipc.SetSurfacesPayload{
		Surfaces: []ipc.SurfaceRequest{req},
		Instant:  args.Instant,
	}
	if args.Focus {
		payload.Focus = name
	}
	if err := s.daemon.SetSurfaces(payload); err != nil {
		return nil, SetSurfaceOutput{Name: name}, err
	}
	s.logger.Debug("set_surface", "name", name, "instant", args.Instant)
	return nil, SetSurfaceOutput{Name: name, Applied: true}, nil
}

func (s *Server) handleShowSurface(_ context.Context, _ *mcpsdk.CallToolRequest, args ShowSurfaceInput) (*mcpsdk.CallToolResult, SetSurfaceOutput, error) {
	name := strings.TrimSpace(args.Name)
	if name == "" {
		return nil, SetSurfaceOutput{}, fmt.Errorf("name is required")
	}
	var err error
	if args.Visible != nil && !*args.Visible {
		err = s.daemon.Hide(name)
	} else {
		err = s.daemon.Show(name)
	}
	if err != nil {
		return nil, SetSurfaceOutput{Name: name}, err
	}
	return nil, SetSurfaceOutput{Name: name, Applied: true}, nil
}

func (s *Server) handleLaunchTask(_ context.Context, _ *mcpsdk.CallToolRequest, args LaunchTaskInput) (*mcpsdk.CallToolResult, LaunchTaskOutput, error) {
	if strings.TrimSpace(args.Area) == "" {
		return nil, LaunchTaskOutput{}, fmt.Errorf("area is required")
	}
	if !strings.Contains(args.Activity, "/") {
		return nil, LaunchTaskOutput{}, fmt.Errorf("activity must be package/class, got %q", args.Activity)
	}
	task, err := s.daemon.LaunchTask(ipc.LaunchTaskPayload{
		Area:     args.Area,
		Activity: args.Activity,
		TaskView: args.TaskView,
	})
	if err != nil {
		return nil, LaunchTaskOutput{}, err
	}
	s.logger.Info("task launched", "area", args.Area, "activity", args.Activity, "task", task.ID)
	return nil, LaunchTaskOutput{Task: *task}, nil
}

func (s *Server) handleCloseTask(_ context.Context, _ *mcpsdk.CallToolRequest, args CloseTaskInput) (*mcpsdk.CallToolResult, CloseTaskOutput, error) {
	if args.TaskID <= 0 {
		return nil, CloseTaskOutput{}, fmt.Errorf("task_id must be positive")
	}
	if err := s.daemon.CloseTask(args.TaskID); err != nil {
		return nil, CloseTaskOutput{}, err
	}
	return nil, CloseTaskOutput{Closed: true}, nil
}

func (s *Server) handleResizeDisplay(_ context.Context, _ *mcpsdk.CallToolRequest, args ResizeDisplayInput) (*mcpsdk.CallToolResult, ResizeDisplayOutput, error) {
	if args.Width <= 0 || args.Height <= 0 {
		return nil, ResizeDisplayOutput{}, fmt.Errorf("width and height must be positive")
	}
	if err := s.daemon.ResizeDisplay(args.DisplayID, args.Width, args.Height); err != nil {
		return nil, ResizeDisplayOutput{}, err
	}
	return nil, ResizeDisplayOutput{DisplayID: args.DisplayID, Width: args.Width, Height: args.Height}, nil
}
