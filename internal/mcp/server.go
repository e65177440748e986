// Package mcp exposes the dashell daemon to MCP clients over stdio.
package mcp

import (
	"context"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/dashell/internal/ipc"
	"github.com/1broseidon/dashell/internal/platform"
)

const (
	ServerName    = "dashell"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools call.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	SetSurfaces(p ipc.SetSurfacesPayload) error
	Show(name string) error
	Hide(name string) error
	SetBounds(name string, bounds platform.Rect) error
	LaunchTask(p ipc.LaunchTaskPayload) (*ipc.TaskData, error)
	CloseTask(taskID int) error
	ResizeDisplay(displayID, width, height int) error
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for display-area control.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	logger    *slog.Logger
}

// NewServer creates an MCP server that forwards tool calls to the daemon.
func NewServer(daemon Daemon, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		daemon: daemon,
		logger: logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_surfaces",
		Description: "List the display areas managed by dashell with their committed visibility and bounds, plus the running tasks and whether a transition is in flight.",
	}, s.handleListSurfaces)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_surface",
		Description: "Change the visibility and/or bounds of one display area. Unset fields keep their current value. Other areas are left alone.",
	}, s.handleSetSurface)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "show_surface",
		Description: "Show a display area at its home bounds, hiding the other areas of its group, or hide it with visible=false.",
	}, s.handleShowSurface)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "launch_task",
		Description: "Launch an activity into a display area. The area is opened by the default animation policy.",
	}, s.handleLaunchTask)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "close_task",
		Description: "Close a running task by id.",
	}, s.handleCloseTask)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "resize_display",
		Description: "Resize a display. Display areas on it are scaled proportionally.",
	}, s.handleResizeDisplay)
}
