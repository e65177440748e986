package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/dashell/internal/runtimepath"
)

// Controller is the daemon side of the protocol. Calls may block until the
// coordinator has processed them, bounded by ctx.
type Controller interface {
	Status(ctx context.Context) (StatusData, error)
	SetSurfaces(ctx context.Context, req SetSurfacesPayload) error
	Show(ctx context.Context, name string, visible bool) error
	SetBounds(ctx context.Context, req SetBoundsPayload) error
	LaunchTask(ctx context.Context, req LaunchTaskPayload) (TaskData, error)
	CloseTask(ctx context.Context, taskID int) error
	ResizeDisplay(ctx context.Context, req ResizeDisplayPayload) error
	SetInsets(ctx context.Context, req SetInsetsPayload) error
	SetObscuredTouch(ctx context.Context, req SetObscuredTouchPayload) error
	Reload() error
}

// DefaultRequestTimeout bounds how long a single request may take.
const DefaultRequestTimeout = 5 * time.Second

// Server handles IPC requests from clients
type Server struct {
	socketPath   string
	listener     net.Listener
	ctrl         Controller
	logger       *slog.Logger
	startTime    time.Time
	shuttingDown bool
	shutdownMu   sync.Mutex
	wg           sync.WaitGroup
}

// NewServer creates a server on the runtime socket path.
func NewServer(ctrl Controller, logger *slog.Logger) (*Server, error) {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return NewServerAt(socketPath, ctrl, logger), nil
}

// NewServerAt creates a server listening on socketPath.
func NewServerAt(socketPath string, ctrl Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	// Remove a stale socket left by a crashed daemon.
	os.Remove(socketPath)

	return &Server{
		socketPath: socketPath,
		ctrl:       ctrl,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// Start begins listening for IPC connections
func (s *Server) Start() error {
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("IPC server listening", "socket", s.socketPath)
	go s.acceptLoop()
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.shutdownMu.Lock()
			if s.shuttingDown {
				s.shutdownMu.Unlock()
				return
			}
			s.shutdownMu.Unlock()
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

// handleConnection serves exactly one request per connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("IPC handler panic recovered", "panic", r)
		}
	}()

	reader := bufio.NewReader(conn)
	data, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		s.logger.Warn("IPC read error", "error", err)
		return
	}

	req, err := ParseRequest(data)
	if err != nil {
		s.writeResponse(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultRequestTimeout)
	defer cancel()
	s.writeResponse(conn, s.handleCommand(ctx, req))
}

func (s *Server) writeResponse(conn net.Conn, resp *Response) {
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Warn("failed to marshal response", "error", err)
		return
	}
	respData = append(respData, '\n')
	if _, err := conn.Write(respData); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// handleCommand processes an IPC command and returns a response
func (s *Server) handleCommand(ctx context.Context, req *Request) *Response {
	s.logger.Debug("IPC request", "command", string(req.Command))

	switch req.Command {
	case CommandReload:
		return s.respond(nil, s.ctrl.Reload())
	case CommandGetStatus:
		status, err := s.ctrl.Status(ctx)
		status.UptimeSeconds = int64(time.Since(s.startTime).Seconds())
		status.DaemonRunning = true
		return s.respond(status, err)
	case CommandSetSurfaces:
		var p SetSurfacesPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		if len(p.Surfaces) == 0 {
			return NewErrorResponse("surfaces is required")
		}
		return s.respond(nil, s.ctrl.SetSurfaces(ctx, p))
	case CommandShow, CommandHide:
		var p SurfacePayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		if p.Name == "" {
			return NewErrorResponse("name is required")
		}
		return s.respond(nil, s.ctrl.Show(ctx, p.Name, req.Command == CommandShow))
	case CommandSetBounds:
		var p SetBoundsPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		if p.Name == "" {
			return NewErrorResponse("name is required")
		}
		if p.Bounds.Empty() {
			return NewErrorResponse("bounds must have a positive size")
		}
		return s.respond(nil, s.ctrl.SetBounds(ctx, p))
	case CommandLaunchTask:
		var p LaunchTaskPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		if p.Area == "" || p.Activity == "" {
			return NewErrorResponse("area and activity are required")
		}
		task, err := s.ctrl.LaunchTask(ctx, p)
		return s.respond(task, err)
	case CommandCloseTask:
		var p CloseTaskPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		return s.respond(nil, s.ctrl.CloseTask(ctx, p.TaskID))
	case CommandResizeDisplay:
		var p ResizeDisplayPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		if p.Width <= 0 || p.Height <= 0 {
			return NewErrorResponse("width and height must be positive")
		}
		return s.respond(nil, s.ctrl.ResizeDisplay(ctx, p))
	case CommandSetInsets:
		var p SetInsetsPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		if p.Name == "" {
			return NewErrorResponse("name is required")
		}
		return s.respond(nil, s.ctrl.SetInsets(ctx, p))
	case CommandSetObscured:
		var p SetObscuredTouchPayload
		if err := decodePayload(req.Payload, &p); err != nil {
			return NewErrorResponse(err.Error())
		}
		if p.Name == "" {
			return NewErrorResponse("name is required")
		}
		return s.respond(nil, s.ctrl.SetObscuredTouch(ctx, p))
	default:
		return NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
	}
}

func (s *Server) respond(data any, err error) *Response {
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func decodePayload(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return fmt.Errorf("payload is required")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the IPC server
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}
