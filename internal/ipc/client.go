package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientAt(socketPath)
}

// NewClientAt creates a client for the socket at socketPath.
func NewClientAt(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    DefaultRequestTimeout + time.Second,
	}
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

func (c *Client) call(cmd CommandType, payload any, out any) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", cmd, err)
		}
		req.Payload = data
	}
	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("failed to parse %s data: %w", cmd, err)
		}
	}
	return nil
}

// Reload sends a RELOAD command to the daemon
func (c *Client) Reload() error {
	return c.call(CommandReload, nil, nil)
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SetSurfaces starts a transaction over several surfaces.
func (c *Client) SetSurfaces(p SetSurfacesPayload) error {
	return c.call(CommandSetSurfaces, p, nil)
}

// Show shows a display area at its home bounds, hiding its group siblings.
func (c *Client) Show(name string) error {
	return c.call(CommandShow, SurfacePayload{Name: name}, nil)
}

// Hide hides a display area.
func (c *Client) Hide(name string) error {
	return c.call(CommandHide, SurfacePayload{Name: name}, nil)
}

// SetBounds moves a display area, keeping its visibility.
func (c *Client) SetBounds(name string, bounds platform.Rect) error {
	return c.call(CommandSetBounds, SetBoundsPayload{Name: name, Bounds: bounds}, nil)
}

// LaunchTask starts an activity in the named display area.
func (c *Client) LaunchTask(p LaunchTaskPayload) (*TaskData, error) {
	var task TaskData
	if err := c.call(CommandLaunchTask, p, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CloseTask finishes a running task.
func (c *Client) CloseTask(taskID int) error {
	return c.call(CommandCloseTask, CloseTaskPayload{TaskID: taskID}, nil)
}

// ResizeDisplay changes the size of a display.
func (c *Client) ResizeDisplay(displayID, width, height int) error {
	return c.call(CommandResizeDisplay, ResizeDisplayPayload{DisplayID: displayID, Width: width, Height: height}, nil)
}

// SetInsets adds an insets frame to a display area, or removes it when
// frame is nil.
func (c *Client) SetInsets(name string, index, typ int, frame *platform.Rect) error {
	return c.call(CommandSetInsets, SetInsetsPayload{Name: name, Index: index, Type: typ, Frame: frame}, nil)
}

// SetObscuredTouch replaces the region of a display area that ignores touch.
func (c *Client) SetObscuredTouch(name string, region []platform.Rect) error {
	return c.call(CommandSetObscured, SetObscuredTouchPayload{Name: name, Region: region}, nil)
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
