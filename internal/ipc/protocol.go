package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/dashell/internal/platform"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandReload        CommandType = "RELOAD"
	CommandGetStatus     CommandType = "GET_STATUS"
	CommandSetSurfaces   CommandType = "SET_SURFACES"
	CommandShow          CommandType = "SHOW"
	CommandHide          CommandType = "HIDE"
	CommandSetBounds     CommandType = "SET_BOUNDS"
	CommandLaunchTask    CommandType = "LAUNCH_TASK"
	CommandCloseTask     CommandType = "CLOSE_TASK"
	CommandResizeDisplay CommandType = "RESIZE_DISPLAY"
	CommandSetInsets     CommandType = "SET_INSETS"
	CommandSetObscured   CommandType = "SET_OBSCURED_TOUCH"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// SurfaceData describes one display-area surface and its committed state.
type SurfaceData struct {
	Name            string        `json:"name"`
	ID              string        `json:"id"`
	DisplayID       int           `json:"display_id"`
	FeatureID       int           `json:"feature_id"`
	LaunchFeatureID int           `json:"launch_feature_id"`
	Group           string        `json:"group,omitempty"`
	Visible         bool          `json:"visible"`
	Bounds          platform.Rect `json:"bounds"`
	SurfaceCreated  bool          `json:"surface_created"`
	CornerRadius    int           `json:"corner_radius,omitempty"`
	Insets          []InsetsData  `json:"insets,omitempty"`
	// ObscuredTouch is the region of the area that does not take input.
	ObscuredTouch []platform.Rect `json:"obscured_touch,omitempty"`
}

// InsetsData is one insets frame an area contributes.
type InsetsData struct {
	Index int           `json:"index"`
	Type  int           `json:"type"`
	Frame platform.Rect `json:"frame"`
}

// TaskData describes a running task.
type TaskData struct {
	ID          int    `json:"id"`
	DisplayID   int    `json:"display_id"`
	FeatureID   int    `json:"feature_id"`
	Activity    string `json:"activity"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Surfaces            []SurfaceData `json:"surfaces"`
	Tasks               []TaskData    `json:"tasks"`
	Pending             int           `json:"pending"`
	InFlight            bool          `json:"in_flight"`
	HasAnimationHandler bool          `json:"has_animation_handler"`
	UptimeSeconds       int64         `json:"uptime_seconds"`
	DaemonRunning       bool          `json:"daemon_running"`
}

// SurfaceRequest is the requested state of one surface. A nil field keeps
// the committed value.
type SurfaceRequest struct {
	Name    string         `json:"name"`
	Visible *bool          `json:"visible,omitempty"`
	Bounds  *platform.Rect `json:"bounds,omitempty"`
}

// SetSurfacesPayload starts one transaction over several surfaces.
type SetSurfacesPayload struct {
	Surfaces []SurfaceRequest `json:"surfaces"`
	Focus    string           `json:"focus,omitempty"`
	Instant  bool             `json:"instant,omitempty"`
}

// SurfacePayload is the payload of SHOW and HIDE.
type SurfacePayload struct {
	Name string `json:"name"`
}

type SetBoundsPayload struct {
	Name   string        `json:"name"`
	Bounds platform.Rect `json:"bounds"`
}

type LaunchTaskPayload struct {
	Area     string `json:"area"`
	Activity string `json:"activity"`
	TaskView bool   `json:"task_view,omitempty"`
}

type CloseTaskPayload struct {
	TaskID int `json:"task_id"`
}

type ResizeDisplayPayload struct {
	DisplayID int `json:"display_id"`
	Width     int `json:"width"`
	Height    int `json:"height"`
}

// SetInsetsPayload adds or replaces an insets frame. A nil Frame removes it.
type SetInsetsPayload struct {
	Name  string         `json:"name"`
	Index int            `json:"index"`
	Type  int            `json:"type"`
	Frame *platform.Rect `json:"frame,omitempty"`
}

// SetObscuredTouchPayload replaces an area's obscured touch region. An empty
// region clears it.
type SetObscuredTouchPayload struct {
	Name   string          `json:"name"`
	Region []platform.Rect `json:"region,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}
