package mcp

import "github.com/1broseidon/dashell/internal/ipc"

// ListSurfacesInput is the input for the list_surfaces tool.
type ListSurfacesInput struct {
	Group string `json:"group,omitempty" jsonschema:"Only list display areas in this group"`
}

// ListSurfacesOutput is the output for the list_surfaces tool.
type ListSurfacesOutput struct {
	Surfaces []ipc.SurfaceData `json:"surfaces"`
	Tasks    []ipc.TaskData    `json:"tasks"`
	Pending  int               `json:"pending"`
	InFlight bool              `json:"in_flight"`
}

// BoundsInput is a rectangle in display coordinates.
type BoundsInput struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width" jsonschema:"required,Width in pixels"`
	Height int `json:"height" jsonschema:"required,Height in pixels"`
}

// SetSurfaceInput is the input for the set_surface tool.
type SetSurfaceInput struct {
	Name    string       `json:"name" jsonschema:"required,Display area name from config"`
	Visible *bool        `json:"visible,omitempty" jsonschema:"Show (true) or hide (false) the area. Omit to keep the current visibility."`
	Bounds  *BoundsInput `json:"bounds,omitempty" jsonschema:"New on-screen bounds. Omit to keep the current bounds."`
	Focus   bool         `json:"focus,omitempty" jsonschema:"Bring the area to the front after the change"`
	Instant bool         `json:"instant,omitempty" jsonschema:"Apply without animating"`
}

// SetSurfaceOutput is the output for the set_surface tool.
type SetSurfaceOutput struct {
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

// ShowSurfaceInput is the input for the show_surface tool.
type ShowSurfaceInput struct {
	Name    string `json:"name" jsonschema:"required,Display area name from config"`
	Visible *bool  `json:"visible,omitempty" jsonschema:"false hides the area (default: true)"`
}

// LaunchTaskInput is the input for the launch_task tool.
type LaunchTaskInput struct {
	Area     string `json:"area" jsonschema:"required,Display area to launch into"`
	Activity string `json:"activity" jsonschema:"required,Component name as package/class"`
	TaskView bool   `json:"task_view,omitempty" jsonschema:"Host the task in an embedded task view"`
}

// LaunchTaskOutput is the output for the launch_task tool.
type LaunchTaskOutput struct {
	Task ipc.TaskData `json:"task"`
}

// CloseTaskInput is the input for the close_task tool.
type CloseTaskInput struct {
	TaskID int `json:"task_id" jsonschema:"required,Task id from list_surfaces"`
}

// CloseTaskOutput is the output for the close_task tool.
type CloseTaskOutput struct {
	Closed bool `json:"closed"`
}

// ResizeDisplayInput is the input for the resize_display tool.
type ResizeDisplayInput struct {
	DisplayID int `json:"display_id,omitempty" jsonschema:"Display id (default: 0)"`
	Width     int `json:"width" jsonschema:"required,New display width"`
	Height    int `json:"height" jsonschema:"required,New display height"`
}

// ResizeDisplayOutput is the output for the resize_display tool.
type ResizeDisplayOutput struct {
	DisplayID int `json:"display_id"`
	Width     int `json:"width"`
	Height    int `json:"height"`
}
