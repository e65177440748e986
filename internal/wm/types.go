// Package wm describes the contract between display-area clients and the
// host window manager: container tokens, tasks, window-container mutations
// and the transition handler protocol.
package wm

import (
	"fmt"
	"strings"

	"github.com/1broseidon/dashell/internal/platform"
)

// Token is an opaque handle for a window container (display area or task).
type Token string

// TransitionID identifies a transition the host has started. Zero means the
// transition has not been claimed yet.
type TransitionID uint64

// TransitionType classifies a transition or a single change inside one.
type TransitionType int

const (
	TransitNone TransitionType = iota
	TransitOpen
	TransitClose
	TransitToFront
	TransitToBack
	TransitChange
)

func (t TransitionType) String() string {
	switch t {
	case TransitNone:
		return "none"
	case TransitOpen:
		return "open"
	case TransitClose:
		return "close"
	case TransitToFront:
		return "to-front"
	case TransitToBack:
		return "to-back"
	case TransitChange:
		return "change"
	default:
		return fmt.Sprintf("transit(%d)", int(t))
	}
}

// IsOpening reports whether t makes a container appear.
func (t TransitionType) IsOpening() bool {
	return t == TransitOpen || t == TransitToFront
}

// IsClosing reports whether t makes a container disappear.
func (t TransitionType) IsClosing() bool {
	return t == TransitClose || t == TransitToBack
}

// ComponentName identifies an activity by package and class.
type ComponentName struct {
	Package string
	Class   string
}

func (c ComponentName) String() string {
	return c.Package + "/" + c.Class
}

// ParseComponentName parses "package/class". A class starting with "." is
// relative to the package.
func ParseComponentName(s string) (ComponentName, error) {
	pkg, class, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok || pkg == "" || class == "" {
		return ComponentName{}, fmt.Errorf("invalid component name %q (want package/class)", s)
	}
	return ComponentName{Package: pkg, Class: class}, nil
}

// PlaceholderActivity is the default component of the task used to mark a
// display area as hidden.
var PlaceholderActivity = ComponentName{Package: "dashell", Class: ".PlaceholderActivity"}

// TaskInfo describes a running task.
type TaskInfo struct {
	ID                   int
	Token                Token
	DisplayID            int
	DisplayAreaFeatureID int
	TopActivity          ComponentName
	Bounds               platform.Rect
}

// DisplayAreaInfo describes a display area known to the organizer.
type DisplayAreaInfo struct {
	Token     Token
	DisplayID int
	FeatureID int
}

// Change is one container-level entry of a transition.
type Change struct {
	Container Token
	Mode      TransitionType
	// Task is set for task-level changes only.
	Task  *TaskInfo
	Leash platform.SurfaceID
	// Snapshot is a frozen image of the container, or platform.NoSurface.
	Snapshot platform.SurfaceID
}

// TransitionInfo is the payload of a started transition.
type TransitionInfo struct {
	Type    TransitionType
	Changes []Change
}

// DisplayChange is set on requests caused by a display resize.
type DisplayChange struct {
	DisplayID int
	EndBounds *platform.Rect
}

// RequestInfo describes a transition the host is about to start.
type RequestInfo struct {
	Type          TransitionType
	TriggerTask   *TaskInfo
	DisplayChange *DisplayChange
}
