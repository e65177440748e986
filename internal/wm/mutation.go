package wm

import (
	"fmt"
	"strings"

	"github.com/1broseidon/dashell/internal/platform"
)

// OpKind identifies a window-container mutation.
type OpKind int

const (
	OpSetBounds OpKind = iota
	OpLaunchPlaceholder
	OpRemoveTask
	OpReorder
	OpAddInsetsSource
	OpRemoveInsetsSource
)

func (k OpKind) String() string {
	switch k {
	case OpSetBounds:
		return "set-bounds"
	case OpLaunchPlaceholder:
		return "launch-placeholder"
	case OpRemoveTask:
		return "remove-task"
	case OpReorder:
		return "reorder"
	case OpAddInsetsSource:
		return "add-insets"
	case OpRemoveInsetsSource:
		return "remove-insets"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// InsetsSource is an insets frame contributed by an owner.
type InsetsSource struct {
	Owner string
	Index int
	Type  int
	Frame platform.Rect
}

// Op is a single structural change requested from the host.
type Op struct {
	Kind      OpKind
	Container Token
	Bounds    platform.Rect

	// Placeholder launch target.
	DisplayID       int
	LaunchFeatureID int

	// Reorder flags.
	OnTop            bool
	IncludingParents bool

	Insets InsetsSource
}

// Mutation is an ordered list of structural changes submitted to the host,
// either applied directly or as part of a transition.
type Mutation struct {
	ops []Op
}

// NewMutation returns an empty mutation.
func NewMutation() *Mutation {
	return &Mutation{}
}

func (m *Mutation) add(op Op) *Mutation {
	m.ops = append(m.ops, op)
	return m
}

// SetBounds resizes a container.
func (m *Mutation) SetBounds(container Token, bounds platform.Rect) *Mutation {
	return m.add(Op{Kind: OpSetBounds, Container: container, Bounds: bounds})
}

// LaunchPlaceholder starts the transparent placeholder task inside the task
// display area identified by (displayID, launchFeatureID).
func (m *Mutation) LaunchPlaceholder(displayID, launchFeatureID int) *Mutation {
	return m.add(Op{Kind: OpLaunchPlaceholder, DisplayID: displayID, LaunchFeatureID: launchFeatureID})
}

// RemoveTask finishes a task.
func (m *Mutation) RemoveTask(task Token) *Mutation {
	return m.add(Op{Kind: OpRemoveTask, Container: task})
}

// Reorder moves a container to the top or bottom of its parent.
func (m *Mutation) Reorder(container Token, onTop, includingParents bool) *Mutation {
	return m.add(Op{Kind: OpReorder, Container: container, OnTop: onTop, IncludingParents: includingParents})
}

// AddInsetsSource contributes an insets frame to a container.
func (m *Mutation) AddInsetsSource(container Token, src InsetsSource) *Mutation {
	return m.add(Op{Kind: OpAddInsetsSource, Container: container, Insets: src})
}

// RemoveInsetsSource withdraws an insets frame previously added by owner.
func (m *Mutation) RemoveInsetsSource(container Token, owner string, index, typ int) *Mutation {
	return m.add(Op{Kind: OpRemoveInsetsSource, Container: container, Insets: InsetsSource{Owner: owner, Index: index, Type: typ}})
}

// Merge appends the operations of other to m.
func (m *Mutation) Merge(other *Mutation) *Mutation {
	m.ops = append(m.ops, other.Ops()...)
	return m
}

// Ops returns a copy of the recorded operations.
func (m *Mutation) Ops() []Op {
	if m == nil {
		return nil
	}
	return append([]Op(nil), m.ops...)
}

// Len returns the number of operations.
func (m *Mutation) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ops)
}

// Empty reports whether the mutation carries no operations.
func (m *Mutation) Empty() bool {
	return m.Len() == 0
}

// Count returns how many operations of kind k the mutation holds.
func (m *Mutation) Count(k OpKind) int {
	n := 0
	for _, op := range m.Ops() {
		if op.Kind == k {
			n++
		}
	}
	return n
}

func (m *Mutation) String() string {
	parts := make([]string, 0, m.Len())
	for _, op := range m.Ops() {
		switch op.Kind {
		case OpLaunchPlaceholder:
			parts = append(parts, fmt.Sprintf("%s(display=%d feature=%d)", op.Kind, op.DisplayID, op.LaunchFeatureID))
		case OpSetBounds:
			parts = append(parts, fmt.Sprintf("%s(%s %+v)", op.Kind, op.Container, op.Bounds))
		default:
			parts = append(parts, fmt.Sprintf("%s(%s)", op.Kind, op.Container))
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}
