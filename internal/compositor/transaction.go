// Package compositor batches leash operations and applies them in order to a
// platform backend.
package compositor

import (
	"errors"
	"fmt"
	"sync"

	"github.com/1broseidon/dashell/internal/platform"
)

// OpKind identifies a surface operation.
type OpKind int

const (
	OpReparent OpKind = iota
	OpSetPosition
	OpSetAlpha
	OpShow
	OpHide
	OpSetCornerRadius
	OpSetBounds
)

func (k OpKind) String() string {
	switch k {
	case OpReparent:
		return "reparent"
	case OpSetPosition:
		return "position"
	case OpSetAlpha:
		return "alpha"
	case OpShow:
		return "show"
	case OpHide:
		return "hide"
	case OpSetCornerRadius:
		return "corner-radius"
	case OpSetBounds:
		return "bounds"
	default:
		return "unknown"
	}
}

// Op is a single recorded surface operation.
type Op struct {
	Kind    OpKind
	Surface platform.SurfaceID
	Parent  platform.SurfaceID
	X, Y    int
	Alpha   float64
	Radius  int
	Bounds  platform.Rect
}

// Transaction records surface operations until Apply is called.
// Builder methods return the transaction so calls can be chained.
type Transaction struct {
	mu      sync.Mutex
	backend platform.Backend
	ops     []Op
}

// NewTransaction creates an empty transaction bound to backend.
func NewTransaction(backend platform.Backend) *Transaction {
	return &Transaction{backend: backend}
}

func (t *Transaction) add(op Op) *Transaction {
	t.mu.Lock()
	t.ops = append(t.ops, op)
	t.mu.Unlock()
	return t
}

// Reparent attaches surface under parent. platform.NoSurface detaches it.
func (t *Transaction) Reparent(surface, parent platform.SurfaceID) *Transaction {
	return t.add(Op{Kind: OpReparent, Surface: surface, Parent: parent})
}

func (t *Transaction) SetPosition(surface platform.SurfaceID, x, y int) *Transaction {
	return t.add(Op{Kind: OpSetPosition, Surface: surface, X: x, Y: y})
}

func (t *Transaction) SetAlpha(surface platform.SurfaceID, alpha float64) *Transaction {
	return t.add(Op{Kind: OpSetAlpha, Surface: surface, Alpha: alpha})
}

func (t *Transaction) Show(surface platform.SurfaceID) *Transaction {
	return t.add(Op{Kind: OpShow, Surface: surface})
}

func (t *Transaction) Hide(surface platform.SurfaceID) *Transaction {
	return t.add(Op{Kind: OpHide, Surface: surface})
}

func (t *Transaction) SetCornerRadius(surface platform.SurfaceID, radius int) *Transaction {
	return t.add(Op{Kind: OpSetCornerRadius, Surface: surface, Radius: radius})
}

// SetBounds moves and resizes surface.
func (t *Transaction) SetBounds(surface platform.SurfaceID, bounds platform.Rect) *Transaction {
	return t.add(Op{Kind: OpSetBounds, Surface: surface, Bounds: bounds})
}

// Merge moves all ops of other to the end of t.
func (t *Transaction) Merge(other *Transaction) *Transaction {
	if other == nil || other == t {
		return t
	}
	other.mu.Lock()
	ops := other.ops
	other.ops = nil
	other.mu.Unlock()

	t.mu.Lock()
	t.ops = append(t.ops, ops...)
	t.mu.Unlock()
	return t
}

// Ops returns a copy of the recorded operations.
func (t *Transaction) Ops() []Op {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Op(nil), t.ops...)
}

// Len returns the number of recorded operations.
func (t *Transaction) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

// Apply executes every recorded op in order and clears the transaction.
// Every op is attempted; failures are joined into the returned error.
func (t *Transaction) Apply() error {
	t.mu.Lock()
	ops := t.ops
	t.ops = nil
	t.mu.Unlock()

	if t.backend == nil {
		return fmt.Errorf("apply %d ops: compositor transaction has no backend", len(ops))
	}

	var errs []error
	for _, op := range ops {
		if err := t.applyOp(op); err != nil {
			errs = append(errs, fmt.Errorf("%s %d: %w", op.Kind, op.Surface, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Transaction) applyOp(op Op) error {
	switch op.Kind {
	case OpReparent:
		return t.backend.Reparent(op.Surface, op.Parent)
	case OpSetPosition:
		return t.backend.SetPosition(op.Surface, op.X, op.Y)
	case OpSetAlpha:
		return t.backend.SetAlpha(op.Surface, op.Alpha)
	case OpShow:
		return t.backend.SetVisible(op.Surface, true)
	case OpHide:
		return t.backend.SetVisible(op.Surface, false)
	case OpSetCornerRadius:
		return t.backend.SetCornerRadius(op.Surface, op.Radius)
	case OpSetBounds:
		return t.backend.MoveResize(op.Surface, op.Bounds)
	default:
		return fmt.Errorf("unknown op kind %d", op.Kind)
	}
}
