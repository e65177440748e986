package compositor

import (
	"errors"
	"testing"

	"github.com/1broseidon/dashell/internal/platform"
)

func TestTransaction_ApplyInOrder(t *testing.T) {
	b := platform.NewMemoryBackend()
	host, _ := b.CreateSurface(platform.NoSurface, platform.Rect{Width: 10, Height: 10})
	leash, _ := b.CreateSurface(platform.NoSurface, platform.Rect{})

	tx := NewTransaction(b).
		Reparent(leash, host).
		SetPosition(leash, 3, 4).
		SetAlpha(leash, 0.5).
		Show(leash).
		SetCornerRadius(host, 12)

	if tx.Len() != 5 {
		t.Fatalf("expected 5 ops, got %d", tx.Len())
	}
	if err := tx.Apply(); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if tx.Len() != 0 {
		t.Fatalf("apply should clear ops")
	}

	s, _ := b.Surface(leash)
	if s.Parent != host || s.Bounds.X != 3 || s.Bounds.Y != 4 || s.Alpha != 0.5 || !s.Visible {
		t.Fatalf("unexpected leash state %+v", s)
	}
	if h, _ := b.Surface(host); h.CornerRadius != 12 {
		t.Fatalf("corner radius not applied: %+v", h)
	}
}

func TestTransaction_ApplyContinuesPastFailures(t *testing.T) {
	b := platform.NewMemoryBackend()
	leash, _ := b.CreateSurface(platform.NoSurface, platform.Rect{})

	err := NewTransaction(b).
		Show(99).
		Show(leash).
		Apply()
	if !errors.Is(err, platform.ErrUnknownSurface) {
		t.Fatalf("expected joined ErrUnknownSurface, got %v", err)
	}
	if s, _ := b.Surface(leash); !s.Visible {
		t.Fatalf("op after failure should still apply")
	}
}

func TestTransaction_Merge(t *testing.T) {
	b := platform.NewMemoryBackend()
	a := NewTransaction(b).Show(1)
	other := NewTransaction(b).Hide(2).SetAlpha(2, 0)

	a.Merge(other)
	ops := a.Ops()
	if len(ops) != 3 || ops[1].Kind != OpHide || ops[2].Kind != OpSetAlpha {
		t.Fatalf("unexpected merged ops %+v", ops)
	}
	if other.Len() != 0 {
		t.Fatalf("merge should drain the source transaction")
	}
}
