package daemon

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingResyncer struct {
	calls atomic.Int32
	panic bool
}

func (c *countingResyncer) ResyncLeashes() {
	c.calls.Add(1)
	if c.panic {
		panic("boom")
	}
}

func TestReconcileNowRecoversPanics(t *testing.T) {
	target := &countingResyncer{panic: true}
	r := NewReconciler(ReconcilerConfig{}, target)
	r.ReconcileNow()
	r.ReconcileNow()
	if got := target.calls.Load(); got != 2 {
		t.Fatalf("expected 2 resyncs, got %d", got)
	}
	if r.interval != 30*time.Second {
		t.Fatalf("expected default interval, got %v", r.interval)
	}
}

func TestReconcilerRunTicks(t *testing.T) {
	target := &countingResyncer{}
	r := NewReconciler(ReconcilerConfig{Interval: 5 * time.Millisecond}, target)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Run(ctx)
	}()

	deadline := time.Now().Add(time.Second)
	for target.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("reconciler ticked %d times", target.calls.Load())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "debug",
		" WARN ":  "warn",
		"error":   "error",
		"":        "info",
		"verbose": "info",
	}
	for in, want := range tests {
		if got := ParseLevel(in).String(); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
