package mainthread

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLoop_RunsInPostOrder(t *testing.T) {
	loop := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu  sync.Mutex
		got []int
	)
	// Posted before Run: must be kept.
	loop.Execute(func() {
		mu.Lock()
		got = append(got, 0)
		mu.Unlock()
	})
	go loop.Run(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= 100; i++ {
			i := i
			loop.Execute(func() {
				mu.Lock()
				got = append(got, i)
				mu.Unlock()
			})
		}
	}()
	wg.Wait()

	if err := Call(ctx, loop, func() {}); err != nil {
		t.Fatalf("call: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 101 {
		t.Fatalf("expected 101 tasks, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("task %d ran at position %d", v, i)
		}
	}
}

func TestLoop_RecoversPanics(t *testing.T) {
	loop := NewLoop(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	loop.Execute(func() { panic("boom") })

	ran := false
	if err := Call(ctx, loop, func() { ran = true }); err != nil {
		t.Fatalf("call after panic: %v", err)
	}
	if !ran {
		t.Fatalf("loop should keep running after a panic")
	}
}

func TestCall_HonorsContext(t *testing.T) {
	m := &Manual{}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := Call(ctx, m, func() {}); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if m.Pending() != 1 {
		t.Fatalf("expected task to stay queued")
	}
}

func TestManual_DrainRunsNestedPosts(t *testing.T) {
	m := &Manual{}
	var order []string
	m.Execute(func() {
		order = append(order, "a")
		m.Execute(func() { order = append(order, "c") })
	})
	m.Execute(func() { order = append(order, "b") })

	if n := m.Drain(); n != 3 {
		t.Fatalf("expected 3 tasks, got %d", n)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("unexpected order %v", order)
	}
}
