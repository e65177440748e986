// Package mainthread provides the single-threaded serialization context that
// owns all display-area coordinator state.
package mainthread

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrStopped is returned by Call when the executor stopped before running fn.
var ErrStopped = errors.New("executor stopped")

// Executor runs posted functions one at a time in post order.
type Executor interface {
	Execute(fn func())
}

// Loop is an Executor backed by a single goroutine started with Run.
// Execute never blocks the caller.
type Loop struct {
	mu      sync.Mutex
	tasks   []func()
	wake    chan struct{}
	stopped bool
	logger  *slog.Logger
}

var _ Executor = (*Loop)(nil)

// NewLoop creates an idle loop. Functions posted before Run are kept.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Execute posts fn to the loop. Posts after the loop stopped are dropped.
func (l *Loop) Execute(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		l.logger.Warn("dropping task posted to stopped executor")
		return
	}
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run processes posted functions until ctx is cancelled. Blocks.
func (l *Loop) Run(ctx context.Context) {
	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.tasks = nil
		l.mu.Unlock()
	}()

	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			l.run(fn)
			if ctx.Err() != nil {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, true
}

func (l *Loop) run(fn func()) {
	// A panicking task must not take the whole context down.
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("executor task panic recovered", "error", err)
		}
	}()
	fn()
}

// Manual is an Executor that only runs posted functions when Drain is
// called. Tests use it to step the serialization context deterministically.
type Manual struct {
	mu    sync.Mutex
	tasks []func()
}

var _ Executor = (*Manual)(nil)

func (m *Manual) Execute(fn func()) {
	m.mu.Lock()
	m.tasks = append(m.tasks, fn)
	m.mu.Unlock()
}

// Drain runs posted functions, including ones posted while draining, until
// none remain. It returns how many ran.
func (m *Manual) Drain() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.tasks) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.tasks[0]
		m.tasks = m.tasks[1:]
		m.mu.Unlock()

		fn()
		n++
	}
}

// Pending returns the number of functions waiting to run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Call posts fn to e and waits until it ran or ctx is done.
func Call(ctx context.Context, e Executor, fn func()) error {
	done := make(chan struct{})
	e.Execute(func() {
		defer close(done)
		fn()
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
