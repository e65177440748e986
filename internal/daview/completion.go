package daview

import (
	"errors"
	"log/slog"
	"sync/atomic"
)

// ErrAlreadyFinished is returned when a completion is signalled twice.
var ErrAlreadyFinished = errors.New("animation completion already signalled")

// Completion is the single-shot token an AnimationHandler signals when
// playback ends. Finish may be called from any goroutine; the commit runs on
// the coordinator's serialization context.
type Completion struct {
	fired  atomic.Bool
	commit func(done func())
	done   chan struct{}
	logger *slog.Logger
}

func newCompletion(logger *slog.Logger, commit func(done func())) *Completion {
	return &Completion{
		commit: commit,
		done:   make(chan struct{}),
		logger: logger,
	}
}

// NewCompletion returns a completion that runs onFinish once. It is meant for
// driving an AnimationHandler outside a Transitions coordinator.
func NewCompletion(logger *slog.Logger, onFinish func()) *Completion {
	if logger == nil {
		logger = slog.Default()
	}
	return newCompletion(logger, func(closeDone func()) {
		if onFinish != nil {
			onFinish()
		}
		closeDone()
	})
}

// Finish commits the animated states. Only the first call has an effect;
// later calls return ErrAlreadyFinished.
func (c *Completion) Finish() error {
	if !c.fired.CompareAndSwap(false, true) {
		c.logger.Error("animation handler signalled completion twice")
		return ErrAlreadyFinished
	}
	c.commit(func() { close(c.done) })
	return nil
}

// Finished reports whether Finish was called.
func (c *Completion) Finished() bool { return c.fired.Load() }

// Done is closed once the committed state is visible on the coordinator.
func (c *Completion) Done() <-chan struct{} { return c.done }
