package wm

import (
	"github.com/1broseidon/dashell/internal/compositor"
	"github.com/1broseidon/dashell/internal/platform"
)

// FinishFunc tells the host a transition has finished animating.
type FinishFunc func()

// Handler takes part in host transitions. All methods are invoked on the
// host's main serialization context and must not block it.
type Handler interface {
	// HandleRequest may return a mutation to merge into a transition the
	// host is about to start, claiming it. Nil declines.
	HandleRequest(id TransitionID, req RequestInfo) *Mutation
	// StartAnimation plays a started transition. Returning false tells the
	// host the handler does not own it.
	StartAnimation(id TransitionID, info TransitionInfo, start, finish *compositor.Transaction, done FinishFunc) bool
	// OnTransitionConsumed reports a transition that was merged or aborted
	// without being animated by this handler.
	OnTransitionConsumed(id TransitionID, aborted bool, finish *compositor.Transaction)
}

// Host is the window-manager transition system.
type Host interface {
	AddHandler(h Handler)
	// StartTransition submits a mutation as a new transition and returns its
	// id. Start-animation for it is delivered later, never re-entrantly.
	StartTransition(t TransitionType, m *Mutation, h Handler) TransitionID
	// ApplyTransaction applies a mutation without a transition.
	ApplyTransaction(m *Mutation)
	RunningTasks() []TaskInfo
}

// DisplayAreaAppeared pairs a display area with its leash.
type DisplayAreaAppeared struct {
	Info  DisplayAreaInfo
	Leash platform.SurfaceID
}

// DisplayAreaListener is notified when an organized display area appears.
type DisplayAreaListener interface {
	OnDisplayAreaAppeared(info DisplayAreaInfo, leash platform.SurfaceID)
}

// Organizer hands out leashes of display areas by feature id.
type Organizer interface {
	RegisterOrganizer(featureID int, l DisplayAreaListener) ([]DisplayAreaAppeared, error)
}
