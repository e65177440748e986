package daview

import (
	"log/slog"

	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/wm"
)

// ChangeType classifies what a transition does to a view.
type ChangeType int

const (
	ChangeNone ChangeType = iota
	ChangeHide
	ChangeShow
	ChangeBounds
)

type changeBehavior struct {
	name string
	// logMsg is empty for changes that are not logged.
	logMsg string
	// attachSnapshot reattaches a captured display-area snapshot to the view
	// surface so a frozen image stays visible while content detaches.
	attachSnapshot bool
	// leashVisible decides the opacity of a task leash inside the view.
	leashVisible func(mode wm.TransitionType, hasSnapshot bool) bool
}

var changeBehaviors = [...]changeBehavior{
	ChangeNone: {
		name:         "none",
		leashVisible: func(wm.TransitionType, bool) bool { return false },
	},
	ChangeHide: {
		name:           "hide",
		logMsg:         "hiding display area",
		attachSnapshot: true,
		leashVisible: func(mode wm.TransitionType, hasSnapshot bool) bool {
			return mode.IsClosing() && !hasSnapshot
		},
	},
	ChangeShow: {
		name:   "show",
		logMsg: "showing display area",
		leashVisible: func(mode wm.TransitionType, _ bool) bool {
			return mode.IsOpening()
		},
	},
	ChangeBounds: {
		name:           "bounds",
		logMsg:         "changing display area",
		attachSnapshot: true,
		leashVisible: func(_ wm.TransitionType, hasSnapshot bool) bool {
			return !hasSnapshot
		},
	},
}

func (c ChangeType) behavior() changeBehavior {
	if c < 0 || int(c) >= len(changeBehaviors) {
		return changeBehaviors[ChangeNone]
	}
	return changeBehaviors[c]
}

func (c ChangeType) String() string { return c.behavior().name }

// LeashVisible reports whether a task leash changing with mode should be
// opaque for this change type.
func (c ChangeType) LeashVisible(mode wm.TransitionType, hasSnapshot bool) bool {
	return c.behavior().leashVisible(mode, hasSnapshot)
}

func (c ChangeType) logChange(logger *slog.Logger, v *View) {
	if msg := c.behavior().logMsg; msg != "" {
		logger.Debug(msg, "view", v.String())
	}
}

// viewChange is the per-view outcome of classifying a started transition.
type viewChange struct {
	typ      ChangeType
	snapshot platform.SurfaceID
}
