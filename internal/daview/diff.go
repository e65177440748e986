package daview

import (
	"log/slog"

	"github.com/1broseidon/dashell/internal/wm"
)

// Differ turns requested view states into host mutation ops.
type Differ struct {
	Current StateLookup
	// Tasks lists the running tasks. Only consulted when a placeholder has to
	// be removed.
	Tasks       func() []wm.TaskInfo
	Placeholder wm.ComponentName
	Logger      *slog.Logger
}

// Compute appends to m the ops needed to move every requested view from its
// committed state to the requested one, and returns the views that actually
// change. Views without a committed state are dropped with a warning.
func (d Differ) Compute(requested map[*View]State, m *wm.Mutation) map[*View]State {
	changed := make(map[*View]State)
	for _, v := range sortedViews(requested) {
		want := requested[v]
		cur, ok := d.Current.Get(v)
		if !ok {
			d.logger().Warn("view is not known to the coordinator", "view", v.String())
			continue
		}

		switch {
		case cur.Visible && !want.Visible:
			m.SetBounds(v.Token(), want.Bounds).
				LaunchPlaceholder(v.DisplayID(), v.LaunchFeatureID())
		case !cur.Visible && want.Visible:
			m.SetBounds(v.Token(), want.Bounds)
			d.RemovePlaceholders(v, m)
		case cur.Bounds != want.Bounds:
			m.SetBounds(v.Token(), want.Bounds)
			d.logger().Debug(sizeDirection(cur, want), "view", v.String())
		default:
			d.logger().Debug("requested state already committed", "view", v.String(), "state", want.String())
			continue
		}
		changed[v] = want
	}
	return changed
}

// RemovePlaceholders appends a remove-task op for every placeholder task
// running in v's launch display area. It returns how many were found.
func (d Differ) RemovePlaceholders(v *View, m *wm.Mutation) int {
	if d.Tasks == nil {
		return 0
	}
	removed := make(map[wm.Token]bool)
	for _, op := range m.Ops() {
		if op.Kind == wm.OpRemoveTask {
			removed[op.Container] = true
		}
	}
	n := 0
	for _, t := range d.Tasks() {
		if !v.owns(t) || t.TopActivity != d.Placeholder {
			continue
		}
		n++
		if !removed[t.Token] {
			m.RemoveTask(t.Token)
			removed[t.Token] = true
		}
	}
	return n
}

func (d Differ) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func sizeDirection(prev, next State) string {
	pw, ph := prev.Bounds.Width, prev.Bounds.Height
	nw, nh := next.Bounds.Width, next.Bounds.Height
	if (pw == nw && ph < nh) || (pw < nw && ph == nh) || (pw < nw && ph < nh) {
		return "sizing up"
	}
	return "sizing down"
}
