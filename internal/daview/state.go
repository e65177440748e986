package daview

import (
	"fmt"
	"sort"

	"github.com/1broseidon/dashell/internal/platform"
	"github.com/1broseidon/dashell/internal/wm"
)

// State is the visibility and bounds of a view.
type State struct {
	Visible bool          `json:"visible"`
	Bounds  platform.Rect `json:"bounds"`
}

func (s State) String() string {
	return fmt.Sprintf("{visible=%v bounds=%dx%d+%d+%d}", s.Visible, s.Bounds.Width, s.Bounds.Height, s.Bounds.X, s.Bounds.Y)
}

// Transaction is a requested target state per view id. Focus, when set,
// names the view whose display area is raised to the top.
type Transaction struct {
	States map[ID]State
	Focus  ID
	// Instant applies the change without an animation.
	Instant bool
	// AfterPending diffs against the state each view reaches once the
	// queued and animating transitions complete, instead of the committed
	// state.
	AfterPending bool
}

// StateLookup resolves the committed state of a view.
type StateLookup interface {
	Get(v *View) (State, bool)
}

// Store holds the committed state of every tracked view. Only the
// coordinator mutates it, on its serialization context.
type Store struct {
	states map[*View]State
}

func NewStore() *Store {
	return &Store{states: make(map[*View]State)}
}

// Track starts tracking v with the zero state (hidden, empty bounds).
func (s *Store) Track(v *View) {
	s.states[v] = State{}
}

func (s *Store) Forget(v *View) {
	delete(s.states, v)
}

func (s *Store) Get(v *View) (State, bool) {
	st, ok := s.states[v]
	return st, ok
}

// Commit records states for views that are still tracked. Views removed
// while a transition was in flight are not resurrected.
func (s *Store) Commit(states map[*View]State) {
	for v, st := range states {
		if _, ok := s.states[v]; ok {
			s.states[v] = st
		}
	}
}

func (s *Store) Len() int { return len(s.states) }

// Registry indexes tracked views by id.
type Registry struct {
	views map[ID]*View
}

func NewRegistry() *Registry {
	return &Registry{views: make(map[ID]*View)}
}

func (r *Registry) Add(v *View) {
	r.views[v.ID()] = v
}

// Remove drops v. A different view registered under the same id is kept.
func (r *Registry) Remove(v *View) bool {
	if cur, ok := r.views[v.ID()]; ok && cur == v {
		delete(r.views, v.ID())
		return true
	}
	return false
}

func (r *Registry) Get(id ID) (*View, bool) {
	v, ok := r.views[id]
	return v, ok
}

func (r *Registry) Len() int { return len(r.views) }

// All returns the tracked views ordered by id.
func (r *Registry) All() []*View {
	out := make([]*View, 0, len(r.views))
	for _, v := range r.views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ByToken returns the view whose display area has the given container token.
func (r *Registry) ByToken(tok wm.Token) *View {
	if tok == "" {
		return nil
	}
	for _, v := range r.All() {
		if v.Token() == tok {
			return v
		}
	}
	return nil
}

// ByTask returns the view whose launch display area hosts the task.
func (r *Registry) ByTask(t wm.TaskInfo) *View {
	for _, v := range r.All() {
		if v.owns(t) {
			return v
		}
	}
	return nil
}

func sortedViews(states map[*View]State) []*View {
	out := make([]*View, 0, len(states))
	for v := range states {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
