package daview

import "github.com/1broseidon/dashell/internal/wm"

// pendingTransition is one unit of queued work. claim is zero until the host
// assigned a transition id.
type pendingTransition struct {
	kind      wm.TransitionType
	mutation  *wm.Mutation
	requested map[*View]State
	instant   bool
	claim     wm.TransitionID
}

// transitionQueue is FIFO. At most one entry is claimed at a time.
type transitionQueue struct {
	items []*pendingTransition
}

func (q *transitionQueue) push(p *pendingTransition) {
	q.items = append(q.items, p)
}

func (q *transitionQueue) head() *pendingTransition {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

func (q *transitionQueue) find(id wm.TransitionID) *pendingTransition {
	if id == 0 {
		return nil
	}
	for _, p := range q.items {
		if p.claim == id {
			return p
		}
	}
	return nil
}

func (q *transitionQueue) remove(p *pendingTransition) bool {
	for i, cur := range q.items {
		if cur == p {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return true
		}
	}
	return false
}

func (q *transitionQueue) claimed() int {
	n := 0
	for _, p := range q.items {
		if p.claim != 0 {
			n++
		}
	}
	return n
}

func (q *transitionQueue) len() int { return len(q.items) }

// requestsVisible reports whether any queued transition will make v visible.
func (q *transitionQueue) requestsVisible(v *View) bool {
	for _, p := range q.items {
		if st, ok := p.requested[v]; ok && st.Visible {
			return true
		}
	}
	return false
}

// latest returns the state v is requested to reach by the newest queued
// transition that includes it.
func (q *transitionQueue) latest(v *View) (State, bool) {
	for i := len(q.items) - 1; i >= 0; i-- {
		if st, ok := q.items[i].requested[v]; ok {
			return st, true
		}
	}
	return State{}, false
}
