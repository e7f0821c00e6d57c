package executor

import (
	"fmt"
	"sync"
)

// State of one process id in a run.
type State uint8

const (
	Pending State = iota
	Running
	Exited
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Exited:
		return "exited"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// Tracker is the status vector of a run, indexed by process id. It is safe
// for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	states []State
}

func NewTracker(n int) *Tracker {
	return &Tracker{states: make([]State, n)}
}

func (t *Tracker) Len() int { return len(t.states) }

func (t *Tracker) Start(pid int) { t.set(pid, Running) }

// Finish marks pid done. failed is true when the stored result has error
// status, whether the worker reported it or the runner put it in place of a
// missing result.
func (t *Tracker) Finish(pid int, failed bool) {
	if failed {
		t.set(pid, Failed)
		return
	}
	t.set(pid, Exited)
}

func (t *Tracker) set(pid int, s State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pid >= 0 && pid < len(t.states) {
		t.states[pid] = s
	}
}

// State of pid. Unknown ids are Pending.
func (t *Tracker) State(pid int) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	if pid < 0 || pid >= len(t.states) {
		return Pending
	}
	return t.states[pid]
}

// Started reports whether pid ever left Pending.
func (t *Tracker) Started(pid int) bool { return t.State(pid) != Pending }

// Counts returns the number of ids per state.
func (t *Tracker) Counts() map[State]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[State]int, 4)
	for _, s := range t.states {
		out[s]++
	}
	return out
}
