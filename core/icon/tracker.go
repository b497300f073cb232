package icon

import "sync"

// Ticket identifies one generation request of a Tracker.
type Ticket uint64

// Tracker holds the candidate passcode of a form while generations come and go.
// Every request takes a Ticket; only the most recent one may commit, so a slow
// response can never overwrite a newer candidate.
type Tracker struct {
	mu       sync.Mutex
	last     Ticket
	pending  int
	current  Result
	accepted Ticket
}

// Begin starts a generation and marks the Tracker as generating.
func (tr *Tracker) Begin() Ticket {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.last++
	tr.pending++
	return tr.last
}

// Commit ends the generation of t. It returns false, keeping the current
// candidate, when a newer generation has started since t.
func (tr *Tracker) Commit(t Ticket, res Result) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.pending > 0 {
		tr.pending--
	}
	if t != tr.last || t <= tr.accepted {
		return false
	}
	tr.accepted = t
	tr.current = Result{Sequence: res.Sequence.Clone(), Origin: res.Origin}
	return true
}

// Generating reports whether a generation is in flight; regenerate actions
// should be disabled meanwhile.
func (tr *Tracker) Generating() bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.pending > 0
}

// Current returns the accepted candidate.
func (tr *Tracker) Current() Result {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return Result{Sequence: tr.current.Sequence.Clone(), Origin: tr.current.Origin}
}

// Reset forgets the candidate and invalidates in-flight tickets.
func (tr *Tracker) Reset() {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.last++
	tr.accepted = tr.last
	tr.current = Result{}
}
