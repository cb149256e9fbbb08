package engine

import "github.com/roach88/provex/internal/ir"

// worklist is the FIFO queue of facts awaiting exploration.
//
// It is unbounded: one subproof may queue any number of body atoms. It is
// private to a single run and needs no locking.
type worklist struct {
	facts []ir.Fact
}

func newWorklist(capacity int) *worklist {
	if capacity < 64 {
		capacity = 64
	}
	return &worklist{facts: make([]ir.Fact, 0, capacity)}
}

// Push appends a fact to the back of the queue.
func (w *worklist) Push(f ir.Fact) {
	w.facts = append(w.facts, f)
}

// Pop removes and returns the front fact.
func (w *worklist) Pop() (ir.Fact, bool) {
	if len(w.facts) == 0 {
		return ir.Fact{}, false
	}
	f := w.facts[0]

	// Release the popped tuple so the backing array does not pin it.
	w.facts[0] = ir.Fact{}
	if len(w.facts) == 1 {
		w.facts = w.facts[:0]
	} else {
		w.facts = w.facts[1:]
	}
	return f, true
}

// Len returns the number of queued facts.
func (w *worklist) Len() int {
	return len(w.facts)
}
