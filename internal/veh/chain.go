package veh

import (
	"sync"
	"sync/atomic"
)

// chain is the process-scoped list of installed activations. Registration
// is copy-on-write under a mutex (startup-time, rare); dispatch reads one
// atomic snapshot and walks it, so faulting threads never block on or
// allocate for the list itself, and a nested fault inside the handler sees
// a consistent snapshot.
type chain struct {
	mu          sync.Mutex
	activations atomic.Pointer[[]*Classifier]
}

// add appends an activation. Every activation fires on every dispatched
// exception, in installation order.
func (ch *chain) add(c *Classifier) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	var cur []*Classifier
	if p := ch.activations.Load(); p != nil {
		cur = *p
	}
	next := make([]*Classifier, len(cur)+1)
	copy(next, cur)
	next[len(cur)] = c
	ch.activations.Store(&next)
}

// dispatch hands one event to every activation in order. The first
// activation that asks to resume execution wins; otherwise the search
// continues to the rest of the OS handler chain.
func (ch *chain) dispatch(ev *Event) Disposition {
	p := ch.activations.Load()
	if p == nil {
		return ContinueSearch
	}
	for _, c := range *p {
		if c.Handle(ev) == ContinueExecution {
			return ContinueExecution
		}
	}
	return ContinueSearch
}

// len reports the number of installed activations.
func (ch *chain) len() int {
	p := ch.activations.Load()
	if p == nil {
		return 0
	}
	return len(*p)
}

// counters sums the interception counters of all activations.
func (ch *chain) counters() Counters {
	var sum Counters
	p := ch.activations.Load()
	if p == nil {
		return sum
	}
	for _, c := range *p {
		sum = sum.add(c.Counters())
	}
	return sum
}
