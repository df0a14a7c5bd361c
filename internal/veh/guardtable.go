package veh

import (
	"sync"
	"sync/atomic"
)

// PageState tracks one guarded page through the decode cycle.
type PageState uint8

const (
	// PageArmed: guard attribute active, awaiting the trapping fault.
	PageArmed PageState = iota

	// PageDecoding: guard cleared, a single instruction is being decoded
	// into the private execution buffer; the single-step trap re-arms.
	PageDecoding
)

func (s PageState) String() string {
	if s == PageDecoding {
		return "decoding"
	}
	return "armed"
}

type guardPage struct {
	state PageState
	hits  atomic.Uint64
}

// GuardPageTable tracks the bytecode pages under integrity protection,
// keyed by page-aligned address. Pages are armed and disarmed from normal
// execution context; Observe is the only operation the exception path
// touches, and it takes a read lock and performs no allocation.
//
// The full cycle - verify the address lies in the protected bytecode
// region, clear the guard attribute on that one page, decode exactly one
// virtual-machine instruction into a private buffer, return
// ContinueExecution, and re-arm on the following single-step trap - is not
// implemented yet. Observe already receives everything that cycle needs
// (the sanitized page address and the event) so wiring it in later does
// not disturb the classifier's dispatch.
type GuardPageTable struct {
	mu    sync.RWMutex
	pages map[uintptr]*guardPage
}

// NewGuardPageTable returns an empty table.
func NewGuardPageTable() *GuardPageTable {
	return &GuardPageTable{pages: make(map[uintptr]*guardPage)}
}

// Arm registers a page as guard-protected. Must not be called from
// exception context.
func (t *GuardPageTable) Arm(page uintptr) {
	page = Sanitize(page)
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.pages[page]; !ok {
		t.pages[page] = &guardPage{state: PageArmed}
	}
}

// Disarm removes a page from integrity protection.
func (t *GuardPageTable) Disarm(page uintptr) {
	page = Sanitize(page)
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pages, page)
}

// State reports the page's cycle state and whether it is tracked at all.
func (t *GuardPageTable) State(page uintptr) (PageState, bool) {
	page = Sanitize(page)
	t.mu.RLock()
	defer t.mu.RUnlock()
	gp, ok := t.pages[page]
	if !ok {
		return PageArmed, false
	}
	return gp.state, true
}

// Hits reports how many guard faults have been observed on a page.
func (t *GuardPageTable) Hits(page uintptr) uint64 {
	page = Sanitize(page)
	t.mu.RLock()
	defer t.mu.RUnlock()
	gp, ok := t.pages[page]
	if !ok {
		return 0
	}
	return gp.hits.Load()
}

// Observe is called from the guard-page branch of the classifier with a
// page-aligned address. It records the hit for tracked pages and answers
// the disposition. Until the decode cycle exists this is always
// ContinueSearch; untracked pages are left entirely alone (lookup only, no
// insertion - the exception path must not allocate).
func (t *GuardPageTable) Observe(page uintptr, _ *Event) Disposition {
	t.mu.RLock()
	gp, ok := t.pages[page]
	t.mu.RUnlock()
	if ok {
		gp.hits.Add(1)
	}
	return ContinueSearch
}
