// Package veh intercepts first-chance exceptions through Windows Vectored
// Exception Handling and classifies the subset that indicates process
// instability or an integrity-engine event.
//
// The package has two halves:
//
//   - Registrar: Install registers the classifier as a first-responder
//     activation and hooks the OS dispatch (AddVectoredExceptionHandler,
//     priority 1 - ahead of most handlers, behind the most privileged
//     system ones). The hook is installed at most once per process; each
//     Install call adds an independent activation, all of which fire on
//     every dispatched exception.
//
//   - Classifier: the callback body. It recognizes exactly two exception
//     codes - access violations and guard-page violations - sanitizes the
//     faulting address to its page boundary, formats a bounded forensic
//     line into a stack buffer, and emits it through the logger
//     collaborator. Every other code takes the fast path: a couple of
//     integer comparisons and an immediate ContinueSearch.
//
// The classifier runs inline on whichever thread faulted, possibly while
// the process heap is the very thing that broke. Everything on the
// dispatch path is therefore allocation-free and reentrant: the activation
// list is an atomic snapshot, counters are atomics, and message formatting
// writes into a fixed-capacity stack buffer that falls back to a canned
// line on overflow instead of failing. The matched paths serialize only at
// the logger's own mutex and the guard table's read lock; the unmatched
// fast path takes no lock at all.
//
// Faulting addresses are never surfaced raw. They are masked to the
// containing 4KB page before any formatting so log output cannot leak
// address-space-layout entropy.
//
// Guard-page violations are the trigger point for the integrity engine's
// future decode-and-reprotect cycle; today they are logged and the search
// chain continues. See GuardPageTable.
package veh
