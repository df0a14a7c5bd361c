package veh

import "sync"

// Process-scoped registration state. The OS hook is installed at most once
// per process; activations accumulate in the chain for the remaining
// lifetime of the process. There is no uninstall - continuous monitoring is
// the point.
var (
	processChain chain

	hookOnce sync.Once
	hookErr  error
)

// ensureOSHook installs the vectored handler on first use. Idempotent and
// internally serialized; the recorded error is sticky.
func ensureOSHook() error {
	hookOnce.Do(func() {
		hookErr = addVectoredHandler()
	})
	return hookErr
}

// Install registers a new classifier activation as a first responder for
// every exception the process raises, reporting through log. It returns
// whether registration succeeded; failure (OS refusal, unsupported
// platform) is logged at error level and left to the caller to treat as
// fatal or not.
//
// Install is intended for single-threaded startup, before other threads
// exist. Calling it twice registers two independent activations, both of
// which fire on every subsequent exception; that is a caller contract, not
// a detected fault. Activations cannot be removed.
func Install(log Logger) bool {
	return installOn(&processChain, log, ensureOSHook)
}

// installOn is Install against an explicit chain and hook, the seam the
// tests drive with a simulated dispatcher.
func installOn(ch *chain, log Logger, hook func() error) bool {
	if err := hook(); err != nil {
		log.RecordError("Failed to register Vectored Exception Handler: " + err.Error())
		return false
	}
	ch.add(NewClassifier(log))
	log.RecordInfo("Crash Interceptor initialized successfully")
	return true
}

// ProcessCounters sums the interception counters across every installed
// activation.
func ProcessCounters() Counters {
	return processChain.counters()
}
