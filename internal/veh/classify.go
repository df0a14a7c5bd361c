package veh

import "sync/atomic"

// Logger is the console collaborator the classifier reports through. Both
// operations take one preformatted line, are thread-safe, serialize their
// own output, and must not retain the line past the call (the classifier
// hands over zero-copy views of stack buffers).
type Logger interface {
	RecordInfo(line string)
	RecordError(line string)
}

// Result is the outcome of classifying a single exception event. It is
// stack-local to one callback invocation and never escapes.
type Result struct {
	Class         Class
	SanitizedAddr uintptr
	Kind          AccessKind
	Disposition   Disposition
}

// ClassOf maps an exception code onto the closed taxonomy. Kept as a
// freestanding switch so adding a third class (the guard-page decode
// successor) extends exactly one place.
func ClassOf(code uint32) Class {
	switch code {
	case CodeAccessViolation:
		return ClassAccessViolation
	case CodeGuardPageViolation:
		return ClassGuardPageViolation
	default:
		return ClassNone
	}
}

// Classify inspects one event and derives its class, access kind, and
// sanitized faulting address. It performs no I/O and is total: a nil event
// or an unrecognized code yields ClassNone with ContinueSearch.
func Classify(ev *Event) Result {
	res := Result{Disposition: ContinueSearch}
	if ev == nil {
		return res
	}
	res.Class = ClassOf(ev.Code)
	switch res.Class {
	case ClassAccessViolation:
		// The discriminator is only meaningful when the record carries
		// both parameters; a short record reads as Read at address zero.
		res.Kind = AccessRead
		if ev.ParamCount >= 2 {
			res.Kind = accessKindOf(ev.param(0))
		}
		res.SanitizedAddr = Sanitize(ev.param(1))
	case ClassGuardPageViolation:
		res.Kind = AccessUnknown
		res.SanitizedAddr = Sanitize(ev.param(1))
	}
	return res
}

// Counters is a snapshot of one classifier's interception counts.
type Counters struct {
	AccessViolations    uint64
	GuardPageViolations uint64
	Unmatched           uint64
	FormatFallbacks     uint64
}

func (c Counters) add(o Counters) Counters {
	c.AccessViolations += o.AccessViolations
	c.GuardPageViolations += o.GuardPageViolations
	c.Unmatched += o.Unmatched
	c.FormatFallbacks += o.FormatFallbacks
	return c
}

// Classifier is one installed activation: it classifies events, reports the
// matched ones through the logger, and returns the disposition to the
// dispatcher. Safe under arbitrary concurrent and nested invocation - its
// only mutable state is atomic counters and the guard-page table.
type Classifier struct {
	log   Logger
	guard *GuardPageTable

	accessViolations    atomic.Uint64
	guardPageViolations atomic.Uint64
	unmatched           atomic.Uint64
	formatFallbacks     atomic.Uint64
}

// NewClassifier builds a classifier reporting through log.
func NewClassifier(log Logger) *Classifier {
	return &Classifier{
		log:   log,
		guard: NewGuardPageTable(),
	}
}

// GuardTable exposes the classifier's guard-page state table. Arming and
// disarming pages happens outside exception context.
func (c *Classifier) GuardTable() *GuardPageTable {
	return c.guard
}

// Counters snapshots the interception counts.
func (c *Classifier) Counters() Counters {
	return Counters{
		AccessViolations:    c.accessViolations.Load(),
		GuardPageViolations: c.guardPageViolations.Load(),
		Unmatched:           c.unmatched.Load(),
		FormatFallbacks:     c.formatFallbacks.Load(),
	}
}

// Handle is the callback body: classify one event, report it if matched,
// and return the disposition. It never faults on malformed input, never
// allocates on the heap, and never mutates the event or the CPU state.
func (c *Classifier) Handle(ev *Event) Disposition {
	if ev == nil {
		return ContinueSearch
	}

	res := Classify(ev)
	switch res.Class {
	case ClassGuardPageViolation:
		c.guardPageViolations.Add(1)
		var line lineBuffer
		line.writeString("[CRITICAL] Guard Page Violation Detected at 0x")
		line.writeHex64(uint64(res.SanitizedAddr))
		line.writeString("!")
		c.emit(&line)
		// The guard-page table is the seam for the integrity engine's
		// decode-and-reprotect cycle; today it only records the hit and
		// keeps the search going.
		return c.guard.Observe(res.SanitizedAddr, ev)

	case ClassAccessViolation:
		c.accessViolations.Add(1)
		var line lineBuffer
		line.writeString("[CRITICAL] Access Violation! ")
		line.writeString(res.Kind.phrase())
		line.writeString(" address 0x")
		line.writeHex64(uint64(res.SanitizedAddr))
		line.writeString(" (page-aligned)")
		c.emit(&line)
		return res.Disposition

	default:
		// Dominant path by call volume: ordinary runtime exceptions flow
		// through here constantly. No formatting, no logging.
		c.unmatched.Add(1)
		return ContinueSearch
	}
}

func (c *Classifier) emit(line *lineBuffer) {
	if line.overflow {
		c.formatFallbacks.Add(1)
	}
	c.log.RecordError(line.text())
}
