package veh

// Exception codes recognized by the classifier. Values follow the NTSTATUS
// numbering used by the Windows exception dispatcher.
const (
	// CodeAccessViolation is STATUS_ACCESS_VIOLATION: an illegal read,
	// write, or instruction fetch.
	CodeAccessViolation uint32 = 0xC0000005

	// CodeGuardPageViolation is STATUS_GUARD_PAGE_VIOLATION: the first
	// touch of a page protected with the guard attribute.
	CodeGuardPageViolation uint32 = 0x80000001
)

// Event is a read-only view of one dispatched exception. The OS owns the
// underlying record for the duration of the callback; an Event must never
// be retained past the call it was handed to.
type Event struct {
	// Code is the opaque numeric classifier of the fault.
	Code uint32

	// ParamCount is the number of valid entries in Params.
	ParamCount uint32

	// Params carries per-code machine words. For memory faults, Params[0]
	// is the access-kind discriminator and Params[1] the faulting virtual
	// address.
	Params []uintptr

	// CPUState points at the full register snapshot. The classifier never
	// interprets or mutates it.
	CPUState uintptr
}

// param returns Params[i], or zero when the record does not carry that many
// parameters. It never reads out of bounds.
func (e *Event) param(i int) uintptr {
	if i < 0 || i >= int(e.ParamCount) || i >= len(e.Params) {
		return 0
	}
	return e.Params[i]
}

// Disposition is the sentinel returned to the OS dispatcher.
type Disposition int32

const (
	// ContinueSearch hands the exception to the next handler in the chain.
	ContinueSearch Disposition = 0

	// ContinueExecution resumes the faulting instruction. Reserved for the
	// guard-page decode cycle; never returned by the current classifier.
	ContinueExecution Disposition = -1
)

// Class is the closed taxonomy of exception codes the interceptor acts on.
type Class uint8

const (
	ClassNone Class = iota
	ClassAccessViolation
	ClassGuardPageViolation
)

// String names the class for diagnostics outside the dispatch path.
func (c Class) String() string {
	switch c {
	case ClassAccessViolation:
		return "access-violation"
	case ClassGuardPageViolation:
		return "guard-page-violation"
	default:
		return "none"
	}
}

// AccessKind is the decoded access discriminator of an access violation.
type AccessKind uint8

const (
	AccessUnknown AccessKind = iota
	AccessRead
	AccessWrite
	AccessDEP
)

// accessKindOf decodes ExceptionInformation[0] of an access violation.
func accessKindOf(p uintptr) AccessKind {
	switch p {
	case 0:
		return AccessRead
	case 1:
		return AccessWrite
	case 8:
		return AccessDEP
	default:
		return AccessUnknown
	}
}

// phrase is the log wording for an access kind.
func (k AccessKind) phrase() string {
	switch k {
	case AccessRead:
		return "Read from"
	case AccessWrite:
		return "Write to"
	case AccessDEP:
		return "DEP violation at"
	default:
		return "Access to"
	}
}

// pageSize is the sanitization granularity. The confidentiality contract is
// defined as "low 12 bits cleared", independent of the machine page size.
const pageSize = 1 << 12

// Sanitize masks a virtual address to its containing page boundary. This is
// applied before any address becomes observable, so log output cannot be
// used to recover address-space-layout entropy. Idempotent.
func Sanitize(addr uintptr) uintptr {
	return addr &^ (pageSize - 1)
}
