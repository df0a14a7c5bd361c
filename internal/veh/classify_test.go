package veh

import (
	"strings"
	"sync"
	"testing"
)

// spyLogger captures emitted lines for assertions. Thread-safe, like the
// real collaborator.
type spyLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (s *spyLogger) RecordInfo(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Copy: the classifier hands over views of stack buffers that are only
	// valid for the duration of the call.
	s.infos = append(s.infos, strings.Clone(line))
}

func (s *spyLogger) RecordError(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, strings.Clone(line))
}

func (s *spyLogger) errorLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.errors...)
}

func (s *spyLogger) infoLines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.infos...)
}

func accessViolation(kind uintptr, addr uintptr) *Event {
	return &Event{
		Code:       CodeAccessViolation,
		ParamCount: 2,
		Params:     []uintptr{kind, addr},
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		name string
		code uint32
		want Class
	}{
		{"access violation", CodeAccessViolation, ClassAccessViolation},
		{"guard page violation", CodeGuardPageViolation, ClassGuardPageViolation},
		{"breakpoint", 0x80000003, ClassNone},
		{"integer divide by zero", 0xC0000094, ClassNone},
		{"clr exception", 0xE0434352, ClassNone},
		{"zero", 0, ClassNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassOf(tt.code); got != tt.want {
				t.Errorf("ClassOf(%#x) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	cases := []struct {
		in, want uintptr
	}{
		{0, 0},
		{0xFFF, 0},
		{0x1000, 0x1000},
		{0x00007FF6A2C01234, 0x00007FF6A2C01000},
		{^uintptr(0), ^uintptr(0) &^ 0xFFF},
	}
	for _, c := range cases {
		if got := Sanitize(c.in); got != c.want {
			t.Errorf("Sanitize(%#x) = %#x, want %#x", c.in, got, c.want)
		}
		// Idempotence: sanitizing a sanitized address is a no-op.
		if got := Sanitize(Sanitize(c.in)); got != c.want {
			t.Errorf("Sanitize(Sanitize(%#x)) = %#x, want %#x", c.in, got, c.want)
		}
	}
}

func TestClassify_NilEvent(t *testing.T) {
	res := Classify(nil)
	if res.Class != ClassNone {
		t.Errorf("Class = %v, want ClassNone", res.Class)
	}
	if res.Disposition != ContinueSearch {
		t.Errorf("Disposition = %v, want ContinueSearch", res.Disposition)
	}
}

func TestClassify_SanitizesAddress(t *testing.T) {
	res := Classify(accessViolation(0, 0x00007FF6A2C01234))
	if res.SanitizedAddr != 0x00007FF6A2C01000 {
		t.Errorf("SanitizedAddr = %#x, want 0x00007FF6A2C01000", res.SanitizedAddr)
	}
	if res.SanitizedAddr&0xFFF != 0 {
		t.Errorf("SanitizedAddr %#x is not page-aligned", res.SanitizedAddr)
	}
}

func TestClassify_AccessKinds(t *testing.T) {
	tests := []struct {
		param uintptr
		want  AccessKind
	}{
		{0, AccessRead},
		{1, AccessWrite},
		{8, AccessDEP},
		{2, AccessUnknown},
		{42, AccessUnknown},
	}
	for _, tt := range tests {
		res := Classify(accessViolation(tt.param, 0x1000))
		if res.Kind != tt.want {
			t.Errorf("Classify(param[0]=%d).Kind = %v, want %v", tt.param, res.Kind, tt.want)
		}
	}
}

func TestClassify_ShortParameterList(t *testing.T) {
	// ParamCount below 2 means the faulting address is unknown; it must be
	// treated as zero without ever reading past the parameter list.
	ev := &Event{Code: CodeGuardPageViolation, ParamCount: 1, Params: []uintptr{7}}
	res := Classify(ev)
	if res.SanitizedAddr != 0 {
		t.Errorf("SanitizedAddr = %#x, want 0", res.SanitizedAddr)
	}

	// An access violation with a single parameter has no access-kind
	// discriminator; the lone word is not one, even when it looks like
	// one.
	ev = &Event{Code: CodeAccessViolation, ParamCount: 1, Params: []uintptr{1}}
	res = Classify(ev)
	if res.Kind != AccessRead {
		t.Errorf("Kind = %v, want AccessRead", res.Kind)
	}
	if res.SanitizedAddr != 0 {
		t.Errorf("SanitizedAddr = %#x, want 0", res.SanitizedAddr)
	}

	// A record whose declared count exceeds the actual slice must not
	// fault either.
	ev = &Event{Code: CodeAccessViolation, ParamCount: 4, Params: []uintptr{1}}
	res = Classify(ev)
	if res.Kind != AccessWrite {
		t.Errorf("Kind = %v, want AccessWrite", res.Kind)
	}
	if res.SanitizedAddr != 0 {
		t.Errorf("SanitizedAddr = %#x, want 0", res.SanitizedAddr)
	}
}

func TestHandle_AccessViolationMessage(t *testing.T) {
	log := &spyLogger{}
	c := NewClassifier(log)

	d := c.Handle(accessViolation(0, 0x00007FF6A2C01234))
	if d != ContinueSearch {
		t.Fatalf("Handle() = %v, want ContinueSearch", d)
	}

	lines := log.errorLines()
	if len(lines) != 1 {
		t.Fatalf("got %d error lines, want 1", len(lines))
	}
	want := "[CRITICAL] Access Violation! Read from address 0x00007FF6A2C01000 (page-aligned)"
	if lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
	if strings.Contains(lines[0], "1234") {
		t.Errorf("raw address leaked into log line: %q", lines[0])
	}
}

func TestHandle_AccessKindPhrases(t *testing.T) {
	tests := []struct {
		param  uintptr
		phrase string
	}{
		{0, "Read from"},
		{1, "Write to"},
		{8, "DEP violation at"},
		{3, "Access to"},
	}
	for _, tt := range tests {
		log := &spyLogger{}
		c := NewClassifier(log)
		c.Handle(accessViolation(tt.param, 0x2000))

		lines := log.errorLines()
		if len(lines) != 1 {
			t.Fatalf("param %d: got %d lines, want 1", tt.param, len(lines))
		}
		if !strings.Contains(lines[0], tt.phrase) {
			t.Errorf("param %d: line %q does not contain %q", tt.param, lines[0], tt.phrase)
		}
	}
}

func TestHandle_GuardPageMessage(t *testing.T) {
	log := &spyLogger{}
	c := NewClassifier(log)

	ev := &Event{
		Code:       CodeGuardPageViolation,
		ParamCount: 2,
		Params:     []uintptr{0, 0x00007FF6DEADBABE},
	}
	d := c.Handle(ev)
	if d != ContinueSearch {
		t.Fatalf("Handle() = %v, want ContinueSearch", d)
	}

	lines := log.errorLines()
	if len(lines) != 1 {
		t.Fatalf("got %d error lines, want 1", len(lines))
	}
	want := "[CRITICAL] Guard Page Violation Detected at 0x00007FF6DEADB000!"
	if lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
}

func TestHandle_GuardPageShortRecord(t *testing.T) {
	log := &spyLogger{}
	c := NewClassifier(log)

	c.Handle(&Event{Code: CodeGuardPageViolation, ParamCount: 0})

	lines := log.errorLines()
	if len(lines) != 1 {
		t.Fatalf("got %d error lines, want 1", len(lines))
	}
	want := "[CRITICAL] Guard Page Violation Detected at 0x0000000000000000!"
	if lines[0] != want {
		t.Errorf("line = %q, want %q", lines[0], want)
	}
}

func TestHandle_UnmatchedCodesAreSilent(t *testing.T) {
	log := &spyLogger{}
	c := NewClassifier(log)

	codes := []uint32{0, 1, 0x80000003, 0x80000004, 0xC0000094, 0xC00000FD, 0xE0434352}
	for _, code := range codes {
		d := c.Handle(&Event{Code: code, ParamCount: 2, Params: []uintptr{1, 0xDEAD}})
		if d != ContinueSearch {
			t.Errorf("Handle(code=%#x) = %v, want ContinueSearch", code, d)
		}
	}

	if n := len(log.errorLines()); n != 0 {
		t.Errorf("unmatched codes emitted %d error lines, want 0", n)
	}
	if n := len(log.infoLines()); n != 0 {
		t.Errorf("unmatched codes emitted %d info lines, want 0", n)
	}
	if got := c.Counters().Unmatched; got != uint64(len(codes)) {
		t.Errorf("Unmatched counter = %d, want %d", got, len(codes))
	}
}

func TestHandle_NilEvent(t *testing.T) {
	log := &spyLogger{}
	c := NewClassifier(log)
	if d := c.Handle(nil); d != ContinueSearch {
		t.Errorf("Handle(nil) = %v, want ContinueSearch", d)
	}
	if n := len(log.errorLines()); n != 0 {
		t.Errorf("nil event emitted %d lines, want 0", n)
	}
}

// nopLogger discards lines without allocating, so allocation measurements
// see only the handler's own work.
type nopLogger struct{}

func (nopLogger) RecordInfo(string)  {}
func (nopLogger) RecordError(string) {}

func TestHandle_DoesNotAllocate(t *testing.T) {
	// The handler may run while the process heap is in an inconsistent
	// state; every path through it must stay off the heap.
	c := NewClassifier(nopLogger{})
	c.GuardTable().Arm(0x4000)

	av := accessViolation(1, 0x5000)
	gp := &Event{Code: CodeGuardPageViolation, ParamCount: 2, Params: []uintptr{0, 0x4000}}
	other := &Event{Code: 0x80000003}

	if n := testing.AllocsPerRun(100, func() { c.Handle(av) }); n != 0 {
		t.Errorf("access-violation path allocates %v per call, want 0", n)
	}
	if n := testing.AllocsPerRun(100, func() { c.Handle(gp) }); n != 0 {
		t.Errorf("guard-page path allocates %v per call, want 0", n)
	}
	if n := testing.AllocsPerRun(100, func() { c.Handle(other) }); n != 0 {
		t.Errorf("unmatched fast path allocates %v per call, want 0", n)
	}
}

func TestHandle_Counters(t *testing.T) {
	log := &spyLogger{}
	c := NewClassifier(log)

	c.Handle(accessViolation(1, 0x1000))
	c.Handle(accessViolation(0, 0x2000))
	c.Handle(&Event{Code: CodeGuardPageViolation, ParamCount: 2, Params: []uintptr{0, 0x3000}})
	c.Handle(&Event{Code: 0x80000003})

	got := c.Counters()
	if got.AccessViolations != 2 {
		t.Errorf("AccessViolations = %d, want 2", got.AccessViolations)
	}
	if got.GuardPageViolations != 1 {
		t.Errorf("GuardPageViolations = %d, want 1", got.GuardPageViolations)
	}
	if got.Unmatched != 1 {
		t.Errorf("Unmatched = %d, want 1", got.Unmatched)
	}
}
