package veh

import "unsafe"

// lineCapacity bounds a formatted forensic line. The longest message the
// classifier produces is well under this; anything that would not fit is
// replaced by fallbackLine rather than truncated mid-token.
const lineCapacity = 128

// fallbackLine is emitted when a message overflows its buffer. Formatting
// failures are recoverable here, never propagated.
const fallbackLine = "[CRITICAL] Exception detected (details unavailable: format overflow)"

const hexDigits = "0123456789ABCDEF"

// lineBuffer is a fixed-capacity append-only text buffer. It lives on the
// handler's stack: the classifier may run while the process heap is in an
// inconsistent state, so nothing on this path may allocate.
type lineBuffer struct {
	buf      [lineCapacity]byte
	n        int
	overflow bool
}

// writeString appends s, marking overflow instead of growing.
func (b *lineBuffer) writeString(s string) {
	if b.n+len(s) > len(b.buf) {
		b.overflow = true
		return
	}
	b.n += copy(b.buf[b.n:], s)
}

// writeHex64 appends v as exactly 16 uppercase, zero-padded hex digits.
func (b *lineBuffer) writeHex64(v uint64) {
	if b.n+16 > len(b.buf) {
		b.overflow = true
		return
	}
	for i := 15; i >= 0; i-- {
		b.buf[b.n+i] = hexDigits[v&0xF]
		v >>= 4
	}
	b.n += 16
}

// text returns the accumulated line as a string without copying. The result
// aliases the buffer, so it is only valid until the buffer goes out of
// scope; callers hand it to the logger, which writes synchronously and does
// not retain lines. On overflow the fixed fallback is returned instead.
//
// The buffer pointer is hidden from escape analysis before it enters the
// string header: the string flows into the Logger interface call, and
// without the laundering the compiler would move the whole buffer to the
// heap - exactly what the exception path must not do. The no-retention
// contract on Logger is what makes this sound.
func (b *lineBuffer) text() string {
	if b.overflow {
		return fallbackLine
	}
	if b.n == 0 {
		return ""
	}
	return unsafe.String((*byte)(noescape(unsafe.Pointer(&b.buf[0]))), b.n)
}

// noescape hides p from escape analysis. USE CAREFULLY: the caller must
// guarantee the pointee does not outlive its frame. Same trick the runtime
// uses.
func noescape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0) //nolint:govet // intentional escape-analysis laundering
}
