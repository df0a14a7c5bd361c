//go:build windows

package logging

import (
	"os"

	"golang.org/x/sys/windows"
)

var (
	kernel32                    = windows.NewLazySystemDLL("kernel32.dll")
	procSetConsoleTextAttribute = kernel32.NewProc("SetConsoleTextAttribute")
)

// Console text attributes (wincon.h).
const (
	foregroundGreen     uint16 = 0x0002
	foregroundRed       uint16 = 0x0004
	foregroundIntensity uint16 = 0x0008
)

// console wraps one output stream's console handle. If the stream is not a
// real console (redirected to a file or pipe), attribute calls are skipped
// and output stays plain.
type console struct {
	handle      windows.Handle
	defaultAttr uint16
	ok          bool
}

func newConsole(f *os.File) *console {
	c := &console{}
	if f == nil {
		return c
	}
	h := windows.Handle(f.Fd())
	var info windows.ConsoleScreenBufferInfo
	if err := windows.GetConsoleScreenBufferInfo(h, &info); err != nil {
		return c
	}
	c.handle = h
	c.defaultAttr = info.Attributes
	c.ok = true
	return c
}

func (c *console) colorOK() bool { return c.ok }

func (c *console) begin(sev severity) {
	if !c.ok {
		return
	}
	attr := foregroundGreen | foregroundIntensity
	if sev == severityError {
		attr = foregroundRed | foregroundIntensity
	}
	_, _, _ = procSetConsoleTextAttribute.Call(uintptr(c.handle), uintptr(attr))
}

// end restores the attributes captured at construction so color never
// bleeds into later output.
func (c *console) end() {
	if !c.ok {
		return
	}
	_, _, _ = procSetConsoleTextAttribute.Call(uintptr(c.handle), uintptr(c.defaultAttr))
}
