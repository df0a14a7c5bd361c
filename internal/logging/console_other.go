//go:build !windows

package logging

import "os"

// ANSI SGR sequences: bright green, bright red, reset.
const (
	ansiInfo  = "\x1b[92m"
	ansiError = "\x1b[91m"
	ansiReset = "\x1b[0m"
)

// console colors via ANSI escape sequences. Auto mode only colors when the
// stream is a character device.
type console struct {
	file *os.File
	tty  bool
}

func newConsole(f *os.File) *console {
	c := &console{file: f}
	if f == nil {
		return c
	}
	if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		c.tty = true
	}
	return c
}

func (c *console) colorOK() bool { return c.tty }

func (c *console) begin(sev severity) {
	if c.file == nil {
		return
	}
	seq := ansiInfo
	if sev == severityError {
		seq = ansiError
	}
	_, _ = c.file.WriteString(seq)
}

func (c *console) end() {
	if c.file == nil {
		return
	}
	_, _ = c.file.WriteString(ansiReset)
}
