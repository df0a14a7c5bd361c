// Package logging is the mutex-serialized colored console logger the
// interceptor reports through. Info lines go to stdout in bright green,
// error lines to stderr in bright red; every line is written whole under a
// single lock so concurrent callers never intermix characters within one
// line. Lines handed in may be zero-copy views of caller stack buffers and
// are never retained past the call.
package logging

import (
	"os"
	"strings"
	"sync"
)

type severity uint8

const (
	severityInfo severity = iota
	severityError
)

func (s severity) String() string {
	if s == severityError {
		return "ERROR"
	}
	return "INFO"
}

func (s severity) prefix() string {
	if s == severityError {
		return "[ERROR] "
	}
	return "[INFO] "
}

// LineSink receives every recorded line after it hits the console. Sinks
// are called synchronously under the logger's lock and must not retain the
// line. The audit log implements this.
type LineSink interface {
	Record(severity, line string)
}

// Options configures a Logger. Zero value: stdout/stderr, auto color, no
// sink.
type Options struct {
	// ColorMode is "auto" (color when the stream is a console), "always",
	// or "never". Anything else behaves like "auto".
	ColorMode string

	// Stdout and Stderr override the output streams, mainly for tests.
	Stdout *os.File
	Stderr *os.File

	// Sink, when set, receives a copy of every line.
	Sink LineSink
}

// Logger is the thread-safe console logger. Console handles and default
// text attributes are resolved once at construction, before multi-threaded
// use begins.
type Logger struct {
	mu sync.Mutex

	out    *os.File
	errOut *os.File

	outCon *console
	errCon *console

	colorOut bool
	colorErr bool

	sink LineSink
	buf  []byte
}

// New builds a Logger. Safe for concurrent use once returned.
func New(opts Options) *Logger {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	errOut := opts.Stderr
	if errOut == nil {
		errOut = os.Stderr
	}

	l := &Logger{
		out:    out,
		errOut: errOut,
		outCon: newConsole(out),
		errCon: newConsole(errOut),
		sink:   opts.Sink,
		buf:    make([]byte, 0, 256),
	}
	l.colorOut = resolveColor(opts.ColorMode, l.outCon)
	l.colorErr = resolveColor(opts.ColorMode, l.errCon)
	return l
}

// resolveColor decides whether a stream gets colored output. An explicit
// mode wins; "auto" colors only real consoles.
func resolveColor(mode string, c *console) bool {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "always":
		return true
	case "never":
		return false
	default:
		return c.colorOK()
	}
}

// RecordInfo writes one informational line to stdout.
func (l *Logger) RecordInfo(line string) {
	l.record(severityInfo, l.out, l.outCon, l.colorOut, line)
}

// RecordError writes one error line to stderr.
func (l *Logger) RecordError(line string) {
	l.record(severityError, l.errOut, l.errCon, l.colorErr, line)
}

func (l *Logger) record(sev severity, f *os.File, con *console, color bool, line string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if color {
		con.begin(sev)
	}

	// One write per line keeps the line intact even if something outside
	// this process shares the stream.
	l.buf = l.buf[:0]
	l.buf = append(l.buf, sev.prefix()...)
	l.buf = append(l.buf, line...)
	l.buf = append(l.buf, '\n')
	_, _ = f.Write(l.buf)

	if color {
		con.end()
	}

	if l.sink != nil {
		l.sink.Record(sev.String(), line)
	}
}
