// Package audit appends sanitized forensic lines to an append-only local
// file, one timestamped record per line. It sits behind the console logger
// as an optional sink; the interception core itself owns no persisted
// state.
package audit

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// Log is an append-only forensic record file. Safe for concurrent use;
// records are written whole under a single lock.
type Log struct {
	mu     sync.Mutex
	f      *os.File
	filter *filter
	now    func() time.Time
}

// Open opens (creating if needed) the audit file at path. filterSrc is an
// optional boolean expression over {severity, line}; records it rejects
// are skipped. An expression that does not compile fails Open.
func Open(path, filterSrc string) (*Log, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}

	flt, err := compileFilter(filterSrc)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Log{f: f, filter: flt, now: time.Now}, nil
}

// Record appends one line with its severity and a UTC timestamp. Filtered
// records are dropped silently; write errors are swallowed - there is
// nowhere sensible to report a failure to record a failure.
func (l *Log) Record(severity, line string) {
	if !l.filter.keep(severity, line) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return
	}
	ts := l.now().UTC().Format(timeLayout)
	_, _ = fmt.Fprintf(l.f, "%s %s %s\n", ts, severity, line)
}

// Close flushes and closes the file. Records arriving after Close are
// dropped.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.f == nil {
		return nil
	}
	err := l.f.Close()
	l.f = nil
	return err
}
