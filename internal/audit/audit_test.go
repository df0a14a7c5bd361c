package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T, filterSrc string) (*Log, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := Open(path, filterSrc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l, path
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func TestLog_RecordFormat(t *testing.T) {
	l, path := openTemp(t, "")
	l.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)
	}

	l.Record("ERROR", "[CRITICAL] Access Violation! Write to address 0x0000000000005000 (page-aligned)")

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Equal(t,
		"2026-03-14T09:26:53.589Z ERROR [CRITICAL] Access Violation! Write to address 0x0000000000005000 (page-aligned)",
		lines[0])
}

func TestLog_AppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")

	l1, err := Open(path, "")
	require.NoError(t, err)
	l1.Record("INFO", "first")
	require.NoError(t, l1.Close())

	l2, err := Open(path, "")
	require.NoError(t, err)
	l2.Record("INFO", "second")
	require.NoError(t, l2.Close())

	lines := readLines(t, path)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "first")
	assert.Contains(t, lines[1], "second")
}

func TestLog_FilterDropsRejectedRecords(t *testing.T) {
	l, path := openTemp(t, `severity == "ERROR"`)

	l.Record("INFO", "routine startup line")
	l.Record("ERROR", "critical line")

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "critical line")
}

func TestLog_FilterOnLineContent(t *testing.T) {
	l, path := openTemp(t, `line contains "Guard Page"`)

	l.Record("ERROR", "[CRITICAL] Guard Page Violation Detected at 0x0000000000004000!")
	l.Record("ERROR", "[CRITICAL] Access Violation! Read from address 0x0000000000001000 (page-aligned)")

	lines := readLines(t, path)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "Guard Page")
}

func TestOpen_BadFilterFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	_, err := Open(path, `severity ==`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit filter")
}

func TestFilter_EvaluationErrorFailsOpen(t *testing.T) {
	// A filter that errors at evaluation time (mod by zero on an empty
	// line) must keep the record rather than drop forensics.
	l, path := openTemp(t, `1 % len(line) == 0`)

	l.Record("ERROR", "")

	lines := readLines(t, path)
	require.Len(t, lines, 1)
}

func TestLog_RecordAfterClose(t *testing.T) {
	l, path := openTemp(t, "")
	require.NoError(t, l.Close())

	l.Record("ERROR", "late record") // must not panic

	assert.Empty(t, readLines(t, path))
}
