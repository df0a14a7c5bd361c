package audit

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// filter decides which records reach the file. The expression is compiled
// once at open time and evaluated against {severity, line} per record.
type filter struct {
	prog *vm.Program
}

func filterEnv() map[string]any {
	return map[string]any{
		"severity": "",
		"line":     "",
	}
}

// compileFilter pre-compiles src. Empty source means keep everything.
func compileFilter(src string) (*filter, error) {
	if src == "" {
		return &filter{}, nil
	}
	prog, err := expr.Compile(src, expr.Env(filterEnv()), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling audit filter %q: %w", src, err)
	}
	return &filter{prog: prog}, nil
}

// keep reports whether a record passes the filter. Evaluation errors keep
// the record: a misbehaving filter must never drop forensic evidence.
func (f *filter) keep(severity, line string) bool {
	if f == nil || f.prog == nil {
		return true
	}
	out, err := expr.Run(f.prog, map[string]any{
		"severity": severity,
		"line":     line,
	})
	if err != nil {
		return true
	}
	b, ok := out.(bool)
	if !ok {
		return true
	}
	return b
}
