//go:build windows

package veh

import (
	"fmt"

	"golang.org/x/sys/windows"
)

var (
	kernel32                        = windows.NewLazySystemDLL("kernel32.dll")
	procAddVectoredExceptionHandler = kernel32.NewProc("AddVectoredExceptionHandler")
)

// callFirst asks for priority-1 placement: ahead of frame-based handlers
// and most vectored ones, behind the handlers the system itself considers
// more privileged.
const callFirst = 1

const exceptionMaximumParameters = 15

// exceptionRecord mirrors EXCEPTION_RECORD. Declared locally so the layout
// the callback dereferences is exactly the one the dispatcher hands out.
type exceptionRecord struct {
	ExceptionCode        uint32
	ExceptionFlags       uint32
	ExceptionRecord      *exceptionRecord
	ExceptionAddress     uintptr
	NumberParameters     uint32
	ExceptionInformation [exceptionMaximumParameters]uintptr
}

// exceptionPointers mirrors EXCEPTION_POINTERS. The context record is a
// full CPU snapshot the classifier treats as opaque.
type exceptionPointers struct {
	ExceptionRecord *exceptionRecord
	ContextRecord   uintptr
}

// addVectoredHandler registers firstChance with the OS dispatcher. The
// callback thunk is created exactly once (ensureOSHook serializes us) and
// stays registered for the life of the process.
func addVectoredHandler() error {
	cb := windows.NewCallback(firstChance)
	handle, _, err := procAddVectoredExceptionHandler.Call(callFirst, cb)
	if handle == 0 {
		return fmt.Errorf("AddVectoredExceptionHandler: %w", err)
	}
	return nil
}

// firstChance is the routine the OS invokes, inline on the faulting
// thread, for every exception in the process. It validates the record,
// builds a stack-local view, and lets the chain decide the disposition.
// Nothing here may fault, allocate, or retain the record.
func firstChance(info *exceptionPointers) uintptr {
	if info == nil || info.ExceptionRecord == nil {
		return dispositionReturn(ContinueSearch)
	}
	rec := info.ExceptionRecord

	n := rec.NumberParameters
	if n > exceptionMaximumParameters {
		n = exceptionMaximumParameters
	}

	ev := Event{
		Code:       rec.ExceptionCode,
		ParamCount: n,
		Params:     rec.ExceptionInformation[:n],
		CPUState:   info.ContextRecord,
	}
	return dispositionReturn(processChain.dispatch(&ev))
}

// dispositionReturn converts a Disposition to the LONG the dispatcher
// expects (EXCEPTION_CONTINUE_SEARCH = 0, EXCEPTION_CONTINUE_EXECUTION =
// -1, returned through a uintptr).
func dispositionReturn(d Disposition) uintptr {
	return uintptr(uint32(int32(d)))
}
