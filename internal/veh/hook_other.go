//go:build !windows

package veh

import (
	"fmt"
	"runtime"
)

// addVectoredHandler has no OS facility to hook into outside Windows:
// vectored exception dispatch does not exist here. Install reports the
// refusal and callers decide whether that is fatal. The portable chain and
// classifier still work, which is what the tests drive directly.
func addVectoredHandler() error {
	return fmt.Errorf("vectored exception dispatch is not available on %s", runtime.GOOS)
}
