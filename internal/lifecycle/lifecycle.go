// Package lifecycle holds process-wide state shared by main and the health handler.
package lifecycle

import "sync/atomic"

var shuttingDown atomic.Bool

// SetShuttingDown sets the drain flag. main sets it on SIGINT/SIGTERM before stopping the
// listener so /health reports shutting-down while requests drain.
func SetShuttingDown(v bool) {
	shuttingDown.Store(v)
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}
