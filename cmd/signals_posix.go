//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// TerminationSignals are those signals which patchly considers to be
// requesting termination of an in-progress build or apply operation.
var TerminationSignals = []os.Signal{
	syscall.SIGINT,
	syscall.SIGTERM,
}
