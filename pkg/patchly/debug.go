package patchly

import (
	"os"
)

// DebugEnabled controls whether or not debug-level logging is enabled for
// Patchly. It is set automatically based on the PATCHLY_DEBUG environment
// variable.
var DebugEnabled bool

func init() {
	DebugEnabled = os.Getenv("PATCHLY_DEBUG") == "1"
}
