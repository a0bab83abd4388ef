// Package must provides helpers for cleanup-path operations whose errors
// cannot be usefully propagated to a caller (typically inside a defer, after
// the operation of interest has already failed or succeeded) but are still
// worth a warning.
package must

import (
	"io"
	"os"

	"github.com/hutomosaktikartiko/patchly/pkg/logging"
)

// Close closes c, logging a warning on failure.
func Close(c io.Closer, logger *logging.Logger) {
	if err := c.Close(); err != nil {
		logger.Warnf("Unable to close: %s", err.Error())
	}
}

// IOCopy copies from src to dst, logging a warning on failure.
func IOCopy(dst io.Writer, src io.Reader, logger *logging.Logger) {
	if _, err := io.Copy(dst, src); err != nil {
		logger.Warnf("Unable to copy from source to destination: %s", err.Error())
	}
}

// OSRemove removes the named file, logging a warning on failure. Used to
// discard a partially written output store after a failed apply operation.
func OSRemove(name string, logger *logging.Logger) {
	if err := os.Remove(name); err != nil {
		logger.Warnf("Unable to remove '%s': %s", name, err.Error())
	}
}

// Flush flushes f, logging a warning on failure.
func Flush(f interface{ Flush() error }, logger *logging.Logger) {
	if err := f.Flush(); err != nil {
		logger.Warnf("Unable to flush: %s", err.Error())
	}
}

// Truncate truncates t to size, logging a warning on failure.
func Truncate(t interface{ Truncate(int64) error }, size int64, logger *logging.Logger) {
	if err := t.Truncate(size); err != nil {
		logger.Warnf("Unable to truncate to size %d: %s", size, err.Error())
	}
}

// Succeed logs a warning if err is non-nil, naming the task that failed.
func Succeed(err error, task string, logger *logging.Logger) {
	if err != nil {
		logger.Warnf("Unable to succeed at %s; %s", task, err.Error())
	}
}
