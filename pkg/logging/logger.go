package logging

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/fatih/color"
)

// writer is an io.Writer that splits its input stream into lines and writes
// those lines to an underlying logger.
type writer struct {
	// callback is the logging callback.
	callback func(string)
	// buffer is any incomplete line fragment left over from a previous write.
	buffer []byte
}

// trimCarriageReturn trims any single trailing carriage return from the end of
// a byte slice.
func trimCarriageReturn(buffer []byte) []byte {
	if len(buffer) > 0 && buffer[len(buffer)-1] == '\r' {
		return buffer[:len(buffer)-1]
	}
	return buffer
}

// Write implements io.Writer.Write.
func (w *writer) Write(buffer []byte) (int, error) {
	w.buffer = append(w.buffer, buffer...)

	var processed int
	remaining := w.buffer
	for {
		index := bytes.IndexByte(remaining, '\n')
		if index == -1 {
			break
		}
		w.callback(string(trimCarriageReturn(remaining[:index])))
		processed += index + 1
		remaining = remaining[index+1:]
	}

	if processed > 0 {
		leftover := len(w.buffer) - processed
		if leftover > 0 {
			copy(w.buffer[:leftover], w.buffer[processed:])
		}
		w.buffer = w.buffer[:leftover]
	}

	return len(buffer), nil
}

// Logger is the main logger type. It has the novel property that it still
// functions if nil, but it doesn't log anything. Each logger has a fixed
// level: calls for a level above the logger's own are silently discarded.
// Safe for concurrent usage.
type Logger struct {
	// level is the maximum level this logger will emit.
	level Level
	// prefix is any prefix specified for the logger.
	prefix string
}

// RootLogger is a package-level root logger fixed at LevelInfo. NewRootLogger
// constructs a separate root logger at another level (cmd/patchly builds its
// logger that way from the --log-level flag); RootLogger itself is unchanged.
var RootLogger = &Logger{level: LevelInfo}

// NewRootLogger constructs a root logger at the specified level.
func NewRootLogger(level Level) *Logger {
	return &Logger{level: level}
}

// Sublogger creates a new sublogger with the specified name, inheriting the
// parent's level.
func (l *Logger) Sublogger(name string) *Logger {
	if l == nil {
		return nil
	}
	prefix := name
	if l.prefix != "" {
		prefix = l.prefix + "." + name
	}
	return &Logger{level: l.level, prefix: prefix}
}

// output is the internal logging method.
func (l *Logger) output(calldepth int, line string) {
	if l.prefix != "" {
		line = fmt.Sprintf("[%s] %s", l.prefix, line)
	}
	log.Output(calldepth, line)
}

func (l *Logger) enabled(level Level) bool {
	return l != nil && l.level >= level
}

// Print logs information with semantics equivalent to fmt.Print, gated at
// LevelInfo.
func (l *Logger) Print(v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.output(3, fmt.Sprint(v...))
	}
}

// Printf logs information with semantics equivalent to fmt.Printf, gated at
// LevelInfo.
func (l *Logger) Printf(format string, v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Println logs information with semantics equivalent to fmt.Println, gated at
// LevelInfo.
func (l *Logger) Println(v ...interface{}) {
	if l.enabled(LevelInfo) {
		l.output(3, fmt.Sprintln(v...))
	}
}

// Writer returns an io.Writer that writes lines using Println.
func (l *Logger) Writer() io.Writer {
	if !l.enabled(LevelInfo) {
		return io.Discard
	}
	return &writer{callback: func(s string) { l.Println(s) }}
}

// Debug logs information gated at LevelDebug.
func (l *Logger) Debug(v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.output(3, fmt.Sprint(v...))
	}
}

// Debugf logs information gated at LevelDebug.
func (l *Logger) Debugf(format string, v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Debugln logs information gated at LevelDebug.
func (l *Logger) Debugln(v ...interface{}) {
	if l.enabled(LevelDebug) {
		l.output(3, fmt.Sprintln(v...))
	}
}

// DebugWriter returns an io.Writer that writes lines using Debugln.
func (l *Logger) DebugWriter() io.Writer {
	if !l.enabled(LevelDebug) {
		return io.Discard
	}
	return &writer{callback: func(s string) { l.Debugln(s) }}
}

// Tracef logs formatted information gated at LevelTrace.
func (l *Logger) Tracef(format string, v ...interface{}) {
	if l.enabled(LevelTrace) {
		l.output(3, fmt.Sprintf(format, v...))
	}
}

// Warn logs a plain warning message, gated at LevelWarn.
func (l *Logger) Warn(message string) {
	if l.enabled(LevelWarn) {
		l.output(3, color.YellowString("Warning: %s", message))
	}
}

// Warnf logs a formatted warning message, gated at LevelWarn.
func (l *Logger) Warnf(format string, v ...interface{}) {
	if l.enabled(LevelWarn) {
		l.output(3, color.YellowString("Warning: %s", fmt.Sprintf(format, v...)))
	}
}

// Error logs error information with an error prefix and red color, gated at
// LevelError.
func (l *Logger) Error(err error) {
	if l.enabled(LevelError) {
		l.output(3, color.RedString("Error: %v", err))
	}
}

// Errorf logs a formatted error message, gated at LevelError.
func (l *Logger) Errorf(format string, v ...interface{}) {
	if l.enabled(LevelError) {
		l.output(3, color.RedString("Error: %s", fmt.Sprintf(format, v...)))
	}
}
