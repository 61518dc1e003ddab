// =============================================================================
// Bulk Importer - Logging
// =============================================================================
//
// A minimal leveled logger shared by the pipeline components. Components
// accept the Logger interface so callers can substitute their own
// implementation (or silence logging entirely in tests).
//
// =============================================================================

package logging

import (
	"fmt"
	"io"
	"os"
)

// Logger is the logging interface the pipeline components depend on.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// stdLogger prints leveled, printf-style messages to a writer.
type stdLogger struct {
	out     io.Writer
	verbose bool
}

// New returns a Logger writing to stderr. Debug messages are emitted only
// when verbose is true.
func New(verbose bool) Logger {
	return &stdLogger{out: os.Stderr, verbose: verbose}
}

// NewWithWriter returns a Logger writing to the given writer.
func NewWithWriter(w io.Writer, verbose bool) Logger {
	return &stdLogger{out: w, verbose: verbose}
}

// Discard returns a Logger that drops everything. Useful in tests.
func Discard() Logger {
	return &stdLogger{out: io.Discard}
}

func (l *stdLogger) Debug(msg string, args ...interface{}) {
	if l.verbose {
		fmt.Fprintf(l.out, "[DEBUG] "+msg+"\n", args...)
	}
}

func (l *stdLogger) Info(msg string, args ...interface{}) {
	fmt.Fprintf(l.out, "[INFO] "+msg+"\n", args...)
}

func (l *stdLogger) Warn(msg string, args ...interface{}) {
	fmt.Fprintf(l.out, "[WARN] "+msg+"\n", args...)
}

func (l *stdLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(l.out, "[ERROR] "+msg+"\n", args...)
}
