// Package mipsobs provides the ambient logging and metrics used by the
// gRPC server (cmd/mipsserve); cmd/mipsbench does not use it. Grounded on the teacher's
// pkg/observability: a level/fields Logger with no external logging
// dependency (the teacher never reaches for zap/logrus, so neither do we),
// plus Prometheus metrics via client_golang/promauto.
package mipsobs

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"
)

// Level is the severity of a log entry.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name, defaulting to Info on no match.
func ParseLevel(name string) Level {
	switch name {
	case "DEBUG", "debug":
		return Debug
	case "INFO", "info", "":
		return Info
	case "WARN", "warn", "WARNING", "warning":
		return Warn
	case "ERROR", "error":
		return Error
	default:
		return Info
	}
}

// Logger is a structured logger carrying a minimum level, an output
// sink, and a set of fields attached to every entry it writes.
type Logger struct {
	level      Level
	output     io.Writer
	fields     map[string]interface{}
	timeFormat string
}

// New creates a Logger at level, writing to output (os.Stdout if nil).
func New(level Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{level: level, output: output, fields: map[string]interface{}{}, timeFormat: time.RFC3339}
}

// NewDefault creates an Info-level logger writing to stdout.
func NewDefault() *Logger {
	return New(Info, os.Stdout)
}

// With returns a derived logger carrying fields in addition to l's own.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{level: l.level, output: l.output, fields: merged, timeFormat: l.timeFormat}
}

// WithField is a single-entry convenience wrapper around With.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.With(map[string]interface{}{key: value})
}

func (l *Logger) Debugf(format string, args ...interface{}) { l.write(Debug, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Infof(format string, args ...interface{})  { l.write(Info, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.write(Warn, fmt.Sprintf(format, args...), nil) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.write(Error, fmt.Sprintf(format, args...), nil) }

func (l *Logger) Debug(msg string, fields map[string]interface{}) { l.write(Debug, msg, fields) }
func (l *Logger) Info(msg string, fields map[string]interface{})  { l.write(Info, msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]interface{})  { l.write(Warn, msg, fields) }
func (l *Logger) Error(msg string, fields map[string]interface{}) { l.write(Error, msg, fields) }

func (l *Logger) write(level Level, msg string, extra map[string]interface{}) {
	if level < l.level {
		return
	}

	all := make(map[string]interface{}, len(l.fields)+len(extra))
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range extra {
		all[k] = v
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		all["caller"] = fmt.Sprintf("%s:%d", file, line)
	}

	entry := fmt.Sprintf("[%s] %s: %s", time.Now().Format(l.timeFormat), level, msg)
	for k, v := range all {
		entry += fmt.Sprintf(" %s=%v", k, v)
	}
	entry += "\n"
	l.output.Write([]byte(entry))
}

// Timed logs the start and completion (or failure) of fn, attaching its
// duration and error, if any.
func (l *Logger) Timed(operation string, fn func() error) error {
	start := time.Now()
	l.Info("operation starting", map[string]interface{}{"operation": operation})
	err := fn()
	fields := map[string]interface{}{"operation": operation, "duration": time.Since(start)}
	if err != nil {
		fields["error"] = err.Error()
		l.Error("operation failed", fields)
	} else {
		l.Info("operation completed", fields)
	}
	return err
}

var global = NewDefault()

// SetGlobal replaces the package-level logger.
func SetGlobal(l *Logger) { global = l }

// Global returns the package-level logger.
func Global() *Logger { return global }
