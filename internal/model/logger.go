package model

//
// Logger
//

import "fmt"

// DebugLogger is a logger emitting only debug messages.
type DebugLogger interface {
	// Debug emits a debug message.
	Debug(msg string)

	// Debugf formats and emits a debug message.
	Debugf(format string, v ...interface{})
}

// InfoLogger is a logger emitting debug and info messages.
type InfoLogger interface {
	// An InfoLogger is also a DebugLogger.
	DebugLogger

	// Info emits an informational message.
	Info(msg string)

	// Infof formats and emits an informational message.
	Infof(format string, v ...interface{})
}

// Logger defines the common interface that a logger should have. It is
// out of the box compatible with `log.Log` in `apex/log`.
type Logger interface {
	// A Logger is also an InfoLogger.
	InfoLogger

	// Warn emits a warning message.
	Warn(msg string)

	// Warnf formats and emits a warning message.
	Warnf(format string, v ...interface{})
}

// DiscardLogger is the default logger that discards its input
var DiscardLogger Logger = logDiscarder{}

type logDiscarder struct{}

func (logDiscarder) Debug(msg string)                       {}
func (logDiscarder) Debugf(format string, v ...interface{}) {}
func (logDiscarder) Info(msg string)                        {}
func (logDiscarder) Infof(format string, v ...interface{})  {}
func (logDiscarder) Warn(msg string)                        {}
func (logDiscarder) Warnf(format string, v ...interface{})  {}

// ErrorToStringOrOK emits "ok" on "<nil>"" values for success.
func ErrorToStringOrOK(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

// ValidLoggerOrDefault is a factory that either returns the logger
// provided as argument, if not nil, or DiscardLogger.
func ValidLoggerOrDefault(logger Logger) Logger {
	if logger != nil {
		return logger
	}
	return DiscardLogger
}

// NewPrefixLogger returns a Logger that prepends "<prefix>: " to
// each message before passing it to the given logger.
func NewPrefixLogger(prefix string, logger Logger) Logger {
	return &prefixLogger{prefix: prefix, logger: ValidLoggerOrDefault(logger)}
}

type prefixLogger struct {
	prefix string
	logger Logger
}

func (pl *prefixLogger) Debug(msg string) {
	pl.logger.Debug(pl.prefix + ": " + msg)
}

func (pl *prefixLogger) Debugf(format string, v ...interface{}) {
	pl.Debug(fmt.Sprintf(format, v...))
}

func (pl *prefixLogger) Info(msg string) {
	pl.logger.Info(pl.prefix + ": " + msg)
}

func (pl *prefixLogger) Infof(format string, v ...interface{}) {
	pl.Info(fmt.Sprintf(format, v...))
}

func (pl *prefixLogger) Warn(msg string) {
	pl.logger.Warn(pl.prefix + ": " + msg)
}

func (pl *prefixLogger) Warnf(format string, v ...interface{}) {
	pl.Warn(fmt.Sprintf(format, v...))
}
