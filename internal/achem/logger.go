package achem

import (
	"strings"

	"github.com/tliron/commonlog"
)

// Logger interface for logging operations, injectable into the achem package.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// NoOpLogger discards everything. Environments start with one.
type NoOpLogger struct{}

func (n *NoOpLogger) Debugf(format string, v ...any) {}
func (n *NoOpLogger) Infof(format string, v ...any)  {}
func (n *NoOpLogger) Warnf(format string, v ...any)  {}
func (n *NoOpLogger) Errorf(format string, v ...any) {}

// NewNoOpLogger creates a no-op logger
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

// LogVerbosity maps a level name (debug, info, warn, error) to commonlog's
// verbosity scale. Unknown names fall back to info.
func LogVerbosity(level string) int {
	switch strings.ToLower(level) {
	case "debug":
		return 2
	case "info":
		return 1
	case "warn", "warning":
		return -1
	case "error":
		return -2
	default:
		return 1
	}
}

// CommonLogger routes log lines to a named commonlog logger. The backend
// must be configured with commonlog.Configure and imported by the binary.
type CommonLogger struct {
	commonlog.Logger
}

// NewCommonLogger returns a Logger writing to the commonlog logger name.
func NewCommonLogger(name string) *CommonLogger {
	return &CommonLogger{Logger: commonlog.GetLogger(name)}
}

func (l *CommonLogger) Warnf(format string, v ...any) {
	l.Warningf(format, v...)
}
