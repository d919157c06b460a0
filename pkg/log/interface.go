// Package log provides the structured logging interface used across the
// toolkit.
//
// The Logger interface is slog-compatible so callers can plug in any backend.
// The default provider is backed by github.com/rs/zerolog:
//
//	logger := log.GetLoggerWithName("RandomForest")
//	logger.Debug("fit finished",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 400,
//	    log.DurationMsKey, 12,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with log/slog.
//
// Fields are key/value pairs. When the first field of Error is an error value
// it is attached as the error of the record.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a Logger that includes fields on every record.
	With(fields ...any) Logger

	// Enabled reports whether a record at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level with slog-compatible values.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates and configures loggers.
type LoggerProvider interface {
	GetLogger() Logger
	GetLoggerWithName(name string) Logger
	SetLevel(level Level)
}
