package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// -----------------------------------------------------------------------------

// Logger provides named, printf-style logging on top of a zap core.
type Logger struct {
	name  string
	sugar *zap.SugaredLogger
	base  *zap.Logger
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance writing to stdout at the given level
// ("DEBUG", "INFO", "WARNING", "ERROR"; anything else means INFO).
func NewLogger(level string, name string) *Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "time"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.Lock(os.Stdout),
		parseLevel(level),
	)
	return wrap(zap.New(core), name)
}

// -----------------------------------------------------------------------------

// NewNop returns a Logger that discards everything. Used by tests.
func NewNop(name string) *Logger {
	return wrap(zap.NewNop(), name)
}

// -----------------------------------------------------------------------------

// Named derives a child logger sharing the same core.
func (l *Logger) Named(name string) *Logger {
	return wrap(l.base, name)
}

// -----------------------------------------------------------------------------

func wrap(base *zap.Logger, name string) *Logger {
	return &Logger{
		name:  name,
		base:  base,
		sugar: base.Named(name).Sugar(),
	}
}

// -----------------------------------------------------------------------------

func parseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
	_ = l.base.Sync()
	os.Exit(1)
}

// -----------------------------------------------------------------------------

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.base.Sync()
}
