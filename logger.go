package agentos

import "log/slog"

// Logger is the structured logging interface used by every runtime phase.
// It takes variadic key-value pairs, making it compatible with slog, zap's
// sugared logger, logrus, and similar libraries:
//
//	logger.Info("Module initialized", "module", "auth", "version", "1.2.3")
type Logger interface {
	// Info logs normal runtime events: module startup, scan results, etc.
	Info(msg string, args ...any)

	// Error logs failures that should be noted even when they do not abort
	// the boot.
	Error(msg string, args ...any)

	// Warn logs unusual conditions that do not prevent normal operation.
	Warn(msg string, args ...any)

	// Debug logs detailed diagnostics, typically disabled in production.
	Debug(msg string, args ...any)
}

// SlogLogger adapts a *slog.Logger to the Logger interface. It is the
// default logger for runtimes constructed without WithLogger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps an existing slog logger. A nil argument wraps
// slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
