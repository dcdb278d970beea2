package logger

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
)

type contextKey struct{}

var defaultLogger = NewLogger()

// WithLogger attaches l to ctx, retrievable by FromContext.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the Logger attached by WithLogger, or a default
// logger writing to stdout if none was attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok {
		return l
	}
	return defaultLogger
}

// callerFromHere captures the program counter of its own caller's caller —
// i.e. the site that called one of this file's package-level functions.
func callerFromHere() uintptr {
	pcs := make([]uintptr, 1)
	runtime.Callers(3, pcs)
	return pcs[0]
}

func emit(ctx context.Context, pc uintptr, level slog.Level, msg string, args ...any) {
	l := FromContext(ctx)
	if lg, ok := l.(*logger); ok {
		lg.write(pc, level, msg, args...)
		return
	}
	switch level {
	case slog.LevelDebug:
		l.Debug(msg, args...)
	case slog.LevelWarn:
		l.Warn(msg, args...)
	case slog.LevelError:
		l.Error(msg, args...)
	default:
		l.Info(msg, args...)
	}
}

// Info logs at info level using the Logger attached to ctx.
func Info(ctx context.Context, msg string, args ...any) {
	emit(ctx, callerFromHere(), slog.LevelInfo, msg, args...)
}

// Debug logs at debug level using the Logger attached to ctx.
func Debug(ctx context.Context, msg string, args ...any) {
	emit(ctx, callerFromHere(), slog.LevelDebug, msg, args...)
}

// Warn logs at warn level using the Logger attached to ctx.
func Warn(ctx context.Context, msg string, args ...any) {
	emit(ctx, callerFromHere(), slog.LevelWarn, msg, args...)
}

// Error logs at error level using the Logger attached to ctx.
func Error(ctx context.Context, msg string, args ...any) {
	emit(ctx, callerFromHere(), slog.LevelError, msg, args...)
}

// Infof formats and logs at info level using the Logger attached to ctx.
func Infof(ctx context.Context, format string, args ...any) {
	emit(ctx, callerFromHere(), slog.LevelInfo, fmt.Sprintf(format, args...))
}

// Debugf formats and logs at debug level using the Logger attached to ctx.
func Debugf(ctx context.Context, format string, args ...any) {
	emit(ctx, callerFromHere(), slog.LevelDebug, fmt.Sprintf(format, args...))
}

// Warnf formats and logs at warn level using the Logger attached to ctx.
func Warnf(ctx context.Context, format string, args ...any) {
	emit(ctx, callerFromHere(), slog.LevelWarn, fmt.Sprintf(format, args...))
}

// Errorf formats and logs at error level using the Logger attached to ctx.
func Errorf(ctx context.Context, format string, args ...any) {
	emit(ctx, callerFromHere(), slog.LevelError, fmt.Sprintf(format, args...))
}
