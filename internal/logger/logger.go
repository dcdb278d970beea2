// Package logger wraps log/slog behind a small interface so call sites
// never import slog directly: structured fields via With/WithGroup,
// printf-style helpers for the common case, and a source location that
// always points at the caller, never at this package.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the structured logger surface every package in this module
// depends on.
type Logger interface {
	Info(msg string, args ...any)
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	Infof(format string, args ...any)
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	With(key string, value any) Logger
	WithGroup(name string) Logger
}

type logger struct {
	handler slog.Handler
}

type options struct {
	debug   bool
	format  string
	writer  io.Writer
	logFile io.Writer
	quiet   bool
}

// Option configures NewLogger.
type Option func(*options)

// WithDebug enables debug-level logging and source-location annotation.
func WithDebug() Option {
	return func(o *options) { o.debug = true }
}

// WithFormat selects the handler encoding: "text" (default) or "json".
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithWriter sets the primary output destination.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithLogFile tees output to an additional destination, typically an open
// per-request or per-domain log file from OpenLogFile.
func WithLogFile(w io.Writer) Option {
	return func(o *options) { o.logFile = w }
}

// WithQuiet suppresses the default stderr tee, leaving only the writers
// explicitly configured via WithWriter/WithLogFile.
func WithQuiet() Option {
	return func(o *options) { o.quiet = true }
}

// NewLogger builds a Logger from the given options. With no writer
// configured, output goes to stdout.
func NewLogger(opts ...Option) Logger {
	o := &options{format: "text"}
	for _, opt := range opts {
		opt(o)
	}

	var writers []io.Writer
	if o.writer != nil {
		writers = append(writers, o.writer)
	}
	if o.logFile != nil {
		writers = append(writers, o.logFile)
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	} else if !o.quiet {
		writers = append(writers, os.Stderr)
	}

	level := slog.LevelInfo
	if o.debug {
		level = slog.LevelDebug
	}

	hopts := &slog.HandlerOptions{AddSource: o.debug, Level: level}

	handlers := make([]slog.Handler, len(writers))
	for i, w := range writers {
		if o.format == "json" {
			handlers[i] = slog.NewJSONHandler(w, hopts)
		} else {
			handlers[i] = slog.NewTextHandler(w, hopts)
		}
	}

	var handler slog.Handler
	if len(handlers) == 1 {
		handler = handlers[0]
	} else {
		handler = slogmulti.Fanout(handlers...)
	}

	return &logger{handler: handler}
}

// write emits a record at an already-captured program counter, so the
// reported source is whichever caller obtained pc, never this file.
func (l *logger) write(pc uintptr, level slog.Level, msg string, args ...any) {
	if !l.handler.Enabled(context.Background(), level) {
		return
	}
	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.Add(args...)
	_ = l.handler.Handle(context.Background(), r)
}

func callerPC() uintptr {
	pcs := make([]uintptr, 1)
	// 0=runtime.Callers, 1=callerPC, 2=the Logger method calling callerPC,
	// 3=that method's caller.
	runtime.Callers(3, pcs)
	return pcs[0]
}

func (l *logger) Info(msg string, args ...any)  { l.write(callerPC(), slog.LevelInfo, msg, args...) }
func (l *logger) Debug(msg string, args ...any) { l.write(callerPC(), slog.LevelDebug, msg, args...) }
func (l *logger) Warn(msg string, args ...any)  { l.write(callerPC(), slog.LevelWarn, msg, args...) }
func (l *logger) Error(msg string, args ...any) { l.write(callerPC(), slog.LevelError, msg, args...) }

func (l *logger) Infof(format string, args ...any) {
	l.write(callerPC(), slog.LevelInfo, fmt.Sprintf(format, args...))
}

func (l *logger) Debugf(format string, args ...any) {
	l.write(callerPC(), slog.LevelDebug, fmt.Sprintf(format, args...))
}

func (l *logger) Warnf(format string, args ...any) {
	l.write(callerPC(), slog.LevelWarn, fmt.Sprintf(format, args...))
}

func (l *logger) Errorf(format string, args ...any) {
	l.write(callerPC(), slog.LevelError, fmt.Sprintf(format, args...))
}

func (l *logger) With(key string, value any) Logger {
	return &logger{handler: l.handler.WithAttrs([]slog.Attr{slog.Any(key, value)})}
}

func (l *logger) WithGroup(name string) Logger {
	return &logger{handler: l.handler.WithGroup(name)}
}
