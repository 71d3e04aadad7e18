package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents the severity level of a log message.
type Level int

// Log levels
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Format selects the output encoding.
type Format int

// Output formats
const (
	TextFormat Format = iota
	JSONFormat
)

// Logger is the leveled, structured logging interface used across trail.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a child logger carrying additional fields.
	With(fields ...Field) Logger

	// SetLevel sets the minimum level for this logger and its children.
	SetLevel(level Level)
}

// Option configures a logger built by NewLogger.
type Option func(*options)

type options struct {
	level  Level
	format Format
	writer io.Writer
}

// WithLevel sets the minimum log level.
func WithLevel(level Level) Option { return func(o *options) { o.level = level } }

// WithFormat sets the output encoding.
func WithFormat(format Format) Option { return func(o *options) { o.format = format } }

// WithWriter directs output to w instead of stderr.
func WithWriter(w io.Writer) Option { return func(o *options) { o.writer = w } }

type baseLogger struct {
	sl    *slog.Logger
	level *slog.LevelVar
}

// NewLogger creates a logger with the given options.
func NewLogger(opts ...Option) Logger {
	o := options{level: InfoLevel, format: TextFormat, writer: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	lv := new(slog.LevelVar)
	lv.Set(toSlogLevel(o.level))
	hopts := &slog.HandlerOptions{Level: lv}
	var h slog.Handler
	if o.format == JSONFormat {
		h = slog.NewJSONHandler(o.writer, hopts)
	} else {
		h = slog.NewTextHandler(o.writer, hopts)
	}
	return &baseLogger{sl: slog.New(h), level: lv}
}

// NewNopLogger returns a logger that discards everything. Useful in tests.
func NewNopLogger() Logger {
	return NewLogger(WithWriter(io.Discard), WithLevel(ErrorLevel))
}

// Config declaratively describes a logger, typically sourced from env or file.
type Config struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// ApplyConfig builds a logger from a Config.
func ApplyConfig(cfg *Config) (Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format := TextFormat
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
	case "json":
		format = JSONFormat
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return NewLogger(WithLevel(lvl), WithFormat(format)), nil
}

func (l *baseLogger) Debug(msg string, fields ...Field) { l.sl.Debug(msg, attrs(fields)...) }
func (l *baseLogger) Info(msg string, fields ...Field)  { l.sl.Info(msg, attrs(fields)...) }
func (l *baseLogger) Warn(msg string, fields ...Field)  { l.sl.Warn(msg, attrs(fields)...) }
func (l *baseLogger) Error(msg string, fields ...Field) { l.sl.Error(msg, attrs(fields)...) }

func (l *baseLogger) With(fields ...Field) Logger {
	return &baseLogger{sl: l.sl.With(attrs(fields)...), level: l.level}
}

func (l *baseLogger) SetLevel(level Level) { l.level.Set(toSlogLevel(level)) }

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func attrs(fields []Field) []any {
	if len(fields) == 0 {
		return nil
	}
	out := make([]any, 0, len(fields))
	for _, f := range fields {
		out = append(out, slog.Any(f.Key, f.Value))
	}
	return out
}
