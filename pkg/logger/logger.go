// Package logger wraps slog with structured JSON output, request/trace id
// injection from context and file rotation via lumberjack.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

var globalLogger *slog.Logger

// Config controls the global logger.
type Config struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: json or text
	Format string `mapstructure:"format"`
	// Output: stdout, file, both
	Output string `mapstructure:"output"`
	// FilePath is used when Output is file or both
	FilePath string `mapstructure:"file_path"`
	// MaxSize in MB per log file
	MaxSize int `mapstructure:"max_size"`
	// MaxBackups is the number of rotated files kept
	MaxBackups int `mapstructure:"max_backups"`
	// MaxAge in days
	MaxAge int `mapstructure:"max_age"`
	// Compress rotated files
	Compress bool `mapstructure:"compress"`
	// WithCaller adds source position to records
	WithCaller bool `mapstructure:"with_caller"`
}

// Init builds the global logger from config.
func Init(cfg Config) error {
	var handler slog.Handler
	var output io.Writer

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	switch cfg.Output {
	case "file":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		output = fileWriter
	case "both":
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		output = io.MultiWriter(os.Stdout, fileWriter)
	default:
		output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.WithCaller,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	return nil
}

// Get returns the global logger, falling back to slog's default.
func Get() *slog.Logger {
	if globalLogger == nil {
		return slog.Default()
	}
	return globalLogger
}

type contextKey string

const (
	// RequestIDContextKey carries the request id set by HTTP middleware.
	RequestIDContextKey contextKey = "request_id"
	// TraceIDContextKey carries the trace id set by HTTP middleware.
	TraceIDContextKey contextKey = "trace_id"
)

// ContextWithRequestID returns a ctx annotated with request and trace ids.
func ContextWithRequestID(ctx context.Context, requestID, traceID string) context.Context {
	ctx = context.WithValue(ctx, RequestIDContextKey, requestID)
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// WithContext returns a logger annotated with request/trace ids found in ctx.
func WithContext(ctx context.Context) *slog.Logger {
	l := Get()

	attrs := []any{}
	if requestID := stringFromContext(ctx, RequestIDContextKey); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if traceID := stringFromContext(ctx, TraceIDContextKey); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}

	if len(attrs) > 0 {
		return l.With(attrs...)
	}
	return l
}

// Debug logs at debug level with context annotations.
func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}

// Info logs at info level with context annotations.
func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

// Warn logs at warn level with context annotations.
func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

// Error logs at error level with context annotations.
func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}

// Fatal logs at error level and exits.
func Fatal(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
	os.Exit(1)
}

// LogDuration returns a func for defer that logs the elapsed time.
func LogDuration(ctx context.Context, msg string, args ...any) func() {
	start := time.Now()
	return func() {
		args = append(args, slog.Duration("duration", time.Since(start)))
		Info(ctx, msg, args...)
	}
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
