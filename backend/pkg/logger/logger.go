package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	UsernameKey  ContextKey = "username"
	// SubjectKey is the applicant a document belongs to
	SubjectKey ContextKey = "subject_id"
	KindKey    ContextKey = "document_kind"
)

// contextAttrs are copied from the context onto every log line, in this order
var contextAttrs = []ContextKey{RequestIDKey, UsernameKey, SubjectKey, KindKey}

// Config holds logger configuration
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	// Output defaults to stdout
	Output io.Writer
}

// Init installs the global slog logger and returns it
func Init(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.Level))); err != nil {
		level = slog.LevelInfo
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l := slog.New(handler)
	slog.SetDefault(l)
	return l
}

// WithContext returns the default logger carrying the request and document attributes found in ctx
func WithContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	for _, key := range contextAttrs {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			l = l.With(string(key), v)
		}
	}
	return l
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}

// WithDocument returns a context whose log lines carry the subject and document kind
func WithDocument(ctx context.Context, subjectID, kind string) context.Context {
	ctx = context.WithValue(ctx, SubjectKey, subjectID)
	return context.WithValue(ctx, KindKey, kind)
}

func logAt(ctx context.Context, level slog.Level, msg string, args ...any) {
	l := WithContext(ctx)
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelDebug, msg, args...) }
func Info(ctx context.Context, msg string, args ...any)  { logAt(ctx, slog.LevelInfo, msg, args...) }
func Warn(ctx context.Context, msg string, args ...any)  { logAt(ctx, slog.LevelWarn, msg, args...) }
func Error(ctx context.Context, msg string, args ...any) { logAt(ctx, slog.LevelError, msg, args...) }
