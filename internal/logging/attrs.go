package logging

import (
	"context"
	"log/slog"

	"demix/internal/services"
)

type Attr = slog.Attr

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Standardized attribute keys.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldJobKind   = "kind"
)

// NewNop returns a logger that discards all records.
func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

// WithComponent creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WithContext decorates a logger with job identity fields carried in ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	if id, ok := services.JobIDFromContext(ctx); ok {
		logger = logger.With(String(FieldJobID, id))
	}
	if kind, ok := services.JobKindFromContext(ctx); ok {
		logger = logger.With(String(FieldJobKind, kind))
	}
	return logger
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (noopHandler) WithAttrs([]slog.Attr) slog.Handler        { return noopHandler{} }
func (noopHandler) WithGroup(string) slog.Handler             { return noopHandler{} }
