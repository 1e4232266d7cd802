package services

import "context"

type contextKey string

const (
	jobIDKey   contextKey = "job_id"
	jobKindKey contextKey = "job_kind"
)

// WithJobID annotates context with the job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithJobKind annotates context with the job kind.
func WithJobKind(ctx context.Context, kind string) context.Context {
	if kind == "" {
		return ctx
	}
	return context.WithValue(ctx, jobKindKey, kind)
}

// JobKindFromContext returns the job kind if present.
func JobKindFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobKindKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

