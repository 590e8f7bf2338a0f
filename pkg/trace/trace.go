// Package trace propagates a per-intent trace ID through context.Context so
// every log line and progress event for one transaction intent can be
// correlated.
package trace

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey struct{}

// New generates a fresh trace ID.
func New() string { return uuid.NewString() }

// WithTraceID returns a context carrying the given trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the trace ID from ctx, if present.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok
}

// Ensure returns the trace ID in ctx, generating and attaching a new one if
// absent.
func Ensure(ctx context.Context) (context.Context, string) {
	if id, ok := FromContext(ctx); ok && id != "" {
		return ctx, id
	}
	id := New()
	return WithTraceID(ctx, id), id
}
