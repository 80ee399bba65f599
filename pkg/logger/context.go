package logger

import (
	"context"

	"go.uber.org/zap"
)

type (
	ctxKey       struct{}
	requestIDKey struct{}
)

const RequestIDKey = "request_id"

// ToContext stores l in ctx so handlers deeper in the call chain log with the
// same request-scoped fields.
func ToContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx, or fallback when there is none.
func FromContext(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok && l != nil {
		return l
	}
	return fallback
}

// WithRequestID attaches the request id to l and stores both in ctx.
func WithRequestID(ctx context.Context, l Logger, requestID string) (context.Context, Logger) {
	scoped := l.With(zap.String(RequestIDKey, requestID))
	ctx = context.WithValue(ctx, requestIDKey{}, requestID)
	return ToContext(ctx, scoped), scoped
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Scoped returns l tagged with the request id carried by ctx, if any. Packages
// with their own named logger use it instead of FromContext.
func Scoped(ctx context.Context, l Logger) Logger {
	if id := RequestID(ctx); id != "" {
		return l.With(zap.String(RequestIDKey, id))
	}
	return l
}
