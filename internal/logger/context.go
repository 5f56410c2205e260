package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger attaches l to ctx. The HTTP layer stores a request-scoped
// logger here so use cases can tag their warnings with the request id.
func ContextWithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContextOr returns the logger attached to ctx, or fallback when there is none.
func FromContextOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

// ForIndex returns a logger tagged with the (client, category) pair of an index.
func ForIndex(l *zap.Logger, client, category string) *zap.Logger {
	return l.With(zap.String("client", client), zap.String("category", category))
}
