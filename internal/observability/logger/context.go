package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey struct{}

var loggerKey contextKey

// WithContext attaches a logger to ctx for downstream retrieval.
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	if log == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the logger attached to ctx, or the process logger.
func FromContext(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if log, ok := ctx.Value(loggerKey).(*zap.Logger); ok && log != nil {
			return log
		}
	}
	return zap.L()
}
