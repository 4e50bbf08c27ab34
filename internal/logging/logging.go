// Package logging carries request-scoped loggers through context so services
// and handlers enrich a shared *slog.Logger instead of constructing their own.
package logging

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// NewContext returns a derived context that carries the provided logger.
func NewContext(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a logger previously attached to the context, or nil
// when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(contextKey{}).(*slog.Logger)
	return logger
}
