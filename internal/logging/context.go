package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	conversionIDKey ctxKey = iota
	nodeNameKey
)

// WithConversionID returns a context with the conversion run ID set.
func WithConversionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversionIDKey, id)
}

// WithNodeName returns a context with the node/module name set.
func WithNodeName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, nodeNameKey, name)
}

// ConversionID extracts the conversion run ID from the context, or "" if absent.
func ConversionID(ctx context.Context) string {
	v, _ := ctx.Value(conversionIDKey).(string)
	return v
}

// NodeName extracts the node/module name from the context, or "" if absent.
func NodeName(ctx context.Context) string {
	v, _ := ctx.Value(nodeNameKey).(string)
	return v
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := ConversionID(ctx); id != "" {
		logger = logger.With(slog.String("conversion_id", id))
	}
	if name := NodeName(ctx); name != "" {
		logger = logger.With(slog.String("node", name))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := ConversionID(ctx); v != "" {
		r.AddAttrs(slog.String("conversion_id", v))
	}
	if v := NodeName(ctx); v != "" {
		r.AddAttrs(slog.String("node", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
