package logger

import (
	"context"
	"log/slog"
)

// ContextHandler is a slog.Handler that automatically extracts logging fields
// from context and adds them to log records. It wraps an inner handler and
// delegates all actual logging to it after enriching records with context data.
type ContextHandler struct {
	inner        slog.Handler
	commonFields []slog.Attr
}

// NewContextHandler creates a new ContextHandler wrapping the given handler.
// The commonFields are added to every log record (useful for environment,
// service name, etc.).
func NewContextHandler(inner slog.Handler, commonFields ...slog.Attr) *ContextHandler {
	return &ContextHandler{
		inner:        inner,
		commonFields: commonFields,
	}
}

// Enabled reports whether the handler handles records at the given level.
// It delegates to the inner handler.
func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle processes the log record by extracting context fields and adding them
// to the record before delegating to the inner handler.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface contract
func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	newRecord := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)

	// Common fields first (lowest priority, can be overridden)
	for _, attr := range h.commonFields {
		newRecord.AddAttrs(attr)
	}

	h.addContextFields(ctx, &newRecord)

	// Original attributes last (highest priority)
	r.Attrs(func(a slog.Attr) bool {
		newRecord.AddAttrs(a)
		return true
	})

	return h.inner.Handle(ctx, newRecord)
}

// addContextFields extracts all known context keys and adds them as attributes.
func (h *ContextHandler) addContextFields(ctx context.Context, r *slog.Record) {
	for _, key := range allContextKeys {
		if v := ctx.Value(key); v != nil {
			if s, ok := v.(string); ok && s != "" {
				r.AddAttrs(slog.String(string(key), s))
			}
		}
	}
}

// WithAttrs returns a new handler with the given attributes added.
func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{
		inner:        h.inner.WithAttrs(attrs),
		commonFields: h.commonFields,
	}
}

// WithGroup returns a new handler with the given group name.
func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{
		inner:        h.inner.WithGroup(name),
		commonFields: h.commonFields,
	}
}

// compile-time check that ContextHandler implements slog.Handler
var _ slog.Handler = (*ContextHandler)(nil)
