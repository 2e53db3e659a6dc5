package logger

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys for common logging fields. Values stored under these keys are
// automatically extracted by ContextHandler and added to log entries.
const (
	// ContextKeyCallSID identifies the telephony call.
	ContextKeyCallSID contextKey = "call_sid"

	// ContextKeyCaller identifies the calling party (the From number).
	ContextKeyCaller contextKey = "caller"

	// ContextKeyTurnID identifies the current conversation turn.
	ContextKeyTurnID contextKey = "turn_id"

	// ContextKeyRequestID identifies the individual webhook request.
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyProvider identifies the synthesis provider in use.
	ContextKeyProvider contextKey = "provider"
)

// allContextKeys lists the context keys extracted for logging.
var allContextKeys = []contextKey{
	ContextKeyCallSID,
	ContextKeyCaller,
	ContextKeyTurnID,
	ContextKeyRequestID,
	ContextKeyProvider,
}

// WithCallSID returns a new context with the call SID set.
func WithCallSID(ctx context.Context, callSID string) context.Context {
	return context.WithValue(ctx, ContextKeyCallSID, callSID)
}

// WithCaller returns a new context with the caller identity set.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, ContextKeyCaller, caller)
}

// WithTurnID returns a new context with the turn ID set.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, ContextKeyTurnID, turnID)
}

// WithRequestID returns a new context with the request ID set.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// WithProvider returns a new context with the provider name set.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, ContextKeyProvider, provider)
}

// RequestIDFromContext returns the request ID stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(ContextKeyRequestID); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
