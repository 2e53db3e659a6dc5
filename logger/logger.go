// Package logger provides structured logging for the voice webhook service.
//
// This package wraps Go's standard log/slog with convenience functions for:
//   - Synthesis provider call logging (requests, results, fallbacks)
//   - Automatic API key redaction
//   - Contextual logging with call and turn correlation
//   - Level-based verbosity control
//
// All exported functions use the global DefaultLogger which can be configured
// for different output formats and log levels.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"
)

// DefaultLogger is the global structured logger instance.
// It is safe for concurrent use and initialized with slog.LevelInfo by default.
var DefaultLogger *slog.Logger

// logOutput is where log records are written. Overridable for tests.
var logOutput io.Writer = os.Stderr

func init() {
	initLogger(levelFromEnv(), false)
}

// levelFromEnv reads LOG_LEVEL and maps it to a slog.Level.
func levelFromEnv() slog.Level {
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		return ParseLevel(envLevel)
	}
	return slog.LevelInfo
}

// ParseLevel converts a level name to a slog.Level.
// Unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func initLogger(level slog.Level, useJSON bool) {
	opts := &slog.HandlerOptions{Level: level}
	var base slog.Handler
	if useJSON {
		base = slog.NewJSONHandler(logOutput, opts)
	} else {
		base = slog.NewTextHandler(logOutput, opts)
	}
	DefaultLogger = slog.New(NewContextHandler(base))
	slog.SetDefault(DefaultLogger)
}

// Configure reconfigures the global logger with the given level name and format.
// Format is "json" or "text".
func Configure(level, format string) {
	initLogger(ParseLevel(level), format == "json")
}

// SetLevel changes the logging level for all subsequent log operations.
// This is safe for concurrent use as it replaces the entire logger instance.
func SetLevel(level slog.Level) {
	initLogger(level, false)
}

// Info logs an informational message with structured key-value attributes.
// Args should be provided in key-value pairs: key1, value1, key2, value2, ...
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
// Use for recoverable errors or unexpected but non-critical situations.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// WarnContext logs a warning message with context and structured attributes.
func WarnContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.WarnContext(ctx, msg, args...)
}

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// SynthesisCall logs a synthesis provider request.
func SynthesisCall(ctx context.Context, provider string, chars int, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs, "provider", provider, "chars", chars)
	allAttrs = append(allAttrs, attrs...)
	DebugContext(ctx, "synthesis request", allAttrs...)
}

// SynthesisResult logs a completed synthesis with payload size and latency.
func SynthesisResult(ctx context.Context, provider string, size int, elapsed time.Duration, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs, "provider", provider, "bytes", size, "elapsed", elapsed)
	allAttrs = append(allAttrs, attrs...)
	InfoContext(ctx, "synthesis complete", allAttrs...)
}

// SynthesisFallback logs a tier transition to the native voice.
// Fallback is a degraded-but-working state, so this is a warning, not an error.
func SynthesisFallback(ctx context.Context, provider, reason string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs, "provider", provider, "reason", reason)
	if err != nil {
		allAttrs = append(allAttrs, "error", RedactSensitiveData(err.Error()))
	}
	allAttrs = append(allAttrs, attrs...)
	WarnContext(ctx, "falling back to native voice", allAttrs...)
}

// apiKeyPatterns contains compiled regular expressions for detecting sensitive data.
var apiKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`xi-api-key:\s*\S+`),       // ElevenLabs API key header
	regexp.MustCompile(`sk_[a-zA-Z0-9]{16,}`),     // ElevenLabs API keys
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9_-]+`), // Bearer tokens
}

// RedactSensitiveData removes API keys and other sensitive information from strings.
// It replaces matched patterns with a redacted form that preserves the first few
// characters for debugging while hiding the sensitive portion.
func RedactSensitiveData(input string) string {
	result := input
	for _, pattern := range apiKeyPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer [REDACTED]"
			}
			if strings.HasPrefix(match, "xi-api-key") {
				return "xi-api-key: [REDACTED]"
			}
			if len(match) > 8 {
				return match[:4] + "...[REDACTED]"
			}
			return "[REDACTED]"
		})
	}
	return result
}
