package tts

import "errors"

// Common synthesis errors.
var (
	// ErrEmptyText is returned when attempting to synthesize empty text.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidVoice is returned when the requested voice is not available.
	ErrInvalidVoice = errors.New("invalid or unsupported voice")

	// ErrRateLimited is returned when API rate limits are exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrSynthesisFailed is returned when synthesis fails for an unclassified reason.
	ErrSynthesisFailed = errors.New("speech synthesis failed")
)

// SynthesisError provides detailed error information from synthesis providers.
type SynthesisError struct {
	// Provider is the synthesis provider that returned the error.
	Provider string

	// Code is the provider-specific error code or HTTP status.
	Code string

	// Message is the error message.
	Message string

	// Cause is the underlying error (if any).
	Cause error

	// Retryable indicates if the error is transient and retry may succeed.
	Retryable bool
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	if e.Cause != nil {
		return e.Provider + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.Provider + ": " + e.Message
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// NewSynthesisError creates a new SynthesisError.
func NewSynthesisError(provider, code, message string, cause error, retryable bool) *SynthesisError {
	return &SynthesisError{
		Provider:  provider,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: retryable,
	}
}
