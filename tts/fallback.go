package tts

import (
	"context"
	"errors"
	"time"

	"github.com/openclaw/voicebridge/logger"
)

// Tier identifies which synthesis backend produced a Result.
type Tier int

const (
	// TierPremium means the external network provider synthesized the audio.
	TierPremium Tier = iota

	// TierNative means no audio was produced; the telephony platform should
	// speak the text with its own built-in voice.
	TierNative
)

// String returns the tier name for logging.
func (t Tier) String() string {
	switch t {
	case TierPremium:
		return "premium"
	case TierNative:
		return "native"
	}
	return "unknown"
}

// Result is the typed outcome of a tiered synthesis attempt. Exactly one of
// the two shapes occurs: premium audio bytes, or a native-voice directive
// with no bytes. A Result never carries an error; tier selection is the
// error handling.
type Result struct {
	// Audio is the synthesized payload. Empty when Tier is TierNative.
	Audio []byte

	// Provider is the name of the provider that produced the audio.
	// Empty when Tier is TierNative.
	Provider string

	// Tier records which backend answered.
	Tier Tier
}

// Native reports whether the result is a native-voice directive.
func (r Result) Native() bool {
	return r.Tier == TierNative
}

// Chain is the tiered synthesizer. It tries the premium provider under a
// hard per-attempt deadline and degrades to the native tier on credential
// absence, timeout, transport error, or a non-success provider response.
// The zero-value distinction matters: a Chain with a nil primary service is
// valid and always answers natively.
type Chain struct {
	primary Service
	timeout time.Duration
}

// ChainOption configures a Chain.
type ChainOption func(*Chain)

// WithAttemptTimeout overrides the per-attempt premium deadline.
func WithAttemptTimeout(d time.Duration) ChainOption {
	return func(c *Chain) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewChain creates a tiered synthesizer. Pass a nil primary when no premium
// credential is configured; that is the expected no-credential deployment,
// not an error.
func NewChain(primary Service, opts ...ChainOption) *Chain {
	c := &Chain{
		primary: primary,
		timeout: DefaultAttemptTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PrimaryName returns the premium provider identifier, or "native" when no
// premium tier is configured. It is stable per deployment and participates
// in cache key derivation.
func (c *Chain) PrimaryName() string {
	if c.primary == nil {
		return "native"
	}
	return c.primary.Name()
}

// AttemptTimeout returns the configured per-attempt deadline.
func (c *Chain) AttemptTimeout() time.Duration {
	return c.timeout
}

// Synthesize runs the tiers in order and always returns a usable Result
// within the attempt timeout plus scheduling overhead. Concurrent calls with
// identical inputs are safe; deduplication is the cache's job one layer up.
func (c *Chain) Synthesize(ctx context.Context, text string, spec VoiceSpec) Result {
	if c.primary == nil {
		// Expected when no credential is configured; not worth a warning.
		logger.DebugContext(ctx, "no premium synthesis provider configured")
		return Result{Tier: TierNative}
	}

	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	logger.SynthesisCall(attemptCtx, c.primary.Name(), len(text))

	audio, err := c.primary.Synthesize(attemptCtx, text, spec)
	if err != nil {
		logger.SynthesisFallback(ctx, c.primary.Name(), classify(err), err,
			"elapsed", time.Since(start))
		return Result{Tier: TierNative}
	}

	logger.SynthesisResult(ctx, c.primary.Name(), len(audio), time.Since(start))
	return Result{
		Audio:    audio,
		Provider: c.primary.Name(),
		Tier:     TierPremium,
	}
}

// classify maps a synthesis error to a fallback reason for logging.
func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidVoice):
		return "invalid_voice"
	}
	var synthErr *SynthesisError
	if errors.As(err, &synthErr) {
		return "provider_failure"
	}
	return "error"
}
