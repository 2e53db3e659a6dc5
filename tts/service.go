package tts

import (
	"context"
	"time"
)

// Default voice settings for the premium tier. Tuning parameters are fixed
// per deployment, not per call; they travel in VoiceSpec and therefore in
// the audio cache key.
const (
	DefaultStability  = 0.5
	DefaultSimilarity = 0.75

	// DefaultVoiceID is the ElevenLabs "Rachel" voice.
	DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

	// DefaultModel favors latency over quality; a telephony turn has a hard
	// time budget and the audio plays over an 8kHz phone line anyway.
	DefaultModel = "eleven_turbo_v2_5"

	// DefaultFormat is the provider output format for synthesized audio.
	DefaultFormat = "mp3_44100_128"

	// DefaultAttemptTimeout bounds a single premium synthesis attempt. It is
	// a fixed upper bound rather than a share of the turn budget because one
	// webhook invocation can synthesize several utterances (reply plus
	// re-prompt) and each must fail fast on its own.
	DefaultAttemptTimeout = 5 * time.Second
)

// Service converts text to speech audio.
// This interface abstracts synthesis providers so the fallback chain and the
// resolver can be tested without a network call.
type Service interface {
	// Name returns the provider identifier (for logging and cache keys).
	Name() string

	// Synthesize converts text to a complete audio payload. It blocks until
	// the full artifact is available or ctx is done; partial audio is never
	// returned.
	Synthesize(ctx context.Context, text string, spec VoiceSpec) ([]byte, error)
}

// VoiceSpec carries the voice identity and tuning parameters for synthesis.
// Identical text synthesized under a different VoiceSpec is different audio,
// so every field participates in the cache key.
type VoiceSpec struct {
	// VoiceID is the provider-specific voice identifier.
	VoiceID string

	// Model is the provider synthesis model.
	Model string

	// Stability controls voice consistency (0.0-1.0).
	Stability float64

	// Similarity controls likeness to the reference voice (0.0-1.0).
	Similarity float64

	// Format is the provider output format identifier.
	Format string
}

// DefaultVoiceSpec returns the deployment defaults.
func DefaultVoiceSpec() VoiceSpec {
	return VoiceSpec{
		VoiceID:    DefaultVoiceID,
		Model:      DefaultModel,
		Stability:  DefaultStability,
		Similarity: DefaultSimilarity,
		Format:     DefaultFormat,
	}
}

// MIMEType returns the content type of audio produced under this spec.
func (s VoiceSpec) MIMEType() string {
	return "audio/mpeg"
}
