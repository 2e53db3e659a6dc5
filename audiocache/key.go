package audiocache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/openclaw/voicebridge/tts"
)

// keyVersion prefixes every key so a future change to the digest layout
// invalidates old entries instead of colliding with them.
const keyVersion = "v1"

// Key addresses one synthesized audio artifact. Identical (provider, voice
// spec, text) inputs always produce the same Key.
type Key string

// NewKey derives the content address for an utterance. The voice tuning
// parameters are part of the digest: changing stability or similarity for a
// deployment invalidates cached audio for the same text.
func NewKey(provider string, spec tts.VoiceSpec, text string) Key {
	input := fmt.Sprintf("%s|%s|%s|%s|%.2f|%.2f|%s",
		provider, spec.VoiceID, spec.Model, spec.Format,
		spec.Stability, spec.Similarity, text)

	sum := sha256.Sum256([]byte(input))
	return Key(keyVersion + "_" + hex.EncodeToString(sum[:]))
}

// String returns the key as a URL-safe path segment.
func (k Key) String() string {
	return string(k)
}
