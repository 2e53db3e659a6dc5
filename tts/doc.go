// Package tts converts reply text into spoken audio for telephony turns.
//
// It defines the Service abstraction over speech synthesis providers, an
// ElevenLabs implementation, and a two-tier fallback Chain: the premium
// network provider is tried first under a hard per-attempt deadline, and on
// any failure the chain yields a native-voice outcome that tells the
// telephony layer to speak the text with its own built-in voice. The tier
// transition is silent to the caller; no synthesis error escapes the chain.
package tts
