// Package audiocache is a content-addressed store for synthesized audio.
//
// Entries are keyed by a digest over the synthesis provider, the voice
// parameters and the exact text, so identical utterances for the same voice
// always land in the same slot and are synthesized at most once. The cache
// is bounded by entry count with FIFO eviction and by age with a periodic
// sweep. Eviction is deliberately insertion-ordered rather than
// recency-ordered: a recorded utterance is reused within one call's
// lifetime, not across all time.
package audiocache
