// Package resolver turns reply text into a playable audio reference within a
// telephony turn's time budget.
//
// Resolve consults the audio cache, synthesizes on a miss through the tiered
// fallback chain, and always answers with a usable AudioReference: either a
// cached artifact servable over HTTP or a directive to speak the text with
// the platform's native voice. No synthesis-path error ever escapes to the
// turn handler.
package resolver

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/openclaw/voicebridge/audiocache"
	"github.com/openclaw/voicebridge/logger"
	"github.com/openclaw/voicebridge/metrics/prometheus"
	"github.com/openclaw/voicebridge/tts"
)

// Kind discriminates the AudioReference variants.
type Kind int

const (
	// KindCached references synthesized audio stored in the cache.
	KindCached Kind = iota

	// KindNative instructs the telephony layer to speak the text itself.
	KindNative
)

// AudioReference is the resolver's answer for one utterance. It is a tagged
// variant, not a byte buffer: the turn handler either points the caller at
// the audio URL or emits a native say directive, and never blocks on I/O it
// does not own.
type AudioReference struct {
	Kind Kind

	// Key and URL identify the cached artifact. Set only for KindCached.
	// The URL is ephemeral: it stays valid exactly as long as the cache
	// entry does.
	Key audiocache.Key
	URL string

	// Text is the utterance. For KindNative it is what the platform should
	// speak.
	Text string
}

// Cached reports whether the reference points at stored audio.
func (r AudioReference) Cached() bool {
	return r.Kind == KindCached
}

// Resolver coordinates cache, synthesis chain and audio URLs for concurrent
// turn handlers. Safe for concurrent use; the cache is the only shared
// mutable state underneath.
type Resolver struct {
	cache   *audiocache.Cache
	chain   *tts.Chain
	spec    tts.VoiceSpec
	baseURL string

	group singleflight.Group
}

// New creates a Resolver. baseURL is the public prefix for audio URLs
// (e.g. "https://voice.example.com"); when empty, URLs are host-relative.
func New(cache *audiocache.Cache, chain *tts.Chain, spec tts.VoiceSpec, baseURL string) *Resolver {
	return &Resolver{
		cache:   cache,
		chain:   chain,
		spec:    spec,
		baseURL: baseURL,
	}
}

// Resolve returns an audio reference for text, always within the synthesis
// attempt deadline plus a small constant overhead. The hit path does no I/O
// and is cheap enough for turns that resolve several fixed prompts.
func (r *Resolver) Resolve(ctx context.Context, text string) AudioReference {
	if text == "" {
		return AudioReference{Kind: KindNative, Text: text}
	}

	key := audiocache.NewKey(r.chain.PrimaryName(), r.spec, text)

	if entry, ok := r.cache.Get(key); ok {
		prometheus.RecordCacheHit()
		return r.cachedRef(entry, text)
	}
	prometheus.RecordCacheMiss()

	// Collapse concurrent first-time resolves of the same utterance into a
	// single synthesis call; every waiter shares the winner's outcome.
	v, _, _ := r.group.Do(string(key), func() (interface{}, error) {
		// A racing winner may have populated the cache between our miss and
		// acquiring the flight.
		if entry, ok := r.cache.Get(key); ok {
			return entry, nil
		}

		start := time.Now()
		result := r.chain.Synthesize(ctx, text, r.spec)
		if result.Native() {
			prometheus.RecordSynthesis(r.chain.PrimaryName(), "error", time.Since(start).Seconds())
			return nil, nil
		}
		prometheus.RecordSynthesis(result.Provider, "success", time.Since(start).Seconds())

		// Synthesis-then-store completes before the reference is returned;
		// there is no deferred write that could land after the turn moved on.
		return r.cache.Put(key, result.Audio), nil
	})

	entry, _ := v.(*audiocache.Entry)
	if entry == nil {
		prometheus.RecordNativeFallback()
		logger.DebugContext(ctx, "resolved to native voice", "chars", len(text))
		return AudioReference{Kind: KindNative, Text: text}
	}
	return r.cachedRef(entry, text)
}

func (r *Resolver) cachedRef(entry *audiocache.Entry, text string) AudioReference {
	return AudioReference{
		Kind: KindCached,
		Key:  entry.Key,
		URL:  r.baseURL + "/audio/" + entry.Key.String(),
		Text: text,
	}
}
