// Package prometheus provides Prometheus metrics for the voice webhook service.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "voicebridge"

var (
	// cacheHitsTotal counts audio cache lookups that found an entry.
	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_hits_total",
			Help:      "Total number of audio cache hits",
		},
	)

	// cacheMissesTotal counts audio cache lookups that found nothing.
	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_misses_total",
			Help:      "Total number of audio cache misses",
		},
	)

	// cacheEvictionsTotal counts removed cache entries by reason.
	cacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_cache_evictions_total",
			Help:      "Total number of audio cache entries evicted",
		},
		[]string{"reason"}, // reason: overflow, expired
	)

	// cacheEntries is a gauge of current cache population.
	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audio_cache_entries",
			Help:      "Current number of entries in the audio cache",
		},
	)

	// synthesisDuration is a histogram of synthesis provider call duration.
	synthesisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Duration of speech synthesis provider calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"provider"},
	)

	// synthesisTotal counts synthesis attempts by provider and status.
	synthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_total",
			Help:      "Total number of speech synthesis attempts",
		},
		[]string{"provider", "status"}, // status: success, error
	)

	// fallbackTotal counts turns answered with the native voice directive.
	fallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "native_fallback_total",
			Help:      "Total number of turns answered with the native voice fallback",
		},
	)

	// webhookDuration is a histogram of webhook handler duration by route.
	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Duration of telephony webhook handling in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"route", "status"},
	)

	// allMetrics is a list of all collectors for registration.
	allMetrics = []prometheus.Collector{
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheEntries,
		synthesisDuration,
		synthesisTotal,
		fallbackTotal,
		webhookDuration,
	}
)

// RecordCacheHit records an audio cache hit.
func RecordCacheHit() {
	cacheHitsTotal.Inc()
}

// RecordCacheMiss records an audio cache miss.
func RecordCacheMiss() {
	cacheMissesTotal.Inc()
}

// RecordCacheEviction records n evicted entries for the given reason.
func RecordCacheEviction(reason string, n int) {
	if n > 0 {
		cacheEvictionsTotal.WithLabelValues(reason).Add(float64(n))
	}
}

// SetCacheEntries updates the cache population gauge.
func SetCacheEntries(n int) {
	cacheEntries.Set(float64(n))
}

// RecordSynthesis records a synthesis attempt.
func RecordSynthesis(provider, status string, durationSeconds float64) {
	synthesisDuration.WithLabelValues(provider).Observe(durationSeconds)
	synthesisTotal.WithLabelValues(provider, status).Inc()
}

// RecordNativeFallback records a turn answered with the native voice.
func RecordNativeFallback() {
	fallbackTotal.Inc()
}

// RecordWebhook records the handling of one webhook request.
func RecordWebhook(route, status string, durationSeconds float64) {
	webhookDuration.WithLabelValues(route, status).Observe(durationSeconds)
}
