package aggregator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Page load outcomes.
const (
	OutcomeHit      = "hit"
	OutcomeMiss     = "miss"
	OutcomeDegraded = "degraded"
	OutcomeFailed   = "failed"
)

var (
	// PageLoads counts LoadPage calls by page and outcome.
	PageLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cms_page_loads_total",
		Help: "Total page loads by page and outcome (hit, miss, degraded, failed)",
	}, []string{"page", "outcome"})

	// PageLoadDuration tracks assembly time for cache misses.
	PageLoadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cms_page_load_duration_seconds",
		Help:    "Page assembly duration in seconds for cache misses",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"page"})

	// LocaleFallbacks counts retries with the default locale.
	LocaleFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cms_locale_fallbacks_total",
		Help: "Total page loads retried with the default locale",
	})

	// CoalescedLoads counts callers that shared another caller's in-flight load.
	CoalescedLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cms_coalesced_loads_total",
		Help: "Total page loads served by an in-flight load of the same key",
	}, []string{"page"})
)
