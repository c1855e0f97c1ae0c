package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Eviction reasons used as the "reason" label of CacheEvictions.
const (
	EvictExpired  = "expired"
	EvictCapacity = "capacity"
	EvictCleared  = "cleared"
)

var (
	// CacheHits tracks cache hits by store name
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_cache_hits_total",
			Help: "Total number of content cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses tracks cache misses by store name
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_cache_misses_total",
			Help: "Total number of content cache misses",
		},
		[]string{"cache"},
	)

	// CacheEvictions tracks removed entries by store name and reason
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cms_cache_evictions_total",
			Help: "Total number of content cache entries removed",
		},
		[]string{"cache", "reason"}, // "expired", "capacity", "cleared"
	)

	// CacheEntries tracks resident entries by store name
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cms_cache_entries",
			Help: "Current number of entries in each content cache",
		},
		[]string{"cache"},
	)
)
