package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Eviction reasons.
const (
	EvictCapacity    = "capacity"
	EvictExpired     = "expired"
	EvictInvalidated = "invalidated"
)

var (
	// CacheHits tracks cache hits by region
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of catalog cache hits",
		},
		[]string{"region"},
	)

	// CacheMisses tracks cache misses by region (absent or expired)
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of catalog cache misses",
		},
		[]string{"region"},
	)

	// CacheEvictions tracks removed entries by region and reason
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_evictions_total",
			Help: "Total number of catalog cache entries removed",
		},
		[]string{"region", "reason"}, // "capacity", "expired", "invalidated"
	)

	// CacheEntries tracks the current number of entries per region
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "catalog_cache_entries",
			Help: "Current number of entries held per catalog cache region",
		},
		[]string{"region"},
	)

	// CacheLoads tracks read-through loads against the data source
	CacheLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_loads_total",
			Help: "Total number of read-through loads by region",
		},
		[]string{"region"},
	)

	// CacheLoadErrors tracks failed read-through loads
	CacheLoadErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_load_errors_total",
			Help: "Total number of failed read-through loads by region",
		},
		[]string{"region"},
	)

	// CacheStalePutsDropped tracks loads whose result was discarded because
	// the key was invalidated while the load ran
	CacheStalePutsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_stale_puts_dropped_total",
			Help: "Total number of read-through results dropped after a concurrent invalidation",
		},
		[]string{"region"},
	)
)
