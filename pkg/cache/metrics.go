package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks code-list cache hits
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noark_codelist_cache_hits_total",
			Help: "Total number of code-list cache hits",
		},
	)

	// CacheMisses tracks code-list cache misses
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noark_codelist_cache_misses_total",
			Help: "Total number of code-list cache misses",
		},
	)

	// CacheSize tracks bytes written to the cache
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "noark_codelist_cache_size_bytes",
			Help: "Bytes written to the code-list cache",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noark_codelist_cache_errors_total",
			Help: "Total number of code-list cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
