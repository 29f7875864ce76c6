package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// hits tracks cache hits by backend.
	hits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghm_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"backend"}, // "memory", "redis"
	)

	// misses tracks cache misses by backend.
	misses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghm_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"backend"},
	)

	// storeErrors tracks cache operation errors.
	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ghm_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"backend", "operation"}, // "get", "set", "delete"
	)
)
