package kv

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	corruptedEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adega_kv_corrupted_entries_total",
		Help: "Stored entries discarded because they could not be decoded",
	})
	quotaEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adega_kv_quota_evictions_total",
		Help: "Keys of foreign sessions removed to recover from a full storage area",
	})
	quotaExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adega_kv_quota_exhausted_total",
		Help: "Writes dropped because the area stayed full after eviction",
	})
	unavailableAreasTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "adega_kv_unavailable_areas_total",
		Help: "Stores that failed the availability probe and run degraded",
	})
	backendOpDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "adega_kv_backend_op_duration_ms",
		Help:    "Latency of remote storage backend operations in milliseconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50},
	}, []string{"backend", "op"})
)
