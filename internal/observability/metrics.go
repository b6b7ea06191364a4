package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MatchesTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "matches_total", Help: "Total matches produced"})
	MatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_pooling", Name: "match_latency_seconds", Help: "Per-rider matching latency", Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12)})

	PrefilterCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ride_pooling",
		Name:      "prefilter_candidates",
		Help:      "Candidate trips returned by the spatial pre-filter",
		Buckets:   prometheus.LinearBuckets(0, 25, 9),
	})
	PolylineCacheHits   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "polyline_cache_hits_total", Help: "Polyline cache hits"})
	PolylineCacheMisses = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "polyline_cache_misses_total", Help: "Polyline cache misses"})

	PoolsBuilt      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "pools_built_total", Help: "Pool assignments produced"})
	RidersPooled    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "riders_pooled_total", Help: "Riders placed into pools"})
	DispatchRounds  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "ride_pooling", Name: "dispatch_rounds_total", Help: "Dispatch rounds executed"})
	DispatchLatency = promauto.NewHistogram(prometheus.HistogramOpts{Namespace: "ride_pooling", Name: "dispatch_round_seconds", Help: "Full dispatch round latency", Buckets: prometheus.DefBuckets})
)
