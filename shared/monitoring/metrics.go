package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors shared by the API, the YouTube
// client, the cache and the watchlist agent. They are registered with the
// default registry when the package loads.
var Metrics = struct {
	SearchesTotal    *prometheus.CounterVec
	YouTubeCalls     *prometheus.CounterVec
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	PromptsGenerated prometheus.Counter
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	WatchRuns        *prometheus.CounterVec
}{
	SearchesTotal: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendbrief_searches_total",
			Help: "Keyword searches served, by video filter and result source.",
		},
		[]string{"filter", "source"},
	),
	YouTubeCalls: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendbrief_youtube_api_calls_total",
			Help: "YouTube Data API calls, by method and outcome.",
		},
		[]string{"method", "outcome"},
	),
	CacheHits: prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trendbrief_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	),
	CacheMisses: prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trendbrief_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	),
	PromptsGenerated: prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "trendbrief_prompts_generated_total",
			Help: "Research prompts composed.",
		},
	),
	RequestDuration: prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "trendbrief_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	),
	RequestsInFlight: prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendbrief_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	),
	WatchRuns: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendbrief_watch_runs_total",
			Help: "Watchlist runs, by outcome.",
		},
		[]string{"outcome"},
	),
}

func init() {
	prometheus.MustRegister(
		Metrics.SearchesTotal,
		Metrics.YouTubeCalls,
		Metrics.CacheHits,
		Metrics.CacheMisses,
		Metrics.PromptsGenerated,
		Metrics.RequestDuration,
		Metrics.RequestsInFlight,
		Metrics.WatchRuns,
	)
}
