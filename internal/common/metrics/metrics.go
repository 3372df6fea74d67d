// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectorFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_connector_fetches_total",
			Help: "Total number of connector fetches attempted",
		},
		[]string{"connector"},
	)

	ConnectorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_connector_failures_total",
			Help: "Total number of connector fetches that failed",
		},
		[]string{"connector", "reason"},
	)

	ConnectorFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "crawler_connector_fetch_duration_seconds",
			Help: "Duration of connector fetches in seconds",
		},
		[]string{"connector"},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_cache_hits_total",
			Help: "Total number of result cache hits",
		},
		[]string{"connector"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawler_cache_misses_total",
			Help: "Total number of result cache misses",
		},
		[]string{"connector"},
	)

	CrawlsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crawler_crawls_active",
			Help: "Number of aggregation calls currently in flight",
		},
	)

	RankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "ranking_duration_seconds",
			Help: "Duration of candidate scoring in seconds",
		},
		[]string{"scorer"},
	)
)
