package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lp_fetches_total",
			Help: "Raw file fetches by outcome (ok, missing, failed)",
		},
		[]string{"outcome"},
	)
	CacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lp_cache_hits_total",
			Help: "Fetches served from the local cache",
		},
	)
	FetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lp_fetch_retries_total",
			Help: "Transient fetch failures that were retried",
		},
	)
	RowsParsedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lp_rows_parsed_total",
			Help: "Raw rows normalized into load samples",
		},
	)
	RowsSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lp_rows_skipped_total",
			Help: "Malformed raw rows skipped with a warning",
		},
	)
)

// Start registers the collectors and serves /metrics on the given port.
func Start(port string) {
	prometheus.MustRegister(FetchesTotal, CacheHitsTotal, FetchRetriesTotal, RowsParsedTotal, RowsSkippedTotal)
	http.Handle("/metrics", promhttp.Handler())
	go http.ListenAndServe(":"+port, nil)
}
