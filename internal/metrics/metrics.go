package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WeatherAPICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growlog_weather_api_calls_total",
			Help: "Total historical weather archive calls",
		},
		[]string{"status"},
	)

	WeatherAPILatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "growlog_weather_api_latency_seconds",
			Help:    "Historical weather archive call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	GhostRowsCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "growlog_ghost_rows_committed_total",
			Help: "Total backfilled log rows committed to the store",
		},
	)

	ProjectionsComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "growlog_projections_total",
			Help: "Total derived-state projections computed",
		},
	)

	CatchupRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growlog_catchup_runs_total",
			Help: "Total catchup passes, by outcome",
		},
		[]string{"result"},
	)
)
