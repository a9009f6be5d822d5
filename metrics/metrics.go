package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts ingest invocations by outcome (success, failure).
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlc_ingest_requests_total",
			Help: "Total number of ingest invocations by outcome",
		},
		[]string{"status"},
	)

	// ErrorsTotal counts failed invocations by pipeline stage.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlc_ingest_errors_total",
			Help: "Total number of failed invocations by error kind",
		},
		[]string{"kind"},
	)

	RowsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlc_ingest_rows_total",
			Help: "Trip rows decoded from source files",
		},
		[]string{"taxi_type"},
	)

	ShardsUploadedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tlc_ingest_shards_uploaded_total",
			Help: "Weekly shards uploaded to the object store",
		},
		[]string{"taxi_type", "backend"},
	)

	ShardBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tlc_ingest_shard_bytes",
			Help:    "Size of uploaded parquet shards in bytes",
			Buckets: prometheus.ExponentialBuckets(64*1024, 2, 12),
		},
		[]string{"taxi_type"},
	)

	StageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tlc_ingest_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// InFlight is 1 while an invocation is running.
	InFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tlc_ingest_in_flight",
			Help: "Ingest invocations currently running",
		},
	)
)
