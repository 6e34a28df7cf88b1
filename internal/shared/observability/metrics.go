package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	CandidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unpack_candidates_total",
		Help: "Candidates submitted to the pipeline by outcome (ok or failure class).",
	}, []string{"outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "unpack_stage_seconds",
		Help:    "Time spent in one pipeline stage for one candidate.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "unpack_batch_seconds",
		Help:    "Wall time of a complete ingestion batch.",
		Buckets: prometheus.DefBuckets,
	})

	LoadAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unpack_load_attempts_total",
		Help: "Content read attempts by result.",
	}, []string{"result"})

	OracleRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unpack_oracle_requests_total",
		Help: "Semantic oracle calls by result (ok, error, fallback, cache_hit).",
	}, []string{"result"})

	OracleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "unpack_oracle_seconds",
		Help:    "Latency of semantic oracle calls.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	})

	TreeFiles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unpack_tree_files",
		Help: "Processed files currently held by the file tree.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unpack_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RecordsSavedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unpack_records_saved_total",
		Help: "Processed files persisted to the records store.",
	})
)
