package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchTotal counts enrichment fetches by source (weather, market, prediction) and outcome.
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_dashboard_fetch_total",
			Help: "Total number of upstream fetches by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crop_dashboard_fetch_duration_seconds",
			Help:    "Duration of upstream fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// StaleDiscards counts responses dropped because a newer request superseded them.
	StaleDiscards = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_dashboard_stale_discards_total",
			Help: "Responses discarded at merge time because a newer request superseded them",
		},
		[]string{"source"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_dashboard_cache_lookups_total",
			Help: "Response cache lookups by source and result",
		},
		[]string{"source", "result"},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "crop_dashboard_sessions_active",
			Help: "Number of live dashboard sessions",
		},
	)

	PDFExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crop_dashboard_pdf_exports_total",
			Help: "PDF exports by outcome",
		},
		[]string{"outcome"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)
