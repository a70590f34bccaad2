// Package metrics holds the Prometheus collectors shared across components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ForecastCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helios_forecast_cache_hits_total",
			Help: "Forecast requests served from the in-process cache",
		},
	)

	ForecastCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helios_forecast_cache_misses_total",
			Help: "Forecast requests that had to call the provider",
		},
	)

	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_provider_calls_total",
			Help: "Outbound provider calls",
		},
		[]string{"provider", "status"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "helios_provider_latency_seconds",
			Help:    "Outbound provider call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	RecordsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_records_ingested_total",
			Help: "Telemetry records persisted from uploads",
		},
		[]string{"kind"},
	)

	UploadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_upload_failures_total",
			Help: "Uploads rejected before persistence",
		},
		[]string{"kind"},
	)

	TrainingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_training_runs_total",
			Help: "Training pipeline executions",
		},
		[]string{"status"},
	)

	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helios_training_duration_seconds",
			Help:    "Wall-clock duration of training runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	PredictionsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helios_predictions_served_total",
			Help: "Prediction records returned to clients",
		},
		[]string{"source"},
	)
)
