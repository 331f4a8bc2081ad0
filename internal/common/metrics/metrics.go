// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_pipeline_runs_total",
			Help: "Total number of pipeline runs by final state",
		},
		[]string{"state"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "rfq_pipeline_stage_duration_seconds",
			Help: "Duration of each pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	MatchesScored = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rfq_matches_per_run",
			Help:    "Matches above threshold per pipeline run",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_notifications_sent_total",
			Help: "Total number of notifications delivered by channel",
		},
		[]string{"channel"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfq_notifications_failed_total",
			Help: "Total number of notifications that exhausted their attempts",
		},
		[]string{"channel", "error_code"},
	)
)
