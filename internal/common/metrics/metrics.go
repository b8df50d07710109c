// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_turns_total",
			Help: "Total number of conversation turns by outcome",
		},
		[]string{"outcome"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"stage"},
	)

	GenerationFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_generation_fallbacks_total",
			Help: "Number of times a stage substituted its fallback reply for a failed generation",
		},
		[]string{"stage"},
	)

	EvidenceItems = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_evidence_items",
			Help:    "Number of evidence items gathered per bundle",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32},
		},
		[]string{"topic", "source"},
	)

	SearchFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_search_failures_total",
			Help: "Number of failed web search calls per category",
		},
		[]string{"category"},
	)

	SessionStoreFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_session_store_failures_total",
			Help: "Number of failed session store operations by operation",
		},
		[]string{"op"},
	)

	TurnsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_turns_active",
			Help: "Number of turns currently being processed",
		},
	)
)
