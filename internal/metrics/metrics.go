package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for RecommendationsTotal.
const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeBlocked = "blocked"
	OutcomeFailed  = "failed"
)

var (
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "course_planner_recommendations_total",
			Help: "Recommendation calls by outcome",
		},
		[]string{"outcome"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "course_planner_recommendation_duration_seconds",
			Help:    "End-to-end duration of recommendation calls",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 45, 60, 90},
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "course_planner_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	FragmentsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "course_planner_fragments_skipped_total",
			Help: "Record fragments dropped because they could not be read",
		},
	)

	RecordsReturned = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "course_planner_records_returned",
			Help:    "Number of course records returned per call",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 8, 12},
		},
	)

	StreamClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "course_planner_stream_clients",
			Help: "Connected websocket state stream clients",
		},
	)
)

// RecordCall records the outcome and duration of one recommendation call.
func RecordCall(outcome string, elapsed time.Duration, records int) {
	RecommendationsTotal.WithLabelValues(outcome).Inc()
	RecommendationDuration.Observe(elapsed.Seconds())
	if outcome != OutcomeFailed {
		RecordsReturned.Observe(float64(records))
	}
}

// RecordStage records how long a named pipeline stage took.
func RecordStage(stage string, elapsed time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordSkipped adds n dropped fragments.
func RecordSkipped(n int) {
	if n > 0 {
		FragmentsSkipped.Add(float64(n))
	}
}
