package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sightline_ticks_total",
		Help: "Total capture-loop ticks fired",
	})

	TicksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sightline_ticks_skipped_total",
		Help: "Ticks dropped without sending a request, by reason",
	}, []string{"reason"})

	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sightline_analyses_total",
		Help: "Frame analyses attempted, by outcome",
	}, []string{"outcome"})

	AnalyzeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sightline_analyze_duration_seconds",
		Help:    "Wall-clock duration of one capture-encode-analyze cycle",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	})

	NarrationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sightline_narrations_total",
		Help: "Utterances handed to the narrator",
	})
)

// Skip reasons.
const (
	SkipInFlight  = "in_flight"
	SkipNotReady  = "not_ready"
	SkipNoFrame   = "no_frame"
	SkipAbandoned = "abandoned"
)
