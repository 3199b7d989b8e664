package heuristics

//
// Metrics definitions
//

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsSummaryObjectives returns the summary objectives for promauto.NewSummary.
func metricsSummaryObjectives() map[float64]float64 {
	return map[float64]float64{
		0.25: 0.010,
		0.5:  0.010,
		0.75: 0.010,
		0.9:  0.010,
		0.99: 0.001,
	}
}

var (
	// metricEvaluationsCount counts the evaluations by reason and verdict.
	metricEvaluationsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dohrollout_heuristics_evaluations_count",
		Help: "Total number of heuristics evaluations",
	}, []string{"reason", "verdict"})

	// metricProbeFailuresCount counts the probes that could not complete.
	metricProbeFailuresCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dohrollout_heuristics_probe_failures_count",
		Help: "Total number of probes that failed for reasons other than NXDOMAIN",
	}, []string{"probe"})

	// metricEvaluationDurationSeconds summarizes the duration of an evaluation.
	metricEvaluationDurationSeconds = promauto.NewSummary(prometheus.SummaryOpts{
		Name:       "dohrollout_heuristics_evaluation_duration_seconds",
		Help:       "Summarizes the time to run all the heuristics (in seconds)",
		Objectives: metricsSummaryObjectives(),
	})
)
