package telemetry

import (
	"github.com/ooni/dohrollout/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEventsCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dohrollout_telemetry_events_count",
		Help: "Number of telemetry events by method, object and value",
	}, []string{"method", "object", "value"})

	metricJournalFailuresCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dohrollout_telemetry_journal_failures_count",
		Help: "Number of telemetry events we could not journal",
	})
)

// MetricsSink counts events using prometheus.
type MetricsSink struct{}

var _ model.TelemetrySink = MetricsSink{}

// RecordEvent implements model.TelemetrySink.
func (MetricsSink) RecordEvent(category, method, object, value string, extra map[string]string) {
	metricEventsCount.WithLabelValues(method, object, value).Inc()
}
