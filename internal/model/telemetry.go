package model

// TelemetrySink records telemetry events. Delivery is best effort.
type TelemetrySink interface {
	RecordEvent(category, method, object, value string, extra map[string]string)
}

// DiscardTelemetry is a TelemetrySink that discards events.
var DiscardTelemetry TelemetrySink = telemetryDiscarder{}

type telemetryDiscarder struct{}

// RecordEvent implements TelemetrySink.
func (telemetryDiscarder) RecordEvent(category, method, object, value string, extra map[string]string) {
}
