// Package telemetry contains the sinks recording the rollout events.
package telemetry

import (
	"sort"
	"strings"

	"github.com/ooni/dohrollout/internal/model"
)

// Event is a telemetry event.
type Event struct {
	Category string
	Method   string
	Object   string
	Value    string
	Extra    map[string]string
}

// String formats the event on a single line with sorted extra keys.
func (ev *Event) String() string {
	var b strings.Builder
	b.WriteString(ev.Category)
	b.WriteString(".")
	b.WriteString(ev.Method)
	b.WriteString(".")
	b.WriteString(ev.Object)
	b.WriteString(" ")
	b.WriteString(ev.Value)
	keys := make([]string, 0, len(ev.Extra))
	for key := range ev.Extra {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(ev.Extra[key])
	}
	return b.String()
}

// MultiSink sends each event to all the sinks it contains.
type MultiSink []model.TelemetrySink

var _ model.TelemetrySink = MultiSink{}

// RecordEvent implements model.TelemetrySink.
func (ms MultiSink) RecordEvent(category, method, object, value string, extra map[string]string) {
	for _, sink := range ms {
		if sink != nil {
			sink.RecordEvent(category, method, object, value, extra)
		}
	}
}

// LoggerSink writes events using a logger.
type LoggerSink struct {
	Logger model.Logger
}

var _ model.TelemetrySink = &LoggerSink{}

// RecordEvent implements model.TelemetrySink.
func (ls *LoggerSink) RecordEvent(category, method, object, value string, extra map[string]string) {
	ev := &Event{
		Category: category,
		Method:   method,
		Object:   object,
		Value:    value,
		Extra:    extra,
	}
	model.ValidLoggerOrDefault(ls.Logger).Infof("telemetry: %s", ev.String())
}
