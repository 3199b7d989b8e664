// Package heuristics runs the probes deciding whether DoH can be enabled
// on the current network and reduces their results to a single verdict.
package heuristics

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ooni/dohrollout/internal/model"
	"github.com/ooni/dohrollout/internal/runtimex"
)

// Results maps each probe name to its verdict.
type Results map[string]model.Verdict

// Keys returns the probe names in alphabetical order.
func (r Results) Keys() (out []string) {
	for key := range r {
		out = append(out, key)
	}
	sort.Strings(out)
	return
}

// Aggregate reduces the results to a single verdict. The verdict is
// VerdictDisable if any probe says so and VerdictEnable otherwise.
func Aggregate(results Results) model.Verdict {
	for _, verdict := range results {
		if verdict == model.VerdictDisable {
			return model.VerdictDisable
		}
	}
	return model.VerdictEnable
}

// Config contains the dependencies of the Engine.
type Config struct {
	// Resolver is the MANDATORY resolver bypassing DoH.
	Resolver model.DNSResolver

	// Policy is the MANDATORY policy oracle.
	Policy model.PolicyOracle

	// Prefs is the MANDATORY preference store.
	Prefs model.PreferenceStore

	// Suffixes is the OPTIONAL source of DNS search suffixes. When
	// nil, we do not run the split-horizon probe.
	Suffixes model.DNSSuffixSource

	// Telemetry is the OPTIONAL telemetry sink.
	Telemetry model.TelemetrySink

	// Logger is the OPTIONAL logger.
	Logger model.Logger
}

// Engine runs the heuristics. Make sure you use NewEngine.
type Engine struct {
	logger    model.Logger
	policy    model.PolicyOracle
	prefs     model.PreferenceStore
	probes    []*probe
	resolver  model.DNSResolver
	suffixes  model.DNSSuffixSource
	telemetry model.TelemetrySink
}

// NewEngine creates a new Engine.
func NewEngine(config *Config) *Engine {
	runtimex.PanicIfNil(config.Resolver, "passed nil Resolver")
	runtimex.PanicIfNil(config.Policy, "passed nil Policy")
	runtimex.PanicIfNil(config.Prefs, "passed nil Prefs")
	e := &Engine{
		logger:    model.ValidLoggerOrDefault(config.Logger),
		policy:    config.Policy,
		prefs:     config.Prefs,
		resolver:  config.Resolver,
		suffixes:  config.Suffixes,
		telemetry: config.Telemetry,
	}
	if e.telemetry == nil {
		e.telemetry = model.DiscardTelemetry
	}
	e.probes = defaultProbes(e.suffixes != nil)
	return e
}

// Evaluate runs all the probes to completion and returns the aggregate
// verdict along with each probe's verdict. The reason is an opaque tag
// that we only include into the telemetry event.
func (e *Engine) Evaluate(ctx context.Context, reason string) (model.Verdict, Results) {
	t0 := time.Now()
	results := make(Results)
	mu := &sync.Mutex{}
	wg := &sync.WaitGroup{}
	for _, p := range e.probes {
		wg.Add(1)
		go func(p *probe) {
			defer wg.Done()
			verdict := p.run(ctx, e)
			mu.Lock()
			results[p.name] = verdict
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	verdict := Aggregate(results)
	metricEvaluationsCount.WithLabelValues(reason, string(verdict)).Inc()
	metricEvaluationDurationSeconds.Observe(time.Since(t0).Seconds())
	for _, name := range results.Keys() {
		e.logger.Debugf("heuristics: %s => %s", name, results[name])
	}
	e.logger.Infof("heuristics: evaluation (%s) => %s", reason, verdict)
	e.sendEvaluatePing(verdict, results, reason)
	return verdict, results
}

func (e *Engine) sendEvaluatePing(verdict model.Verdict, results Results, reason string) {
	extra := make(map[string]string)
	for name, value := range results {
		extra[name] = string(value)
	}
	extra["evaluateReason"] = reason
	e.telemetry.RecordEvent("doh", "evaluate", "heuristics", string(verdict), extra)
}
