// Package orchestrator wires captive portal readiness, debounced network
// changes, prompt responses and the kill switch into the rollout engine.
package orchestrator

import (
	"context"
	"errors"

	"github.com/ooni/dohrollout/internal/debounce"
	"github.com/ooni/dohrollout/internal/heuristics"
	"github.com/ooni/dohrollout/internal/model"
	"github.com/ooni/dohrollout/internal/rollout"
	"github.com/ooni/dohrollout/internal/runtimex"
)

// Evaluator runs the heuristics.
type Evaluator interface {
	Evaluate(ctx context.Context, reason string) (model.Verdict, heuristics.Results)
}

var _ Evaluator = &heuristics.Engine{}

// Reasons for evaluating the heuristics.
const (
	ReasonFirstRun  = "first_run"
	ReasonStartup   = "startup"
	ReasonNetChange = "netChange"
)

// ErrNotOnline indicates that the captive portal state does not
// allow us to run the heuristics.
var ErrNotOnline = errors.New("orchestrator: not online")

// ErrInactive indicates that the kill switch is off.
var ErrInactive = errors.New("orchestrator: disabled by " + rollout.PrefEnabled)

// Config contains the Orchestrator dependencies.
type Config struct {
	// StateMachine is the MANDATORY state machine.
	StateMachine *rollout.StateMachine

	// Doorhanger is the MANDATORY doorhanger workflow.
	Doorhanger *rollout.Doorhanger

	// Heuristics is the MANDATORY heuristics evaluator.
	Heuristics Evaluator

	// CaptivePortal is the MANDATORY captive portal source.
	CaptivePortal model.CaptivePortal

	// Network is the MANDATORY network change notifier.
	Network model.NetworkNotifier

	// Prefs is the MANDATORY preference store.
	Prefs model.PreferenceStore

	// Debouncer is the OPTIONAL debouncer. When nil, we create one
	// using the default window and Network.IsLinkUp.
	Debouncer *debounce.Debouncer

	// Logger is the OPTIONAL logger.
	Logger model.Logger
}

// Orchestrator drives the rollout engine. All the engine operations
// run on the goroutine calling Run or RunOnce, hence they never
// run concurrently with each other.
type Orchestrator struct {
	active      bool
	captive     model.CaptivePortal
	cancel      context.CancelFunc
	debouncer   *debounce.Debouncer
	doorhanger  *rollout.Doorhanger
	evaluator   Evaluator
	firstRun    bool
	logger      model.Logger
	network     model.NetworkNotifier
	prefs       model.PreferenceStore
	sessionCtx  context.Context
	sm          *rollout.StateMachine
	startupDone bool
}

// New creates a new Orchestrator.
func New(config *Config) *Orchestrator {
	runtimex.PanicIfNil(config.StateMachine, "passed nil StateMachine")
	runtimex.PanicIfNil(config.Doorhanger, "passed nil Doorhanger")
	runtimex.PanicIfNil(config.Heuristics, "passed nil Heuristics")
	runtimex.PanicIfNil(config.CaptivePortal, "passed nil CaptivePortal")
	runtimex.PanicIfNil(config.Network, "passed nil Network")
	runtimex.PanicIfNil(config.Prefs, "passed nil Prefs")
	o := &Orchestrator{
		captive:    config.CaptivePortal,
		debouncer:  config.Debouncer,
		doorhanger: config.Doorhanger,
		evaluator:  config.Heuristics,
		logger:     model.ValidLoggerOrDefault(config.Logger),
		network:    config.Network,
		prefs:      config.Prefs,
		sm:         config.StateMachine,
	}
	if o.debouncer == nil {
		o.debouncer = debounce.New(config.Network.IsLinkUp)
	}
	return o
}

// Run runs the event loop until the context is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	prefChanges := o.prefs.Changes(ctx)
	captiveChanges := o.captive.Changes(ctx)
	networkEvents := o.debouncer.Filter(ctx, o.network.Events(ctx))
	promptEvents := o.doorhanger.Events()

	if err := o.maybeActivate(ctx); err != nil {
		o.logger.Warnf("orchestrator: activation: %s", err.Error())
	}
	if o.active {
		o.maybeStartup(ctx, o.captive.State(ctx))
	}

	for {
		select {
		case <-ctx.Done():
			o.stopSession()
			return nil

		case name, good := <-prefChanges:
			if !good {
				prefChanges = nil
				continue
			}
			if name == rollout.PrefEnabled {
				o.onKillSwitch(ctx)
			}

		case state, good := <-captiveChanges:
			if !good {
				captiveChanges = nil
				continue
			}
			o.logger.Debugf("orchestrator: captive portal state: %s", state)
			if o.active {
				o.maybeStartup(ctx, state)
			}

		case kind, good := <-networkEvents:
			if !good {
				networkEvents = nil
				continue
			}
			o.logger.Debugf("orchestrator: network event: %s", kind)
			if o.active && o.startupDone {
				o.pass(ctx, ReasonNetChange)
			}

		case ev := <-promptEvents:
			if !o.active {
				continue
			}
			if err := o.doorhanger.Handle(ctx, ev); err != nil {
				o.logger.Warnf("orchestrator: doorhanger: %s", err.Error())
			}
		}
	}
}

// RunOnce activates the engine and performs the startup pass without
// entering the event loop. If that pass shows the doorhanger, we wait
// for the user to answer or for the doorhanger to expire.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	defer o.stopSession()
	if err := o.maybeActivate(ctx); err != nil {
		return err
	}
	if !o.active {
		return ErrInactive
	}
	if !o.captive.State(ctx).IsOnline() {
		return ErrNotOnline
	}
	o.maybeStartup(ctx, model.CaptivePortalNotCaptive)
	for o.doorhanger.Pending() != "" {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-o.doorhanger.Events():
			if err := o.doorhanger.Handle(ctx, ev); err != nil {
				return err
			}
		}
	}
	return nil
}

func (o *Orchestrator) killSwitchOn() bool {
	enabled, err := o.prefs.GetBoolPref(rollout.PrefEnabled, true)
	if err != nil {
		o.logger.Warnf("orchestrator: %s: %s", rollout.PrefEnabled, err.Error())
		return true
	}
	return enabled
}

func (o *Orchestrator) maybeActivate(ctx context.Context) error {
	if !o.killSwitchOn() {
		o.logger.Infof("orchestrator: %s is false", rollout.PrefEnabled)
		return nil
	}
	return o.activate(ctx)
}

// activate recovers an interrupted doorhanger and performs the first
// run checks. When the user configured DoH before we ever ran, we
// respect that choice and never run the heuristics.
func (o *Orchestrator) activate(ctx context.Context) error {
	o.active = true
	o.startupDone = false
	if err := o.sm.RecoverDecision(); err != nil {
		return err
	}
	first, err := o.sm.IsFirstRun()
	if err != nil {
		return err
	}
	o.firstRun = first
	if !first {
		return nil
	}
	userValue, err := o.prefs.PrefHasUserValue(rollout.PrefTRRMode)
	if err != nil {
		return err
	}
	if userValue {
		o.logger.Infof("orchestrator: %s was already set by the user", rollout.PrefTRRMode)
		if err := o.sm.DisableHeuristicsPermanently(); err != nil {
			return err
		}
	}
	return o.sm.MarkFirstRunDone()
}

func (o *Orchestrator) deactivate() {
	o.stopSession()
	o.active = false
	o.startupDone = false
	if err := o.sm.Deactivate(); err != nil {
		o.logger.Warnf("orchestrator: deactivate: %s", err.Error())
	}
}

func (o *Orchestrator) onKillSwitch(ctx context.Context) {
	enabled := o.killSwitchOn()
	switch {
	case enabled && !o.active:
		o.logger.Infof("orchestrator: %s turned on", rollout.PrefEnabled)
		if err := o.activate(ctx); err != nil {
			o.logger.Warnf("orchestrator: activation: %s", err.Error())
			return
		}
		o.maybeStartup(ctx, o.captive.State(ctx))
	case !enabled && o.active:
		o.logger.Infof("orchestrator: %s turned off", rollout.PrefEnabled)
		o.deactivate()
	}
}

// maybeStartup runs the startup pass once we are online.
func (o *Orchestrator) maybeStartup(ctx context.Context, state model.CaptivePortalState) {
	if o.startupDone || !state.IsOnline() {
		return
	}
	o.startupDone = true
	reason := ReasonStartup
	if o.firstRun {
		reason = ReasonFirstRun
	}
	o.pass(ctx, reason)
}

// pass runs the heuristics, if allowed, and applies the verdict. Errors
// only abort this pass: the next trigger retries from scratch.
func (o *Orchestrator) pass(ctx context.Context, reason string) {
	run, err := o.sm.ShouldRunHeuristics()
	if err != nil {
		o.logger.Warnf("orchestrator: %s: %s", reason, err.Error())
		return
	}
	if !run {
		o.logger.Infof("orchestrator: %s: heuristics are disabled", reason)
		return
	}
	verdict, _ := o.evaluator.Evaluate(ctx, reason)
	if err := o.doorhanger.MaybePrompt(o.session(ctx), verdict); err != nil {
		o.logger.Warnf("orchestrator: %s: %s", reason, err.Error())
	}
}

// session returns the context bounding the lifetime of prompts, which
// we cancel when deactivating.
func (o *Orchestrator) session(ctx context.Context) context.Context {
	if o.cancel != nil {
		return o.sessionCtx
	}
	o.sessionCtx, o.cancel = context.WithCancel(ctx)
	return o.sessionCtx
}

func (o *Orchestrator) stopSession() {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
		o.sessionCtx = nil
	}
	o.doorhanger.Forget()
}
