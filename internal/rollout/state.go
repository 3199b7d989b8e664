// Package rollout contains the rollout state machine, which is the only
// component writing the DoH mode preference, and the doorhanger workflow
// asking the user to confirm that DoH should be enabled.
package rollout

import (
	"context"

	"github.com/ooni/dohrollout/internal/broadcast"
	"github.com/ooni/dohrollout/internal/model"
	"github.com/ooni/dohrollout/internal/optional"
	"github.com/ooni/dohrollout/internal/runtimex"
)

// Config contains the dependencies of the StateMachine.
type Config struct {
	// Flags is the MANDATORY store of the persisted flags.
	Flags model.KeyValueStore

	// Prefs is the MANDATORY preference store.
	Prefs model.PreferenceStore

	// Telemetry is the OPTIONAL telemetry sink.
	Telemetry model.TelemetrySink

	// Logger is the OPTIONAL logger.
	Logger model.Logger
}

// StateMachine holds the rollout state. Its methods are not meant to be
// called concurrently: the caller must serialize them.
type StateMachine struct {
	flags     *flags
	logger    model.Logger
	prefs     model.PreferenceStore
	prompts   broadcast.Hub[model.PromptDecision]
	states    broadcast.Hub[model.RolloutState]
	telemetry model.TelemetrySink
}

// NewStateMachine creates a new StateMachine.
func NewStateMachine(config *Config) *StateMachine {
	runtimex.PanicIfNil(config.Flags, "passed nil Flags")
	runtimex.PanicIfNil(config.Prefs, "passed nil Prefs")
	sm := &StateMachine{
		flags:     &flags{kvs: config.Flags},
		logger:    model.ValidLoggerOrDefault(config.Logger),
		prefs:     config.Prefs,
		telemetry: config.Telemetry,
	}
	if sm.telemetry == nil {
		sm.telemetry = model.DiscardTelemetry
	}
	return sm
}

// modeForState returns the TRR mode implied by a state. The returned
// bool is false for StateUninstalled, where we clear the preference.
func modeForState(state model.RolloutState) (model.TRRMode, bool) {
	switch state {
	case model.StateUninstalled:
		return model.TRRModeOff, false
	case model.StateEnabled, model.StateUIOk, model.StateUITimeout:
		return model.TRRModeEnabled, true
	case model.StateUIDisabled:
		return model.TRRModeOptedOut, true
	default:
		return model.TRRModeOff, true
	}
}

// SetState writes the TRR mode implied by state, persists the state and
// the mode we wrote (the baseline for drift detection), then emits the
// state telemetry event and notifies the subscribers.
func (sm *StateMachine) SetState(state model.RolloutState) error {
	mode, set := modeForState(state)
	if set {
		if err := sm.prefs.SetIntPref(PrefTRRMode, int64(mode)); err != nil {
			return err
		}
	} else {
		if err := sm.prefs.ClearUserPref(PrefTRRMode); err != nil {
			return err
		}
	}
	if err := sm.flags.set(KeyState, string(state)); err != nil {
		return err
	}
	if err := sm.flags.set(KeyPreviousTRRMode, int64(mode)); err != nil {
		return err
	}
	sm.logger.Infof("rollout: state => %s (%s=%d)", state, PrefTRRMode, mode)
	sm.telemetry.RecordEvent("doh", "state", string(state), "null", nil)
	sm.states.Send(state)
	return nil
}

// State returns the current state, which is None before the
// first call to SetState.
func (sm *StateMachine) State() (optional.Value[model.RolloutState], error) {
	return sm.flags.getState()
}

// Subscribe returns a channel receiving every state we set. The
// channel is closed when the context is done.
func (sm *StateMachine) Subscribe(ctx context.Context) <-chan model.RolloutState {
	return sm.states.Subscribe(ctx)
}

// SubscribePromptResolved returns a channel receiving the decision of the
// doorhanger when it is resolved. The channel is closed when the context is done.
func (sm *StateMachine) SubscribePromptResolved(ctx context.Context) <-chan model.PromptDecision {
	return sm.prompts.Subscribe(ctx)
}

// Snapshot returns a copy of the persisted flags.
func (sm *StateMachine) Snapshot() (*Snapshot, error) {
	return sm.flags.snapshot()
}

// HeuristicsDisabled returns whether heuristics are permanently disabled.
func (sm *StateMachine) HeuristicsDisabled() (bool, error) {
	return sm.flags.getBool(KeyDisableHeuristics)
}

// DisableHeuristicsPermanently makes sure we never evaluate
// heuristics again for this installation.
func (sm *StateMachine) DisableHeuristicsPermanently() error {
	sm.logger.Info("rollout: disabling heuristics permanently")
	return sm.flags.set(KeyDisableHeuristics, true)
}

// IsFirstRun returns whether this is the first activation.
func (sm *StateMachine) IsFirstRun() (bool, error) {
	done, err := sm.flags.getBool(KeyDoneFirstRun)
	return !done, err
}

// MarkFirstRunDone records that the first activation happened.
func (sm *StateMachine) MarkFirstRunDone() error {
	return sm.flags.set(KeyDoneFirstRun, true)
}

// ShouldRunHeuristics returns false once heuristics are permanently
// disabled. Otherwise, it compares the TRR mode we last wrote with the
// live one. A difference means that the user or an administrator changed
// the mode behind our back: we disable heuristics permanently and adopt
// the live mode as the new baseline. The forced and opted out modes
// always disable heuristics permanently.
func (sm *StateMachine) ShouldRunHeuristics() (bool, error) {
	disabled, err := sm.HeuristicsDisabled()
	if err != nil || disabled {
		return false, err
	}
	previous, err := sm.flags.getInt(KeyPreviousTRRMode)
	if err != nil {
		return false, err
	}
	live, err := sm.prefs.GetIntPref(PrefTRRMode, int64(model.TRRModeOff))
	if err != nil {
		return false, err
	}
	if !previous.IsNone() && previous.Unwrap() != live {
		sm.logger.Infof("rollout: %s changed from %d to %d behind our back",
			PrefTRRMode, previous.Unwrap(), live)
		if err := sm.DisableHeuristicsPermanently(); err != nil {
			return false, err
		}
		return false, sm.flags.set(KeyPreviousTRRMode, live)
	}
	switch model.TRRMode(live) {
	case model.TRRModeForced, model.TRRModeOptedOut:
		sm.logger.Infof("rollout: %s=%d is reserved to the user", PrefTRRMode, live)
		return false, sm.DisableHeuristicsPermanently()
	}
	return true, nil
}

// PromptStatus returns the status of the doorhanger.
func (sm *StateMachine) PromptStatus() (PromptStatus, error) {
	shown, err := sm.flags.getBool(KeyDoorhangerShown)
	if err != nil {
		return PromptStatus{}, err
	}
	pingSent, err := sm.flags.getBool(KeyDoorhangerPingSent)
	if err != nil {
		return PromptStatus{}, err
	}
	decision, err := sm.flags.getDecision()
	if err != nil {
		return PromptStatus{}, err
	}
	return derivePromptStatus(shown, pingSent, decision), nil
}

// MarkDoorhangerShown records that the doorhanger is outstanding.
func (sm *StateMachine) MarkDoorhangerShown() error {
	return sm.flags.set(KeyDoorhangerShown, true)
}

// ShouldShowDoorhanger returns whether we never showed the doorhanger. If
// the doorhanger is outstanding, we presume it timed out and resolve it as
// such before answering. An interrupted resolution is completed instead.
func (sm *StateMachine) ShouldShowDoorhanger() (bool, error) {
	status, err := sm.PromptStatus()
	if err != nil {
		return false, err
	}
	switch {
	case status.Kind == PromptShown:
		if _, err := sm.ResolvePrompt(model.DecisionTimeout); err != nil {
			return false, err
		}
	case status.Kind == PromptResolved && !status.Reported:
		if _, err := sm.ResolvePrompt(status.Decision); err != nil {
			return false, err
		}
	}
	return status.Kind == PromptNotShown, nil
}

// ResolvePrompt resolves the doorhanger with the given decision and returns
// whether this call performed the resolution. A doorhanger resolves at most
// once: when the ping-sent flag is already set we do nothing. When we find
// a decision that was recorded but not reported, we complete that decision
// instead of the one passed as argument.
//
// The flags are durable before we change the state and emit telemetry, so
// that a restart never resolves the same doorhanger twice. A timeout only
// sets the state when ShouldRunHeuristics allows it.
func (sm *StateMachine) ResolvePrompt(decision model.PromptDecision) (bool, error) {
	status, err := sm.PromptStatus()
	if err != nil {
		return false, err
	}
	if status.Kind == PromptResolved {
		if status.Reported {
			sm.logger.Debugf("rollout: doorhanger already resolved: %s", status)
			return false, nil
		}
		decision = status.Decision
	}
	if err := sm.flags.set(KeyDoorhangerDecision, string(decision)); err != nil {
		return false, err
	}
	if err := sm.flags.set(KeyDoorhangerPingSent, true); err != nil {
		return false, err
	}
	if decision == model.DecisionUIDisabled {
		if err := sm.DisableHeuristicsPermanently(); err != nil {
			return false, err
		}
	}
	// a timeout is not a user choice, so it must not override a mode
	// the user changed while the doorhanger was outstanding
	apply := true
	if decision == model.DecisionTimeout {
		run, err := sm.ShouldRunHeuristics()
		if err != nil {
			return false, err
		}
		apply = run
	}
	if apply {
		if err := sm.SetState(stateForDecision(decision)); err != nil {
			return false, err
		}
	} else {
		sm.logger.Infof("rollout: leaving %s alone after the doorhanger timeout", PrefTRRMode)
	}
	sm.logger.Infof("rollout: doorhanger resolved: %s", decision)
	sm.telemetry.RecordEvent("doh", "doorhanger", string(decision), "null", nil)
	sm.prompts.Send(decision)
	return true, nil
}

// RecoverDecision brings the flags back to a consistent state at activation,
// before any other flag is read. An outstanding doorhanger cannot belong to
// this session, so it timed out. An interrupted resolution is completed. A
// reported decline whose state was never applied is applied again.
func (sm *StateMachine) RecoverDecision() error {
	status, err := sm.PromptStatus()
	if err != nil {
		return err
	}
	switch {
	case status.Kind == PromptShown:
		_, err := sm.ResolvePrompt(model.DecisionTimeout)
		return err
	case status.Kind == PromptResolved && !status.Reported:
		_, err := sm.ResolvePrompt(status.Decision)
		return err
	case status.Kind == PromptResolved && status.Decision == model.DecisionUIDisabled:
		state, err := sm.State()
		if err != nil {
			return err
		}
		if state.UnwrapOr("") == model.StateUIDisabled {
			return nil
		}
		sm.logger.Info("rollout: applying the recorded doorhanger decline")
		if err := sm.DisableHeuristicsPermanently(); err != nil {
			return err
		}
		return sm.SetState(model.StateUIDisabled)
	default:
		return nil
	}
}

// Deactivate handles the kill switch being turned off. We turn DoH off
// unless heuristics are permanently disabled, in which case the mode
// belongs to the user and we leave it alone.
func (sm *StateMachine) Deactivate() error {
	disabled, err := sm.HeuristicsDisabled()
	if err != nil {
		return err
	}
	if disabled {
		sm.logger.Info("rollout: deactivating without touching the user's choice")
		return nil
	}
	return sm.SetState(model.StateDisabled)
}

// Uninstall clears the managed preferences and all the persisted
// flags, leaving the state set to StateUninstalled.
func (sm *StateMachine) Uninstall() error {
	if err := sm.SetState(model.StateUninstalled); err != nil {
		return err
	}
	for _, key := range flagKeys {
		if err := sm.flags.kvs.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
