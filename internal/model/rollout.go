package model

//
// Rollout states, verdicts and TRR modes
//

import "fmt"

// RolloutState is the state of the DoH rollout. Exactly one value is
// current at any time and it determines the TRR mode we write.
type RolloutState string

const (
	// StateUninstalled means that all the managed preferences are cleared.
	StateUninstalled = RolloutState("uninstalled")

	// StateDisabled means that the heuristics decided to disable DoH.
	StateDisabled = RolloutState("disabled")

	// StateEnabled means that the heuristics decided to enable DoH.
	StateEnabled = RolloutState("enabled")

	// StateUIOk means that the user accepted the doorhanger.
	StateUIOk = RolloutState("UIOk")

	// StateUIDisabled means that the user declined the doorhanger.
	StateUIDisabled = RolloutState("UIDisabled")

	// StateUITimeout means that the doorhanger was never answered.
	StateUITimeout = RolloutState("UITimeout")
)

// AllRolloutStates lists all the valid rollout states.
var AllRolloutStates = []RolloutState{
	StateUninstalled,
	StateDisabled,
	StateEnabled,
	StateUIOk,
	StateUIDisabled,
	StateUITimeout,
}

// ParseRolloutState converts a string to a RolloutState.
func ParseRolloutState(s string) (RolloutState, error) {
	for _, state := range AllRolloutStates {
		if string(state) == s {
			return state, nil
		}
	}
	return "", fmt.Errorf("invalid rollout state: %q", s)
}

// Verdict is the outcome of a single probe or of a whole evaluation.
type Verdict string

const (
	// VerdictEnable means that DoH may be enabled.
	VerdictEnable = Verdict("enable_doh")

	// VerdictDisable means that DoH must be disabled.
	VerdictDisable = Verdict("disable_doh")

	// VerdictNoPolicySet is the enterprise policy probe result when there
	// are no active policies. It does not prevent enabling DoH.
	VerdictNoPolicySet = Verdict("no_policy_set")
)

// TRRMode is the value of the network.trr.mode preference.
type TRRMode int64

const (
	// TRRModeOff is the default mode: DoH is off.
	TRRModeOff = TRRMode(0)

	// TRRModeEnabled means DoH is on with native fallback.
	TRRModeEnabled = TRRMode(2)

	// TRRModeForced means DoH only, usually set by an administrator.
	TRRModeForced = TRRMode(3)

	// TRRModeOptedOut means that the user explicitly rejected DoH.
	TRRModeOptedOut = TRRMode(5)
)

// PromptDecision is the decision recorded for a doorhanger.
type PromptDecision string

const (
	// DecisionNone means that no decision has been recorded yet.
	DecisionNone = PromptDecision("")

	// DecisionUIOk means that the user accepted the prompt.
	DecisionUIOk = PromptDecision("UIOk")

	// DecisionUIDisabled means that the user declined the prompt.
	DecisionUIDisabled = PromptDecision("UIDisabled")

	// DecisionTimeout means that we inferred that the prompt timed out.
	DecisionTimeout = PromptDecision("timeout")
)
