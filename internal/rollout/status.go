package rollout

import (
	"fmt"

	"github.com/ooni/dohrollout/internal/model"
)

// PromptStatusKind is the kind of a PromptStatus.
type PromptStatusKind int

const (
	// PromptNotShown means that we never showed the doorhanger.
	PromptNotShown = PromptStatusKind(iota)

	// PromptShown means that the doorhanger is outstanding.
	PromptShown

	// PromptResolved means that the doorhanger has a decision.
	PromptResolved
)

// PromptStatus is the status of the single doorhanger we show per
// installation. We derive it from the shown, ping-sent and decision
// flags, which remain the persisted representation.
type PromptStatus struct {
	// Kind is the status kind.
	Kind PromptStatusKind

	// Decision is the decision, only meaningful with PromptResolved.
	Decision model.PromptDecision

	// Reported is false when the decision is durable but the ping-sent
	// flag is not, meaning that we were interrupted while resolving.
	Reported bool
}

// String implements fmt.Stringer.
func (ps PromptStatus) String() string {
	switch ps.Kind {
	case PromptNotShown:
		return "not_shown"
	case PromptShown:
		return "shown"
	default:
		if ps.Reported {
			return fmt.Sprintf("resolved(%s)", ps.Decision)
		}
		return fmt.Sprintf("resolved(%s, unreported)", ps.Decision)
	}
}

// derivePromptStatus maps the legacy flags to a PromptStatus. The
// ping-sent flag always wins because it marks a completed resolution.
func derivePromptStatus(shown, pingSent bool, decision model.PromptDecision) PromptStatus {
	switch {
	case pingSent:
		return PromptStatus{Kind: PromptResolved, Decision: decision, Reported: true}
	case decision != model.DecisionNone:
		return PromptStatus{Kind: PromptResolved, Decision: decision, Reported: false}
	case shown:
		return PromptStatus{Kind: PromptShown}
	default:
		return PromptStatus{Kind: PromptNotShown}
	}
}

// stateForDecision returns the state implied by a decision.
func stateForDecision(decision model.PromptDecision) model.RolloutState {
	switch decision {
	case model.DecisionUIOk:
		return model.StateUIOk
	case model.DecisionUIDisabled:
		return model.StateUIDisabled
	default:
		return model.StateUITimeout
	}
}
