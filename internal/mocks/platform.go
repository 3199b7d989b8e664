package mocks

import (
	"context"

	"github.com/ooni/dohrollout/internal/model"
)

// PolicyOracle is a mockable model.PolicyOracle.
type PolicyOracle struct {
	MockCheckEnterprisePolicy func(ctx context.Context) (model.Verdict, error)
	MockCheckParentalControls func(ctx context.Context) (bool, error)
}

var _ model.PolicyOracle = &PolicyOracle{}

// CheckEnterprisePolicy calls MockCheckEnterprisePolicy.
func (po *PolicyOracle) CheckEnterprisePolicy(ctx context.Context) (model.Verdict, error) {
	return po.MockCheckEnterprisePolicy(ctx)
}

// CheckParentalControls calls MockCheckParentalControls.
func (po *PolicyOracle) CheckParentalControls(ctx context.Context) (bool, error) {
	return po.MockCheckParentalControls(ctx)
}

// CaptivePortal is a mockable model.CaptivePortal.
type CaptivePortal struct {
	MockState   func(ctx context.Context) model.CaptivePortalState
	MockChanges func(ctx context.Context) <-chan model.CaptivePortalState
}

var _ model.CaptivePortal = &CaptivePortal{}

// State calls MockState.
func (cp *CaptivePortal) State(ctx context.Context) model.CaptivePortalState {
	return cp.MockState(ctx)
}

// Changes calls MockChanges.
func (cp *CaptivePortal) Changes(ctx context.Context) <-chan model.CaptivePortalState {
	return cp.MockChanges(ctx)
}

// NetworkNotifier is a mockable model.NetworkNotifier.
type NetworkNotifier struct {
	MockEvents   func(ctx context.Context) <-chan model.NetworkEventKind
	MockIsLinkUp func() bool
}

var _ model.NetworkNotifier = &NetworkNotifier{}

// Events calls MockEvents.
func (nn *NetworkNotifier) Events(ctx context.Context) <-chan model.NetworkEventKind {
	return nn.MockEvents(ctx)
}

// IsLinkUp calls MockIsLinkUp.
func (nn *NetworkNotifier) IsLinkUp() bool {
	return nn.MockIsLinkUp()
}

// PromptSurface is a mockable model.PromptSurface.
type PromptSurface struct {
	MockShow func(ctx context.Context, spec *model.PromptSpec) (<-chan *model.PromptResponse, error)
}

var _ model.PromptSurface = &PromptSurface{}

// Show calls MockShow.
func (ps *PromptSurface) Show(ctx context.Context, spec *model.PromptSpec) (<-chan *model.PromptResponse, error) {
	return ps.MockShow(ctx, spec)
}

// TelemetrySink is a mockable model.TelemetrySink.
type TelemetrySink struct {
	MockRecordEvent func(category, method, object, value string, extra map[string]string)
}

var _ model.TelemetrySink = &TelemetrySink{}

// RecordEvent calls MockRecordEvent.
func (ts *TelemetrySink) RecordEvent(category, method, object, value string, extra map[string]string) {
	ts.MockRecordEvent(category, method, object, value, extra)
}
