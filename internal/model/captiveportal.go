package model

import "context"

// CaptivePortalState is the state reported by a CaptivePortal.
type CaptivePortalState string

const (
	// CaptivePortalUnknown means we don't know yet.
	CaptivePortalUnknown = CaptivePortalState("unknown")

	// CaptivePortalLocked means we are behind a portal we did not log into.
	CaptivePortalLocked = CaptivePortalState("locked_portal")

	// CaptivePortalUnlocked means we were behind a portal and we logged in.
	CaptivePortalUnlocked = CaptivePortalState("unlocked_portal")

	// CaptivePortalNotCaptive means there is no captive portal.
	CaptivePortalNotCaptive = CaptivePortalState("not_captive")
)

// IsOnline returns whether this state implies general connectivity.
func (s CaptivePortalState) IsOnline() bool {
	return s == CaptivePortalUnlocked || s == CaptivePortalNotCaptive
}

// CaptivePortal is the source of captive portal information.
type CaptivePortal interface {
	// State returns the current state.
	State(ctx context.Context) CaptivePortalState

	// Changes returns a channel where we post state changes. The
	// channel is closed when the context is done.
	Changes(ctx context.Context) <-chan CaptivePortalState
}
