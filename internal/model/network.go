package model

import "context"

// NetworkEventKind is the kind of a network change notification.
type NetworkEventKind string

const (
	// NetworkUp means that the link went up.
	NetworkUp = NetworkEventKind("up")

	// NetworkChanged means that the network configuration changed.
	NetworkChanged = NetworkEventKind("changed")
)

// NetworkNotifier notifies about network changes.
type NetworkNotifier interface {
	// Events returns a channel where we post network events. The
	// channel is closed when the context is done.
	Events(ctx context.Context) <-chan NetworkEventKind

	// IsLinkUp returns whether the platform currently reports link up.
	IsLinkUp() bool
}
