// Package debounce coalesces bursts of network change notifications
// into a rate-limited trigger.
package debounce

import (
	"context"
	"sync"
	"time"

	"github.com/ooni/dohrollout/internal/model"
)

// DefaultWindow is the default quiet window.
const DefaultWindow = 30 * time.Second

// Debouncer decides which network events should trigger an evaluation. An
// "up" event always fires and restarts the quiet window. A "changed" event
// fires only when the quiet window since the last fired event has elapsed
// and the link is up. The zero value is not valid: use New.
type Debouncer struct {
	// IsLinkUp returns whether the platform reports link up.
	IsLinkUp func() bool

	// TimeNow is the OPTIONAL function returning the current time.
	TimeNow func() time.Time

	// Window is the OPTIONAL quiet window.
	Window time.Duration

	last time.Time
	mu   sync.Mutex
}

// New creates a new Debouncer using the given link status function.
func New(isLinkUp func() bool) *Debouncer {
	return &Debouncer{IsLinkUp: isLinkUp}
}

func (d *Debouncer) now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}

func (d *Debouncer) window() time.Duration {
	if d.Window > 0 {
		return d.Window
	}
	return DefaultWindow
}

// OnNetworkEvent returns whether the event fires.
func (d *Debouncer) OnNetworkEvent(kind model.NetworkEventKind) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	switch kind {
	case model.NetworkUp:
		d.last = now
		return true
	case model.NetworkChanged:
		if !d.last.IsZero() && now.Sub(d.last) <= d.window() {
			return false
		}
		if !d.IsLinkUp() {
			return false
		}
		d.last = now
		return true
	default:
		return false
	}
}

// Filter reads events and forwards those that fire. The returned channel
// is closed when the context is done or the input channel is closed.
func (d *Debouncer) Filter(ctx context.Context, events <-chan model.NetworkEventKind) <-chan model.NetworkEventKind {
	out := make(chan model.NetworkEventKind)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case kind, good := <-events:
				if !good {
					return
				}
				if !d.OnNetworkEvent(kind) {
					continue
				}
				select {
				case out <- kind:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}
