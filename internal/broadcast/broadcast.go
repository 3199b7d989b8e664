// Package broadcast delivers values to a dynamic set of subscribers.
package broadcast

import (
	"context"
	"sync"
)

// DefaultBuffer is the per-subscriber channel buffer.
const DefaultBuffer = 64

// Hub delivers values to subscribers. A subscriber that is not draining
// its channel loses values rather than blocking the sender, so delivery
// is at most once per subscriber. The zero value is ready to use.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
}

// Subscribe returns a channel receiving the values sent after this call.
// The channel is closed when the context is done.
func (h *Hub[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, DefaultBuffer)
	h.mu.Lock()
	if h.subs == nil {
		h.subs = make(map[chan T]struct{})
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		close(ch)
		h.mu.Unlock()
	}()
	return ch
}

// Send delivers the values to every subscriber without blocking.
func (h *Hub[T]) Send(values ...T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		for _, value := range values {
			select {
			case ch <- value:
			default:
			}
		}
	}
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
