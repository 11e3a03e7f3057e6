// Package eventbus provides a synchronous, typed publish/subscribe bus.
// Each Bus is parameterized by an event type; listeners register for a
// specific event value and are invoked in registration order when that
// value is posted.
package eventbus

import "sync"

// Listener is invoked with the payload passed to Post. The payload may be
// nil when the poster has nothing to attach.
type Listener func(payload any)

// Token identifies one listener registration on a Bus. Go functions are not
// comparable, so removal is by token rather than by callback value;
// registering the same function twice yields two distinct tokens and two
// invocations per post.
type Token struct {
	id uint64
}

type registration struct {
	id uint64
	fn Listener
}

// Bus is a synchronous pub-sub bus for one event type. Listeners for an
// event value fire in registration order, and Post returns only after every
// listener has returned. A Bus is not meant for concurrent use from multiple
// goroutines; the vaxis event loop serializes access in this application.
type Bus[E comparable] struct {
	mu        sync.RWMutex
	listeners map[E][]registration
	nextID    uint64
}

// New creates an empty Bus.
func New[E comparable]() *Bus[E] {
	return &Bus[E]{
		listeners: make(map[E][]registration),
	}
}

// AddListener appends fn to the listener list for event and returns a token
// for later removal. No deduplication is performed.
func (b *Bus[E]) AddListener(event E, fn Listener) Token {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.listeners[event] = append(b.listeners[event], registration{id: b.nextID, fn: fn})
	return Token{id: b.nextID}
}

// RemoveListener removes the registration identified by tok from the list
// for event. When the list empties, the entry for event is dropped entirely.
// Removing a token that was never registered, or twice, is a no-op.
func (b *Bus[E]) RemoveListener(event E, tok Token) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.listeners[event]
	for i, r := range regs {
		if r.id == tok.id {
			b.listeners[event] = append(regs[:i], regs[i+1:]...)
			if len(b.listeners[event]) == 0 {
				delete(b.listeners, event)
			}
			return
		}
	}
}

// Post synchronously invokes every listener currently registered for event,
// in registration order, passing payload. The listener list is snapshotted
// before dispatch, so listeners that add or remove registrations for the
// same event do not affect the in-progress post. A panicking listener
// propagates to the caller and aborts the remaining listeners for this post.
func (b *Bus[E]) Post(event E, payload any) {
	b.mu.RLock()
	snapshot := make([]registration, len(b.listeners[event]))
	copy(snapshot, b.listeners[event])
	b.mu.RUnlock()

	for _, r := range snapshot {
		r.fn(payload)
	}
}

// ListenerCount returns the number of registrations for event.
func (b *Bus[E]) ListenerCount(event E) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[event])
}

// Len returns the total number of registrations across all events.
func (b *Bus[E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := 0
	for _, regs := range b.listeners {
		n += len(regs)
	}
	return n
}
