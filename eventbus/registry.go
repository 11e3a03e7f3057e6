package eventbus

import (
	"reflect"
	"sync"
)

// Registry holds one Bus per event type. It replaces a package-level
// singleton: the composition root constructs a Registry and passes it to
// whatever needs a bus, so "one shared channel per event taxonomy" holds
// without global mutable state.
type Registry struct {
	mu    sync.Mutex
	buses map[reflect.Type]any
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		buses: make(map[reflect.Type]any),
	}
}

// For returns the Bus for event type E from r, creating it on first request.
// Two calls with the same type parameter always return the same instance.
func For[E comparable](r *Registry) *Bus[E] {
	key := reflect.TypeOf((*E)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.buses[key]; ok {
		return b.(*Bus[E])
	}
	b := New[E]()
	r.buses[key] = b
	return b
}

// Len returns the number of distinct buses created so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buses)
}
