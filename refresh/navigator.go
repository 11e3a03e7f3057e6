package refresh

// Transition is a navigation visibility change affecting a view's entry.
type Transition int

const (
	// Pushed fires when the entry is first pushed onto the stack.
	Pushed Transition = iota
	// Covered fires when another entry is pushed on top of this one.
	Covered
	// Revealed fires when the entry covering this one is popped and this
	// entry becomes the visible top again. This is the only transition the
	// controller acts on.
	Revealed
	// Popped fires when the entry itself is removed from the stack.
	Popped
)

// String returns the transition name, for logging.
func (t Transition) String() string {
	switch t {
	case Pushed:
		return "pushed"
	case Covered:
		return "covered"
	case Revealed:
		return "revealed"
	case Popped:
		return "popped"
	}
	return "unknown"
}

// Navigator is the navigation capability a Controller consumes. It is
// implemented by whatever owns the navigation stack, not by this package.
type Navigator interface {
	// IsActive reports whether the view's entry is currently the visible
	// top of the navigation stack. It returns an error when no navigation
	// context exists for the entry (for example, the entry has been removed
	// from its stack).
	IsActive() (bool, error)

	// Subscribe registers fn to be called for every transition affecting the
	// view's entry. The returned cancel func removes the registration and is
	// safe to call more than once.
	Subscribe(fn func(Transition)) (cancel func())
}
