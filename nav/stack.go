// Package nav implements a navigation stack of vxfw widgets. Each pushed
// widget gets an Entry that satisfies refresh.Navigator: it answers "am I
// the visible top" and delivers push/pop visibility transitions to
// subscribers.
package nav

import (
	"errors"

	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/deevus/nasview/refresh"
)

var errDetached = errors.New("nav: entry is not on a stack")

// Stack is a last-in-first-out stack of views. The top entry is the visible
// one while the stack itself is visible. Like the widgets it holds, a Stack
// is driven from a single event loop and is not safe for concurrent use.
type Stack struct {
	entries []*Entry
	visible bool
}

// NewStack creates an empty, visible Stack.
func NewStack() *Stack {
	return &Stack{visible: true}
}

// Len returns the number of entries on the stack.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Top returns the widget of the top entry, or nil when empty.
func (s *Stack) Top() vxfw.Widget {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1].widget
}

// Widgets returns the stacked widgets, bottom first.
func (s *Stack) Widgets() []vxfw.Widget {
	out := make([]vxfw.Widget, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.widget
	}
	return out
}

// TopEntry returns the top entry, or nil when empty.
func (s *Stack) TopEntry() *Entry {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

// Push places w on top of the stack and returns its Entry. The previous top
// receives a Covered transition, then the new entry receives Pushed.
func (s *Stack) Push(w vxfw.Widget) *Entry {
	prev := s.TopEntry()

	e := &Entry{stack: s, widget: w}
	s.entries = append(s.entries, e)

	if prev != nil {
		prev.notify(refresh.Covered)
	}
	e.notify(refresh.Pushed)
	return e
}

// Pop removes the top entry and returns its widget, or nil when empty. The
// removed entry is detached (its activeness queries fail from then on) and
// receives a Popped transition; the newly exposed top receives Revealed,
// but only while the stack itself is showing. Popping a hidden stack defers
// the Revealed to the next Reveal call.
func (s *Stack) Pop() vxfw.Widget {
	if len(s.entries) == 0 {
		return nil
	}

	e := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	e.stack = nil

	e.notify(refresh.Popped)
	if top := s.TopEntry(); top != nil && s.visible {
		top.notify(refresh.Revealed)
	}
	return e.widget
}

// Visible reports whether the stack itself is showing.
func (s *Stack) Visible() bool {
	return s.visible
}

// Cover hides the stack, delivering a Covered transition to the top entry.
// Used when a sibling surface (another section) takes over the screen.
// No-op when already hidden.
func (s *Stack) Cover() {
	if !s.visible {
		return
	}
	s.visible = false
	if top := s.TopEntry(); top != nil {
		top.notify(refresh.Covered)
	}
}

// Reveal shows the stack again, delivering Revealed to the top entry.
// No-op when already visible.
func (s *Stack) Reveal() {
	if s.visible {
		return
	}
	s.visible = true
	if top := s.TopEntry(); top != nil {
		top.notify(refresh.Revealed)
	}
}

// Entry associates one pushed widget with its position on a Stack. It
// implements refresh.Navigator for that widget.
type Entry struct {
	stack     *Stack // nil once popped
	widget    vxfw.Widget
	observers []entryObserver
	nextID    uint64
}

type entryObserver struct {
	id uint64
	fn func(refresh.Transition)
}

// Widget returns the widget this entry was created for.
func (e *Entry) Widget() vxfw.Widget {
	return e.widget
}

// IsActive reports whether this entry is the visible top of its stack. It
// fails once the entry has been popped off the stack.
func (e *Entry) IsActive() (bool, error) {
	if e.stack == nil {
		return false, errDetached
	}
	return e.stack.visible && e.stack.TopEntry() == e, nil
}

// Subscribe registers fn for transitions affecting this entry. The returned
// cancel func removes the registration and may be called more than once.
func (e *Entry) Subscribe(fn func(refresh.Transition)) func() {
	e.nextID++
	id := e.nextID
	e.observers = append(e.observers, entryObserver{id: id, fn: fn})

	return func() {
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

func (e *Entry) notify(t refresh.Transition) {
	// Snapshot: an observer may unsubscribe during delivery.
	obs := make([]entryObserver, len(e.observers))
	copy(obs, e.observers)
	for _, o := range obs {
		o.fn(t)
	}
}
