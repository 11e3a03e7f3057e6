// Package refresh reconciles explicit stale marks, event-driven stale marks,
// and navigation visibility into correctly-timed refresh invocations for one
// view. A view declares, per event, which of its data units go stale; when
// the view is the active navigation entry a stale mark refreshes inline, and
// when it is covered the marks accumulate until the view is revealed again.
package refresh

import (
	"errors"
	"log"
	"runtime/debug"

	"github.com/deevus/nasview/eventbus"
)

// Func is a no-argument refresh action. Actions may be asynchronous
// internally (fire-and-forget); the controller does not await them.
type Func func()

// FailurePolicy decides what happens to a stale mark when the activeness
// query fails, typically because no navigator is bound yet.
type FailurePolicy int

const (
	// DiscardOnFailure silently drops the mark.
	DiscardOnFailure FailurePolicy = iota
	// RetainOnFailure leaves the key pending for a later flush.
	RetainOnFailure
)

var errNoNavigator = errors.New("no navigator bound")

// Params configures a Controller. E is the event type of the bus the view
// listens on; K identifies one refreshable unit of the view's data.
type Params[E comparable, K comparable] struct {
	// Bus is the event bus to subscribe on. Required.
	Bus *eventbus.Bus[E]
	// StaleEvents maps each event to the keys it makes stale. Read once at
	// construction to establish bus subscriptions.
	StaleEvents map[E][]K
	// Policy is applied when an activeness query fails during MarkStale.
	Policy FailurePolicy
}

type busSub[E comparable] struct {
	event E
	tok   eventbus.Token
}

// Controller owns the stale-key set, refresher registry, and subscriptions
// for one view instance. It is not safe for concurrent use; the host event
// loop must serialize access, as it does for the widgets that own it.
type Controller[E comparable, K comparable] struct {
	bus        *eventbus.Bus[E]
	policy     FailurePolicy
	refreshers map[K]Func

	// Stale set: slice preserves insertion order for deterministic flushes,
	// map gives O(1) membership.
	stale    []K
	staleSet map[K]struct{}

	subs      []busSub[E]
	nav       Navigator
	navCancel func()
	closed    bool
}

// New creates a Controller and subscribes it to p.Bus for every event in
// p.StaleEvents. Panics if p.Bus is nil.
func New[E comparable, K comparable](p Params[E, K]) *Controller[E, K] {
	if p.Bus == nil {
		panic("refresh: Controller requires a Bus")
	}

	c := &Controller[E, K]{
		bus:        p.Bus,
		policy:     p.Policy,
		refreshers: make(map[K]Func),
		staleSet:   make(map[K]struct{}),
	}

	for event, keys := range p.StaleEvents {
		mapped := make([]K, len(keys))
		copy(mapped, keys)
		tok := p.Bus.AddListener(event, func(any) {
			c.MarkStaleAll(mapped)
		})
		c.subs = append(c.subs, busSub[E]{event: event, tok: tok})
	}

	return c
}

// BindNavigator attaches the controller to its navigation entry. Only the
// first call has an effect; the controller tolerates never being bound by
// treating every activeness query as failing.
func (c *Controller[E, K]) BindNavigator(nav Navigator) {
	if c.closed || c.nav != nil || nav == nil {
		return
	}
	c.nav = nav
	c.navCancel = nav.Subscribe(c.handleTransition)
}

// NavigatorBound reports whether a navigator has been attached.
func (c *Controller[E, K]) NavigatorBound() bool {
	return c.nav != nil
}

// RegisterRefresher stores fn as the refresh action for key, overwriting any
// previous action. Registering never invokes fn, even when key is already
// pending.
func (c *Controller[E, K]) RegisterRefresher(key K, fn Func) {
	c.refreshers[key] = fn
}

// UnregisterRefresher removes the action for key. No-op if absent.
func (c *Controller[E, K]) UnregisterRefresher(key K) {
	delete(c.refreshers, key)
}

// MarkStale adds key to the stale set. If the view is currently the active
// navigation entry the mark is satisfied inline: key is removed again and
// its refresher (if any) invoked before MarkStale returns. If the view is
// inactive the key stays pending for the next Revealed flush. If the
// activeness query fails, the configured FailurePolicy decides whether the
// mark is discarded or retained.
func (c *Controller[E, K]) MarkStale(key K) {
	if c.closed {
		return
	}
	c.insert(key)

	active, err := c.isActive()
	if err != nil {
		if c.policy == DiscardOnFailure {
			c.remove(key)
		}
		return
	}
	if !active {
		return
	}

	c.remove(key)
	if fn, ok := c.refreshers[key]; ok {
		fn()
	}
}

// MarkStaleAll applies MarkStale to each key in order. Keys are processed
// independently: a panicking refresher for one key is logged and does not
// prevent the remaining keys from being processed.
func (c *Controller[E, K]) MarkStaleAll(keys []K) {
	for _, key := range keys {
		c.markStaleIsolated(key)
	}
}

func (c *Controller[E, K]) markStaleIsolated(key K) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("refresh: refresher for key %v panicked: %v\n%s", key, r, debug.Stack())
		}
	}()
	c.MarkStale(key)
}

// UnmarkStale removes key from the stale set without invoking anything.
func (c *Controller[E, K]) UnmarkStale(key K) {
	c.remove(key)
}

// ClearStale empties the stale set without invoking anything.
func (c *Controller[E, K]) ClearStale() {
	c.stale = nil
	c.staleSet = make(map[K]struct{})
}

// IsStale reports whether key is pending a refresh.
func (c *Controller[E, K]) IsStale(key K) bool {
	_, ok := c.staleSet[key]
	return ok
}

// StaleLen returns the number of pending keys.
func (c *Controller[E, K]) StaleLen() int {
	return len(c.stale)
}

// Close releases the controller's bus and navigator subscriptions. It is
// idempotent and must be called on every teardown path of the owning view.
// After Close, marks and transitions are no-ops.
func (c *Controller[E, K]) Close() {
	if c.closed {
		return
	}
	c.closed = true

	for _, s := range c.subs {
		c.bus.RemoveListener(s.event, s.tok)
	}
	c.subs = nil

	if c.navCancel != nil {
		c.navCancel()
		c.navCancel = nil
	}
	c.nav = nil
}

// handleTransition flushes the stale set when the view is revealed. All
// other transitions are accepted and ignored.
func (c *Controller[E, K]) handleTransition(t Transition) {
	if c.closed || t != Revealed {
		return
	}
	c.flush()
}

// flush snapshots the pending keys in insertion order, clears the set, then
// invokes the registered refresher for each snapshotted key. Keys with no
// registered refresher are skipped. A panicking refresher is logged and does
// not prevent the remaining keys from refreshing.
func (c *Controller[E, K]) flush() {
	if len(c.stale) == 0 {
		return
	}

	snapshot := c.stale
	c.stale = nil
	c.staleSet = make(map[K]struct{})

	for _, key := range snapshot {
		fn, ok := c.refreshers[key]
		if !ok {
			continue
		}
		c.invokeIsolated(key, fn)
	}
}

func (c *Controller[E, K]) invokeIsolated(key K, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("refresh: refresher for key %v panicked: %v\n%s", key, r, debug.Stack())
		}
	}()
	fn()
}

func (c *Controller[E, K]) isActive() (bool, error) {
	if c.nav == nil {
		return false, errNoNavigator
	}
	return c.nav.IsActive()
}

func (c *Controller[E, K]) insert(key K) {
	if _, ok := c.staleSet[key]; ok {
		return
	}
	c.staleSet[key] = struct{}{}
	c.stale = append(c.stale, key)
}

func (c *Controller[E, K]) remove(key K) {
	if _, ok := c.staleSet[key]; !ok {
		return
	}
	delete(c.staleSet, key)
	for i, k := range c.stale {
		if k == key {
			c.stale = append(c.stale[:i], c.stale[i+1:]...)
			break
		}
	}
}
