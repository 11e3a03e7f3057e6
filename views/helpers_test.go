package views_test

import (
	"time"

	"git.sr.ht/~rockorager/vaxis"
	"git.sr.ht/~rockorager/vaxis/vxfw"
	"github.com/deevus/nasview/refresh"
	"github.com/deevus/nasview/views"
)

func testDrawContext(w, h uint16) vxfw.DrawContext {
	return vxfw.DrawContext{
		Max: vxfw.Size{Width: w, Height: h},
		Min: vxfw.Size{},
		Characters: func(s string) []vaxis.Character {
			chars := make([]vaxis.Character, 0, len(s))
			for _, r := range s {
				chars = append(chars, vaxis.Character{Grapheme: string(r), Width: 1})
			}
			return chars
		},
	}
}

// fakeNav is a hand-rolled refresh.Navigator for view tests.
type fakeNav struct {
	active   bool
	handlers []func(refresh.Transition)
}

func (n *fakeNav) IsActive() (bool, error) {
	return n.active, nil
}

func (n *fakeNav) Subscribe(fn func(refresh.Transition)) func() {
	n.handlers = append(n.handlers, fn)
	return func() {}
}

func (n *fakeNav) fire(t refresh.Transition) {
	for _, fn := range n.handlers {
		fn(t)
	}
}

// loadCollector returns a PostEvent func that forwards ViewLoaded events to
// the returned channel, for synchronizing with background reloads.
func loadCollector() (func(vaxis.Event), chan views.ViewLoaded) {
	ch := make(chan views.ViewLoaded, 8)
	return func(ev vaxis.Event) {
		if vl, ok := ev.(views.ViewLoaded); ok {
			ch <- vl
		}
	}, ch
}

func waitLoaded(ch chan views.ViewLoaded) (views.ViewLoaded, bool) {
	select {
	case vl := <-ch:
		return vl, true
	case <-time.After(2 * time.Second):
		return views.ViewLoaded{}, false
	}
}
