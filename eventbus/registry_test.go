package eventbus_test

import (
	"testing"

	"github.com/deevus/nasview/eventbus"
)

type otherEvent int

func TestRegistry_SameTypeSameBus(t *testing.T) {
	r := eventbus.NewRegistry()

	b1 := eventbus.For[testEvent](r)
	b2 := eventbus.For[testEvent](r)

	if b1 != b2 {
		t.Fatal("expected the same bus for the same event type")
	}
}

func TestRegistry_DistinctTypesDistinctBuses(t *testing.T) {
	r := eventbus.NewRegistry()

	eventbus.For[testEvent](r)
	eventbus.For[otherEvent](r)

	if r.Len() != 2 {
		t.Fatalf("expected 2 buses, got %d", r.Len())
	}
}

func TestRegistry_SeparateRegistriesSeparateBuses(t *testing.T) {
	r1 := eventbus.NewRegistry()
	r2 := eventbus.NewRegistry()

	if eventbus.For[testEvent](r1) == eventbus.For[testEvent](r2) {
		t.Fatal("expected separate registries to own separate buses")
	}
}

func TestRegistry_BusIsUsable(t *testing.T) {
	r := eventbus.NewRegistry()

	calls := 0
	eventbus.For[testEvent](r).AddListener(eventUpdated, func(any) { calls++ })
	eventbus.For[testEvent](r).Post(eventUpdated, nil)

	if calls != 1 {
		t.Fatalf("expected listener registered via one lookup to fire via another, got %d calls", calls)
	}
}
