package monitor

import (
	"log/slog"
	"testing"
)

func testBus(t *testing.T) *Bus {
	t.Helper()
	return NewBus(slog.New(slog.DiscardHandler))
}

func TestBus_DeliversToMatchingSourceOnly(t *testing.T) {
	bus := testBus(t)

	var weather, traffic int
	bus.Subscribe(SourceWeather, func(Change) { weather++ })
	bus.Subscribe(SourceTraffic, func(Change) { traffic++ })

	bus.Publish(SourceWeather, Change{Kind: ChangeWeatherAlert})
	bus.Publish(SourceWeather, Change{Kind: ChangeTemperature})
	bus.Publish(SourceTraffic, Change{Kind: ChangeTrafficDelay})

	if weather != 2 {
		t.Fatalf("weather listener saw %d changes, want 2", weather)
	}
	if traffic != 1 {
		t.Fatalf("traffic listener saw %d changes, want 1", traffic)
	}
}

func TestBus_RegistrationOrder(t *testing.T) {
	bus := testBus(t)

	var order []string
	bus.Subscribe(SourceWeather, func(Change) { order = append(order, "first") })
	bus.Subscribe(SourceWeather, func(Change) { order = append(order, "second") })
	bus.Subscribe(SourceWeather, func(Change) { order = append(order, "third") })

	bus.Publish(SourceWeather, Change{})

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBus_PanicDoesNotStopRemaining(t *testing.T) {
	bus := testBus(t)

	var before, after int
	bus.Subscribe(SourceWeather, func(Change) { before++ })
	bus.Subscribe(SourceWeather, func(Change) { panic("listener bug") })
	bus.Subscribe(SourceWeather, func(Change) { after++ })

	bus.Publish(SourceWeather, Change{})
	bus.Publish(SourceWeather, Change{})

	if before != 2 || after != 2 {
		t.Fatalf("before=%d after=%d, want both 2", before, after)
	}
	stats := bus.Stats()
	if stats.Panics != 2 {
		t.Fatalf("Panics = %d, want 2", stats.Panics)
	}
	if stats.Published != 2 {
		t.Fatalf("Published = %d, want 2", stats.Published)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := testBus(t)

	var kept, dropped int
	bus.Subscribe(SourceEvents, func(Change) { kept++ })
	id := bus.Subscribe(SourceEvents, func(Change) { dropped++ })

	bus.Publish(SourceEvents, Change{})
	if !bus.Unsubscribe(SourceEvents, id) {
		t.Fatal("Unsubscribe returned false for a live subscription")
	}
	bus.Publish(SourceEvents, Change{})

	if kept != 2 {
		t.Fatalf("kept listener saw %d, want 2", kept)
	}
	if dropped != 1 {
		t.Fatalf("removed listener saw %d, want 1", dropped)
	}
	if bus.Unsubscribe(SourceEvents, id) {
		t.Fatal("second Unsubscribe must return false")
	}
	if bus.Unsubscribe(SourceWeather, "sub-999") {
		t.Fatal("Unsubscribe of unknown id must return false")
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := testBus(t)

	var seen []SourceID
	ids := bus.SubscribeAll(func(c Change) { seen = append(seen, c.Source) })
	if len(ids) != len(AllSources) {
		t.Fatalf("SubscribeAll returned %d ids, want %d", len(ids), len(AllSources))
	}

	for _, src := range AllSources {
		bus.Publish(src, Change{Source: src})
	}
	if len(seen) != len(AllSources) {
		t.Fatalf("listener saw %d changes, want %d", len(seen), len(AllSources))
	}
	for i, src := range AllSources {
		if seen[i] != src {
			t.Fatalf("seen[%d] = %q, want %q", i, seen[i], src)
		}
	}
}

func TestBus_DeliveredCount(t *testing.T) {
	bus := testBus(t)
	bus.Subscribe(SourceWeather, func(Change) {})
	bus.Subscribe(SourceWeather, func(Change) {})

	bus.Publish(SourceWeather, Change{})

	if got := bus.Stats().Delivered; got != 2 {
		t.Fatalf("Delivered = %d, want 2", got)
	}
}
