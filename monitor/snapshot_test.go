package monitor

import (
	"testing"
	"time"
)

func TestSnapshotStore_PutGet(t *testing.T) {
	st := NewSnapshotStore()

	if _, ok := st.Get(SourceWeather); ok {
		t.Fatal("expected no snapshot before first Put")
	}

	report := WeatherReport{Readings: []WeatherReading{{Location: "Goa", TempC: 31}}}
	st.Put(SourceWeather, report)

	snap, ok := st.Get(SourceWeather)
	if !ok {
		t.Fatal("expected snapshot after Put")
	}
	if snap.Source != SourceWeather {
		t.Fatalf("Source = %q, want %q", snap.Source, SourceWeather)
	}
	got, ok := snap.Data.(WeatherReport)
	if !ok {
		t.Fatalf("Data type = %T, want WeatherReport", snap.Data)
	}
	if got.Readings[0].Location != "Goa" {
		t.Fatalf("Location = %q, want Goa", got.Readings[0].Location)
	}
}

func TestSnapshotStore_OverwriteKeepsLatest(t *testing.T) {
	st := NewSnapshotStore()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	st.Put(SourceTraffic, TrafficReport{Routes: []RouteTraffic{{DelayMinutes: 5}}})
	st.now = func() time.Time { return base.Add(5 * time.Minute) }
	st.Put(SourceTraffic, TrafficReport{Routes: []RouteTraffic{{DelayMinutes: 20}}})

	snap, ok := st.Get(SourceTraffic)
	if !ok {
		t.Fatal("expected snapshot")
	}
	if got := snap.Data.(TrafficReport).Routes[0].DelayMinutes; got != 20 {
		t.Fatalf("DelayMinutes = %d, want 20 (latest write)", got)
	}
	if !snap.FetchedAt.Equal(base.Add(5 * time.Minute)) {
		t.Fatalf("FetchedAt = %v, want timestamp of second write", snap.FetchedAt)
	}
}

func TestSnapshotStore_Age(t *testing.T) {
	st := NewSnapshotStore()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }

	if _, ok := st.Age(SourceEvents); ok {
		t.Fatal("Age of absent source must report ok=false")
	}

	st.Put(SourceEvents, EventsReport{})
	st.now = func() time.Time { return base.Add(90 * time.Second) }

	age, ok := st.Age(SourceEvents)
	if !ok {
		t.Fatal("expected age for stored source")
	}
	if age != 90*time.Second {
		t.Fatalf("age = %v, want 90s", age)
	}
}

func TestSnapshotStore_Fresh(t *testing.T) {
	st := NewSnapshotStore()
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time { return base }
	st.Put(SourceFlightStatus, FlightStatus{FlightNumber: "AI-202"})

	tests := []struct {
		name    string
		elapsed time.Duration
		maxAge  time.Duration
		want    bool
	}{
		{"well inside window", 1 * time.Minute, 15 * time.Minute, true},
		{"exactly at max age", 15 * time.Minute, 15 * time.Minute, false},
		{"past max age", 16 * time.Minute, 15 * time.Minute, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st.now = func() time.Time { return base.Add(tt.elapsed) }
			if got := st.Fresh(SourceFlightStatus, tt.maxAge); got != tt.want {
				t.Fatalf("Fresh(%v after %v) = %v, want %v", tt.maxAge, tt.elapsed, got, tt.want)
			}
		})
	}

	if st.Fresh(SourceAvailability, time.Hour) {
		t.Fatal("absent source must never be fresh")
	}
}

func TestSnapshotStore_SourcesOrdered(t *testing.T) {
	st := NewSnapshotStore()
	st.Put(SourceAvailability, Availability{HotelsAvailable: true})
	st.Put(SourceWeather, WeatherReport{})
	st.Put(SourceTraffic, TrafficReport{})

	got := st.Sources()
	want := []SourceID{SourceWeather, SourceTraffic, SourceAvailability}
	if len(got) != len(want) {
		t.Fatalf("Sources() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Sources()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if st.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", st.Len())
	}
}
