package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/escale/idgen"
	"github.com/hazyhaar/escale/trip"
)

// Static is the offline planner: deterministic theme-templated day blocks.
// Used by sim mode, cmd/tripwatch, and tests. Day one always opens with an
// outdoor sightseeing block, which is the activity weather adaptations
// replace.
type Static struct{}

// themeDays cycles across the trip. The first block of every theme starts
// with "Outdoor sightseeing" so a heat or storm adaptation always has a
// target in the generated text.
var themeDays = map[string][]string{
	"adventure": {
		"Outdoor sightseeing around the old quarter, then a guided trek to the viewpoint",
		"River rafting in the morning and a zipline run after lunch",
		"Sunrise hike, local market stop, evening at the campsite",
	},
	"culture": {
		"Outdoor sightseeing at the fort and the heritage quarter",
		"Museum circuit and a traditional craft workshop",
		"Temple walk with a classical performance after dinner",
	},
	"beach": {
		"Outdoor sightseeing along the promenade, afternoon on the main beach",
		"Snorkeling trip and a beach shack lunch",
		"Quiet cove morning, sunset cruise in the evening",
	},
	"wellness": {
		"Outdoor sightseeing in the botanical gardens, evening spa session",
		"Morning yoga and an ayurvedic treatment after lunch",
		"Nature walk and meditation by the lake",
	},
	"food": {
		"Outdoor sightseeing through the spice market, street food crawl at night",
		"Cooking class with a local chef",
		"Heritage cafe trail and a regional thali dinner",
	},
	"heritage": {
		"Outdoor sightseeing at the palace complex",
		"Guided walk through the stepwell and the old city gates",
		"Archaeology museum and the light-and-sound show at the fort",
	},
}

var defaultDays = []string{
	"Outdoor sightseeing at the main landmarks",
	"Day trip to the nearby attractions",
	"Local market visit and a relaxed evening",
}

func (Static) Generate(_ context.Context, req PlanRequest) (*PlanResult, error) {
	days := req.days()
	blocks, ok := themeDays[strings.ToLower(strings.TrimSpace(req.Theme))]
	if !ok {
		blocks = defaultDays
	}

	var b strings.Builder
	if req.Theme != "" {
		fmt.Fprintf(&b, "A %d-day %s trip to %s.\n", days, strings.ToLower(req.Theme), req.Destination)
	} else {
		fmt.Fprintf(&b, "A %d-day trip to %s.\n", days, req.Destination)
	}
	for day := 1; day <= days; day++ {
		fmt.Fprintf(&b, "\nDay %d: %s.", day, blocks[(day-1)%len(blocks)])
	}
	if f := req.SelectedFlight; f != nil {
		fmt.Fprintf(&b, "\n\nArrival on %s flight %s.", f.Airline, f.FlightNumber)
	}
	if h := req.SelectedHotel; h != nil {
		fmt.Fprintf(&b, "\nStay booked at %s.", h.Name)
	}

	id := idgen.New()
	return &PlanResult{
		Itinerary: trip.Itinerary{
			Content:          b.String(),
			GeneratedAt:      time.Now().UTC(),
			PlannerSessionID: id,
		},
		SessionID: id,
	}, nil
}
