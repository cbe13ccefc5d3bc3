package mcptool

import (
	"context"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/escale/amadeus"
	"github.com/hazyhaar/escale/booking"
	"github.com/hazyhaar/escale/monitor"
	"github.com/hazyhaar/escale/phrasebook"
	"github.com/hazyhaar/escale/trip"
)

type WeatherInput struct {
	Location string `json:"location" jsonschema:"city to report on"`
}

type WeatherOutput struct {
	Location  string   `json:"location"`
	TempC     float64  `json:"temp_c"`
	Condition string   `json:"condition"`
	WindMS    float64  `json:"wind_ms"`
	Alerts    []string `json:"alerts,omitempty"`
}

type TransportInput struct {
	Origin      string `json:"origin" jsonschema:"departure city"`
	Destination string `json:"destination" jsonschema:"arrival city"`
	TravelDate  string `json:"travel_date" jsonschema:"departure date, YYYY-MM-DD"`
	Travelers   int    `json:"travelers,omitempty" jsonschema:"seat count, default 1"`
}

type TransportOutput struct {
	Flights []trip.FlightOption `json:"flights"`
	Source  string              `json:"source"`
}

type AccommodationInput struct {
	City         string `json:"city" jsonschema:"destination city"`
	CheckinDate  string `json:"checkin_date" jsonschema:"check-in date, YYYY-MM-DD"`
	CheckoutDate string `json:"checkout_date" jsonschema:"check-out date, YYYY-MM-DD"`
	Guests       int    `json:"guests,omitempty" jsonschema:"guest count, default 2"`
}

type AccommodationOutput struct {
	Hotels []trip.HotelOption `json:"hotels"`
	Source string             `json:"source"`
}

type EventsInput struct {
	Location string `json:"location" jsonschema:"city to list events for"`
}

type EventsOutput struct {
	Location string          `json:"location"`
	Events   []monitor.Event `json:"events"`
}

type BookingInput struct {
	SessionID string `json:"session_id" jsonschema:"booking session id"`
	Name      string `json:"name" jsonschema:"traveler name"`
	Email     string `json:"email" jsonschema:"contact email"`
	Phone     string `json:"phone" jsonschema:"contact phone"`
}

type BookingOutput struct {
	Reference   string    `json:"reference"`
	GrandTotal  float64   `json:"grand_total"`
	Remaining   float64   `json:"remaining"`
	UnderBudget bool      `json:"under_budget"`
	Itinerary   string    `json:"itinerary"`
	BookedAt    time.Time `json:"booked_at"`
}

type TranslateInput struct {
	Text           string `json:"text" jsonschema:"text to translate"`
	TargetLanguage string `json:"target_language" jsonschema:"language code or name, e.g. hi or hindi"`
}

type TranslateOutput struct {
	TranslatedText string `json:"translated_text"`
	Translated     bool   `json:"translated"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_weather",
		Description: "Current weather and active alerts for a city",
	}, s.handleGetWeather)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_transport_options",
		Description: "Flight options for a route and date",
	}, s.handleGetTransport)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_accommodation_options",
		Description: "Hotel options for a city and stay dates",
	}, s.handleGetAccommodation)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "get_events",
		Description: "Local events and activities for a city",
	}, s.handleGetEvents)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "process_booking",
		Description: "Confirm the session's selected flight and hotel",
	}, s.handleProcessBooking)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "translate_text",
		Description: "Translate a common traveler phrase",
	}, s.handleTranslate)
}

func (s *Server) handleGetWeather(ctx context.Context, req *sdk.CallToolRequest, input WeatherInput) (*sdk.CallToolResult, WeatherOutput, error) {
	if input.Location == "" {
		return nil, WeatherOutput{}, fmt.Errorf("location is required")
	}
	if s.deps.Weather == nil {
		return nil, WeatherOutput{}, fmt.Errorf("weather source not configured")
	}
	payload, err := s.deps.Weather.Fetch(ctx, monitor.TripContext{Locations: []string{input.Location}})
	if err != nil {
		return nil, WeatherOutput{}, err
	}
	report, ok := payload.(monitor.WeatherReport)
	if !ok || len(report.Readings) == 0 {
		return nil, WeatherOutput{}, fmt.Errorf("no weather for %s", input.Location)
	}
	r := report.Readings[0]
	return nil, WeatherOutput{
		Location:  r.Location,
		TempC:     r.TempC,
		Condition: r.Condition,
		WindMS:    r.WindMS,
		Alerts:    monitor.AlertsFor(r),
	}, nil
}

func (s *Server) handleGetTransport(ctx context.Context, req *sdk.CallToolRequest, input TransportInput) (*sdk.CallToolResult, TransportOutput, error) {
	if input.Origin == "" || input.Destination == "" {
		return nil, TransportOutput{}, fmt.Errorf("origin and destination are required")
	}
	date, err := time.Parse("2006-01-02", input.TravelDate)
	if err != nil {
		return nil, TransportOutput{}, fmt.Errorf("travel_date must be YYYY-MM-DD: %v", err)
	}
	travelers := input.Travelers
	if travelers < 1 {
		travelers = 1
	}

	var flights []trip.FlightOption
	if s.deps.Flights != nil {
		flights, err = s.deps.Flights.SearchFlights(ctx, input.Origin, input.Destination, date, travelers)
		if err != nil {
			s.deps.Logger.Warn("mcptool: flight search failed, serving fallback",
				"origin", input.Origin, "destination", input.Destination, "error", err)
			flights = nil
		}
	}
	if len(flights) == 0 {
		flights = amadeus.FallbackFlights(input.Origin, input.Destination, date)
	}
	return nil, TransportOutput{Flights: flights, Source: flights[0].Source}, nil
}

func (s *Server) handleGetAccommodation(ctx context.Context, req *sdk.CallToolRequest, input AccommodationInput) (*sdk.CallToolResult, AccommodationOutput, error) {
	if input.City == "" {
		return nil, AccommodationOutput{}, fmt.Errorf("city is required")
	}
	checkIn, err := time.Parse("2006-01-02", input.CheckinDate)
	if err != nil {
		return nil, AccommodationOutput{}, fmt.Errorf("checkin_date must be YYYY-MM-DD: %v", err)
	}
	checkOut, err := time.Parse("2006-01-02", input.CheckoutDate)
	if err != nil {
		return nil, AccommodationOutput{}, fmt.Errorf("checkout_date must be YYYY-MM-DD: %v", err)
	}
	if !checkOut.After(checkIn) {
		return nil, AccommodationOutput{}, fmt.Errorf("checkout_date must be after checkin_date")
	}
	guests := input.Guests
	if guests < 1 {
		guests = 2
	}

	var hotels []trip.HotelOption
	if s.deps.Hotels != nil {
		hotels, err = s.deps.Hotels.SearchHotels(ctx, input.City, checkIn, checkOut, guests)
		if err != nil {
			s.deps.Logger.Warn("mcptool: hotel search failed, serving fallback",
				"city", input.City, "error", err)
			hotels = nil
		}
	}
	if len(hotels) == 0 {
		hotels = amadeus.FallbackHotels(input.City, checkIn, checkOut)
	}
	return nil, AccommodationOutput{Hotels: hotels, Source: hotels[0].Source}, nil
}

func (s *Server) handleGetEvents(ctx context.Context, req *sdk.CallToolRequest, input EventsInput) (*sdk.CallToolResult, EventsOutput, error) {
	if input.Location == "" {
		return nil, EventsOutput{}, fmt.Errorf("location is required")
	}
	if s.deps.Events == nil {
		return nil, EventsOutput{}, fmt.Errorf("events source not configured")
	}
	payload, err := s.deps.Events.Fetch(ctx, monitor.TripContext{Locations: []string{input.Location}})
	if err != nil {
		return nil, EventsOutput{}, err
	}
	report, ok := payload.(monitor.EventsReport)
	if !ok || len(report.Locations) == 0 {
		return nil, EventsOutput{}, fmt.Errorf("no events for %s", input.Location)
	}
	loc := report.Locations[0]
	return nil, EventsOutput{Location: loc.Location, Events: loc.Events}, nil
}

func (s *Server) handleProcessBooking(ctx context.Context, req *sdk.CallToolRequest, input BookingInput) (*sdk.CallToolResult, BookingOutput, error) {
	if input.SessionID == "" {
		return nil, BookingOutput{}, fmt.Errorf("session_id is required")
	}
	if s.deps.Booking == nil {
		return nil, BookingOutput{}, fmt.Errorf("booking flow not configured")
	}
	conf, err := s.deps.Booking.Confirm(ctx, input.SessionID, booking.Contact{
		Name:  input.Name,
		Email: input.Email,
		Phone: input.Phone,
	})
	if err != nil {
		// Redirect errors already name the step the caller must finish.
		return nil, BookingOutput{}, err
	}
	return nil, BookingOutput{
		Reference:   conf.Reference,
		GrandTotal:  conf.Rollup.GrandTotal,
		Remaining:   conf.Rollup.Remaining,
		UnderBudget: conf.Rollup.UnderBudget,
		Itinerary:   conf.Itinerary.Content,
		BookedAt:    conf.BookedAt,
	}, nil
}

func (s *Server) handleTranslate(ctx context.Context, req *sdk.CallToolRequest, input TranslateInput) (*sdk.CallToolResult, TranslateOutput, error) {
	if input.Text == "" || input.TargetLanguage == "" {
		return nil, TranslateOutput{}, fmt.Errorf("text and target_language are required")
	}
	out, ok := phrasebook.Translate(input.Text, input.TargetLanguage)
	return nil, TranslateOutput{TranslatedText: out, Translated: ok}, nil
}
