// Package mcptool exposes the travel service's tools over the Model
// Context Protocol, mirroring the agent tools of the conversational
// front end: weather, transport, accommodation, events, booking and
// translation.
package mcptool

import (
	"context"
	"log/slog"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/escale/booking"
	"github.com/hazyhaar/escale/monitor"
	"github.com/hazyhaar/escale/trip"
)

// FlightSearcher finds flight offers for a route and date.
type FlightSearcher interface {
	SearchFlights(ctx context.Context, origin, destination string, date time.Time, adults int) ([]trip.FlightOption, error)
}

// HotelSearcher finds stays for a city and date range.
type HotelSearcher interface {
	SearchHotels(ctx context.Context, city string, checkIn, checkOut time.Time, guests int) ([]trip.HotelOption, error)
}

// Booker runs the confirmation step of a booking session.
type Booker interface {
	Confirm(ctx context.Context, session string, contact booking.Contact) (*booking.Confirmation, error)
}

// Deps wires the surfaces the tools call. Flights and Hotels may be nil;
// those tools then serve generated fallback offers only.
type Deps struct {
	Weather monitor.Provider
	Events  monitor.Provider
	Flights FlightSearcher
	Hotels  HotelSearcher
	Booking Booker
	Logger  *slog.Logger
}

// Server hosts the travel tools.
type Server struct {
	deps Deps
	mcp  *sdk.Server
}

// NewServer builds the tool server. Version is reported to MCP clients
// during initialization.
func NewServer(deps Deps, version string) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{
		deps: deps,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "escale",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

// Run serves the tools on transport until ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
