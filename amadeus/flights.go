package amadeus

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/hazyhaar/escale/trip"
)

// flightOffersResponse mirrors the slice of the Flight Offers Search
// response this client reads.
type flightOffersResponse struct {
	Data []struct {
		Price struct {
			GrandTotal string `json:"grandTotal"`
			Total      string `json:"total"`
			Currency   string `json:"currency"`
		} `json:"price"`
		Itineraries []struct {
			Duration string `json:"duration"`
			Segments []struct {
				Departure struct {
					IataCode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"departure"`
				Arrival struct {
					IataCode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"arrival"`
				CarrierCode string `json:"carrierCode"`
				Number      string `json:"number"`
			} `json:"segments"`
		} `json:"itineraries"`
		ValidatingAirlineCodes []string `json:"validatingAirlineCodes"`
	} `json:"data"`
}

// SearchFlights queries the Flight Offers Search API for one-way offers and
// maps them onto canonical flight options. Offers without a usable price or
// segment are skipped.
func (c *Client) SearchFlights(ctx context.Context, origin, destination string, date time.Time, adults int) ([]trip.FlightOption, error) {
	if adults < 1 {
		adults = 1
	}
	q := url.Values{}
	q.Set("originLocationCode", CityCode(origin))
	q.Set("destinationLocationCode", CityCode(destination))
	q.Set("departureDate", date.Format("2006-01-02"))
	q.Set("adults", strconv.Itoa(adults))
	q.Set("max", "6")
	q.Set("currencyCode", "INR")
	q.Set("nonStop", "false")

	var wire flightOffersResponse
	if err := c.getJSON(ctx, "/v2/shopping/flight-offers", q, &wire); err != nil {
		return nil, fmt.Errorf("amadeus: flight search: %w", err)
	}

	flights := make([]trip.FlightOption, 0, len(wire.Data))
	for _, offer := range wire.Data {
		if len(offer.Itineraries) == 0 {
			continue
		}
		outbound := offer.Itineraries[0]
		if len(outbound.Segments) == 0 {
			continue
		}

		price := parsePrice(offer.Price.GrandTotal)
		if price <= 0 {
			price = parsePrice(offer.Price.Total)
		}
		if price <= 0 {
			continue
		}

		code := outbound.Segments[0].CarrierCode
		if code == "" && len(offer.ValidatingAirlineCodes) > 0 {
			code = offer.ValidatingAirlineCodes[0]
		}
		first := outbound.Segments[0]
		last := outbound.Segments[len(outbound.Segments)-1]

		flights = append(flights, trip.FlightOption{
			Airline:       airlineName(code),
			AirlineCode:   code,
			FlightNumber:  code + "-" + first.Number,
			DepartureTime: first.Departure.At,
			ArrivalTime:   last.Arrival.At,
			Duration:      parseDuration(outbound.Duration),
			Price:         price,
			Currency:      offer.Price.Currency,
			Stops:         len(outbound.Segments) - 1,
			Source:        "amadeus",
		})
	}
	return flights, nil
}

// airlineNames covers the carriers the searches actually return for this
// market. Unknown codes render as "<code> Airlines".
var airlineNames = map[string]string{
	"AI": "Air India",
	"6E": "IndiGo",
	"UK": "Vistara",
	"SG": "SpiceJet",
	"IX": "Air India Express",
	"QP": "Akasa Air",
	"EK": "Emirates",
	"QR": "Qatar Airways",
	"SQ": "Singapore Airlines",
	"BA": "British Airways",
	"LH": "Lufthansa",
	"AF": "Air France",
	"TK": "Turkish Airlines",
	"EY": "Etihad Airways",
	"TG": "Thai Airways",
}

func airlineName(code string) string {
	if name, ok := airlineNames[code]; ok {
		return name
	}
	if code != "" {
		return code + " Airlines"
	}
	return "Unknown Airline"
}
