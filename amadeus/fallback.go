package amadeus

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hazyhaar/escale/trip"
)

// Fallback offers keep the search surfaces usable without credentials. They
// are deterministic per route and city so the UI stays stable, and every
// option carries Source "fallback" so callers can label estimated data.

func routeSeed(parts ...string) uint32 {
	var h uint32
	for _, p := range parts {
		for _, c := range strings.ToLower(strings.TrimSpace(p)) {
			h = h*31 + uint32(c)
		}
		h = h*31 + '/'
	}
	return h
}

var fallbackCarriers = []struct {
	name  string
	code  string
	mod   float64
	stops int
}{
	{"IndiGo", "6E", 1.00, 0},
	{"Air India", "AI", 1.18, 0},
	{"Vistara", "UK", 1.32, 0},
	{"SpiceJet", "SG", 0.85, 1},
	{"Air India Express", "IX", 0.75, 1},
}

// FallbackFlights generates plausible offers for the route on the date.
func FallbackFlights(origin, destination string, date time.Time) []trip.FlightOption {
	seed := routeSeed(origin, destination)
	base := 3500 + float64(seed%40)*100
	baseMinutes := 75 + int(seed%8)*15

	flights := make([]trip.FlightOption, 0, len(fallbackCarriers))
	for i, carrier := range fallbackCarriers {
		price := math.Round(base*carrier.mod/5) * 5
		minutes := baseMinutes
		if carrier.stops > 0 {
			minutes += 90
		}
		dep := time.Date(date.Year(), date.Month(), date.Day(), 6+i*3, int(seed%4)*15, 0, 0, time.UTC)
		arr := dep.Add(time.Duration(minutes) * time.Minute)

		flights = append(flights, trip.FlightOption{
			Airline:       carrier.name,
			AirlineCode:   carrier.code,
			FlightNumber:  fmt.Sprintf("%s-%d", carrier.code, 100+int((seed+uint32(i)*37)%800)),
			DepartureTime: dep.Format(time.RFC3339),
			ArrivalTime:   arr.Format(time.RFC3339),
			Duration:      formatMinutes(minutes),
			Price:         price,
			Currency:      "INR",
			Stops:         carrier.stops,
			Source:        "fallback",
		})
	}
	return flights
}

var fallbackStays = []struct {
	name      string
	area      string
	mod       float64
	rating    float64
	amenities []string
}{
	{"Grand Palace Hotel", "City Center", 2.8, 4.6, []string{"WiFi", "Pool", "Breakfast"}},
	{"Riverside Boutique Stay", "Old Town", 1.7, 4.4, []string{"WiFi", "Breakfast"}},
	{"Business Comfort Inn", "Business District", 1.2, 4.1, []string{"WiFi", "Room Service"}},
	{"Backpacker Lodge", "Near Station", 0.6, 3.8, []string{"WiFi"}},
	{"Luxury Bay Resort", "Waterfront", 4.5, 4.8, []string{"WiFi", "Pool", "Spa", "Breakfast"}},
}

// FallbackHotels generates plausible stays for the city and dates.
func FallbackHotels(city string, checkIn, checkOut time.Time) []trip.HotelOption {
	seed := routeSeed(city)
	base := 1800 + float64(seed%12)*100

	hotels := make([]trip.HotelOption, 0, len(fallbackStays))
	for i, stay := range fallbackStays {
		perNight := math.Round(base*stay.mod/10) * 10
		hotels = append(hotels, trip.HotelOption{
			Name:          stay.name,
			HotelID:       fmt.Sprintf("FB-%s-%d", CityCode(city), i+1),
			Location:      stay.area + ", " + city,
			PricePerNight: perNight,
			Rating:        stay.rating,
			Currency:      "INR",
			Tier:          Tier(perNight),
			Amenities:     stay.amenities,
			Source:        "fallback",
		})
	}
	return hotels
}
