package amadeus

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/hazyhaar/escale/trip"
)

type hotelListResponse struct {
	Data []struct {
		HotelID string `json:"hotelId"`
		Name    string `json:"name"`
	} `json:"data"`
}

type hotelOffersResponse struct {
	Data []struct {
		Hotel struct {
			HotelID  string `json:"hotelId"`
			Name     string `json:"name"`
			CityCode string `json:"cityCode"`
			Rating   string `json:"rating"`
		} `json:"hotel"`
		Available bool `json:"available"`
		Offers    []struct {
			Price struct {
				Total    string `json:"total"`
				Currency string `json:"currency"`
			} `json:"price"`
		} `json:"offers"`
	} `json:"data"`
}

// SearchHotels lists hotels for the city, then prices the first batch of
// them for the stay. Per-night prices derive from the offer total across
// the nights of the stay.
func (c *Client) SearchHotels(ctx context.Context, city string, checkIn, checkOut time.Time, guests int) ([]trip.HotelOption, error) {
	if guests < 1 {
		guests = 1
	}

	listQ := url.Values{}
	listQ.Set("cityCode", CityCode(city))
	listQ.Set("radius", "5")
	listQ.Set("radiusUnit", "KM")
	listQ.Set("hotelSource", "ALL")

	var list hotelListResponse
	if err := c.getJSON(ctx, "/v1/reference-data/locations/hotels/by-city", listQ, &list); err != nil {
		return nil, fmt.Errorf("amadeus: hotel list: %w", err)
	}
	if len(list.Data) == 0 {
		return nil, fmt.Errorf("amadeus: no hotels listed for %s", city)
	}

	// The offers endpoint rate-limits on id count.
	ids := make([]string, 0, 20)
	for _, h := range list.Data {
		if h.HotelID == "" {
			continue
		}
		ids = append(ids, h.HotelID)
		if len(ids) == 20 {
			break
		}
	}

	offersQ := url.Values{}
	offersQ.Set("hotelIds", strings.Join(ids, ","))
	offersQ.Set("checkInDate", checkIn.Format("2006-01-02"))
	offersQ.Set("checkOutDate", checkOut.Format("2006-01-02"))
	offersQ.Set("adults", strconv.Itoa(guests))
	offersQ.Set("roomQuantity", "1")
	offersQ.Set("currency", "INR")
	offersQ.Set("bestRateOnly", "true")

	var offers hotelOffersResponse
	if err := c.getJSON(ctx, "/v3/shopping/hotel-offers", offersQ, &offers); err != nil {
		return nil, fmt.Errorf("amadeus: hotel offers: %w", err)
	}

	nights := stayNights(checkIn, checkOut)
	hotels := make([]trip.HotelOption, 0, len(offers.Data))
	for _, item := range offers.Data {
		if !item.Available || len(item.Offers) == 0 {
			continue
		}
		total := parsePrice(item.Offers[0].Price.Total)
		if total <= 0 {
			continue
		}
		perNight := math.Round(total / float64(nights))

		hotels = append(hotels, trip.HotelOption{
			Name:          item.Hotel.Name,
			HotelID:       item.Hotel.HotelID,
			Location:      city,
			PricePerNight: perNight,
			Rating:        parseRating(item.Hotel.Rating),
			Currency:      item.Offers[0].Price.Currency,
			Tier:          Tier(perNight),
			Source:        "amadeus",
		})
	}
	return hotels, nil
}

// stayNights counts nights between the dates, a started night counting
// whole, never less than one.
func stayNights(checkIn, checkOut time.Time) int {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 1
	}
	nights := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		nights++
	}
	return nights
}

// parseRating reads the star-rating string, clamped to 5, defaulting to 4
// when the endpoint omits it.
func parseRating(s string) float64 {
	r, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || r <= 0 {
		return 4.0
	}
	return math.Min(r, 5)
}

// cityCodes maps the destinations this service plans for onto IATA codes.
var cityCodes = map[string]string{
	"delhi":     "DEL",
	"new delhi": "DEL",
	"mumbai":    "BOM",
	"bangalore": "BLR",
	"bengaluru": "BLR",
	"chennai":   "MAA",
	"kolkata":   "CCU",
	"hyderabad": "HYD",
	"pune":      "PNQ",
	"ahmedabad": "AMD",
	"goa":       "GOI",
	"kochi":     "COK",
	"jaipur":    "JAI",
	"udaipur":   "UDR",
	"varanasi":  "VNS",
	"london":    "LHR",
	"paris":     "CDG",
	"new york":  "JFK",
	"tokyo":     "NRT",
	"singapore": "SIN",
	"dubai":     "DXB",
	"bangkok":   "BKK",
	"sydney":    "SYD",
}

// CityCode resolves a city name to its IATA code. Unknown cities fall back
// to the first three letters uppercased, which is what the search APIs
// reject loudly rather than silently misroute.
func CityCode(city string) string {
	name := strings.ToLower(strings.TrimSpace(city))
	if code, ok := cityCodes[name]; ok {
		return code
	}
	var letters []rune
	for _, r := range strings.ToUpper(name) {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
			if len(letters) == 3 {
				break
			}
		}
	}
	return string(letters)
}

// Tier labels a per-night price for the budget filter: at or under 3000 is
// budget, under 8000 mid-range, luxury past that.
func Tier(pricePerNight float64) string {
	switch {
	case pricePerNight <= 3000:
		return "budget"
	case pricePerNight < 8000:
		return "mid-range"
	default:
		return "luxury"
	}
}
