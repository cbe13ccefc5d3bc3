package sources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/hazyhaar/escale/monitor"
)

// DefaultWeatherBaseURL is the OpenWeather current-conditions endpoint.
const DefaultWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// Weather fetches current conditions for every trip location, in trip
// order, metric units.
type Weather struct {
	cfg Config
}

// NewWeather builds the live weather adapter.
func NewWeather(cfg Config) *Weather {
	cfg.defaults()
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultWeatherBaseURL
	}
	return &Weather{cfg: cfg}
}

// Source implements monitor.Provider.
func (w *Weather) Source() monitor.SourceID { return monitor.SourceWeather }

// weatherResponse is the upstream shape. Condition comes from
// weather[0].main, falling back to weather[0].description.
type weatherResponse struct {
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Fetch implements monitor.Provider. One upstream call per location; any
// failing location fails the whole fetch so the report never carries a
// partial location list.
func (w *Weather) Fetch(ctx context.Context, tc monitor.TripContext) (monitor.Payload, error) {
	if w.cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: weather api key", ErrMissingCredential)
	}

	readings := make([]monitor.WeatherReading, 0, len(tc.Locations))
	for _, loc := range tc.Locations {
		q := url.Values{}
		q.Set("q", loc)
		q.Set("appid", w.cfg.APIKey)
		q.Set("units", "metric")

		var raw weatherResponse
		if err := getJSON(ctx, w.cfg.Client, w.cfg.BaseURL+"/weather?"+q.Encode(), &raw); err != nil {
			return nil, fmt.Errorf("weather %s: %w", loc, err)
		}

		cond := ""
		if len(raw.Weather) > 0 {
			cond = raw.Weather[0].Main
			if cond == "" {
				cond = raw.Weather[0].Description
			}
		}
		readings = append(readings, monitor.WeatherReading{
			Location:  loc,
			TempC:     raw.Main.Temp,
			Condition: cond,
			WindMS:    raw.Wind.Speed,
			Humidity:  raw.Main.Humidity,
		})
	}
	return monitor.WeatherReport{Readings: readings}, nil
}
