package monitor

import (
	"fmt"
	"strings"
	"time"
)

// Detector compares the previous and new payload of one source and emits
// typed changes. Implementations must be pure: same inputs, same changes,
// no caller context.
type Detector interface {
	Detect(source SourceID, oldData, newData Payload) []Change
}

// Thresholds for the built-in rules.
const (
	tempAlertHigh    = 40.0 // °C, above is an extreme-heat alert
	tempAlertLow     = 5.0  // °C, below is an extreme-cold alert
	tempDeltaMedium  = 5.0  // °C, larger swings emit a medium change
	windRainAlert    = 10.0 // m/s, with rain in the condition
	windAlert        = 15.0 // m/s, regardless of condition
	delayDeltaHigh   = 10   // minutes, growth beyond this is high severity
	priceSwingNotify = 1000.0
)

// RuleDetector implements the built-in per-source comparison rules.
type RuleDetector struct{}

// Detect dispatches to the rule set for the source. Payloads of the wrong
// concrete type produce no changes; the caller guarantees shape per source.
func (RuleDetector) Detect(source SourceID, oldData, newData Payload) []Change {
	now := time.Now()
	var changes []Change
	switch source {
	case SourceWeather:
		o, ok1 := oldData.(WeatherReport)
		n, ok2 := newData.(WeatherReport)
		if ok1 && ok2 {
			changes = diffWeather(o, n)
		}
	case SourceTraffic:
		o, ok1 := oldData.(TrafficReport)
		n, ok2 := newData.(TrafficReport)
		if ok1 && ok2 {
			changes = diffTraffic(o, n)
		}
	case SourceEvents:
		o, ok1 := oldData.(EventsReport)
		n, ok2 := newData.(EventsReport)
		if ok1 && ok2 {
			changes = diffEvents(o, n)
		}
	case SourceFlightStatus:
		o, ok1 := oldData.(FlightStatus)
		n, ok2 := newData.(FlightStatus)
		if ok1 && ok2 {
			changes = diffFlight(o, n)
		}
	case SourceAvailability:
		o, ok1 := oldData.(Availability)
		n, ok2 := newData.(Availability)
		if ok1 && ok2 {
			changes = diffAvailability(o, n)
		}
	}
	for i := range changes {
		changes[i].Source = source
		changes[i].At = now
	}
	return changes
}

// AlertsFor derives the active alerts from one weather reading.
func AlertsFor(r WeatherReading) []string {
	var alerts []string
	if r.TempC > tempAlertHigh {
		alerts = append(alerts, fmt.Sprintf("Extreme heat warning (%.0f°C)", r.TempC))
	}
	if r.TempC < tempAlertLow {
		alerts = append(alerts, fmt.Sprintf("Extreme cold warning (%.0f°C)", r.TempC))
	}
	cond := strings.ToLower(r.Condition)
	if strings.Contains(cond, "thunderstorm") {
		alerts = append(alerts, "Thunderstorm alert")
	}
	if strings.Contains(cond, "rain") && r.WindMS > windRainAlert {
		alerts = append(alerts, "Heavy rain with strong winds")
	}
	if r.WindMS > windAlert {
		alerts = append(alerts, fmt.Sprintf("High wind warning (%.0f m/s)", r.WindMS))
	}
	return alerts
}

// diffWeather matches locations positionally and emits a high change per
// location whose new reading carries alerts, plus a medium change per
// temperature swing above the threshold.
func diffWeather(old, new WeatherReport) []Change {
	var changes []Change
	n := min(len(old.Readings), len(new.Readings))
	for i := 0; i < n; i++ {
		prev, cur := old.Readings[i], new.Readings[i]

		if alerts := AlertsFor(cur); len(alerts) > 0 {
			changes = append(changes, Change{
				Kind:     ChangeWeatherAlert,
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("Weather alert for %s: %s", cur.Location, strings.Join(alerts, "; ")),
				Recommendations: []string{
					"Plan indoor alternatives for outdoor activities",
					"Check local advisories before heading out",
				},
				Location: cur.Location,
				Payload:  alerts,
			})
		}

		delta := cur.TempC - prev.TempC
		if delta > tempDeltaMedium || delta < -tempDeltaMedium {
			rec := "Pack warmer clothing for cooler weather"
			if delta > 0 {
				rec = "Pack lighter clothing for warmer weather"
			}
			changes = append(changes, Change{
				Kind:            ChangeTemperature,
				Severity:        SeverityMedium,
				Message:         fmt.Sprintf("Temperature in %s changed from %.1f°C to %.1f°C", cur.Location, prev.TempC, cur.TempC),
				Recommendations: []string{rec},
				Location:        cur.Location,
			})
		}
	}
	return changes
}

// diffTraffic matches routes positionally. Delay growth strictly beyond the
// threshold is high severity; growth of exactly the threshold emits nothing.
// A longer incident list emits a medium change naming the appended incident.
func diffTraffic(old, new TrafficReport) []Change {
	var changes []Change
	n := min(len(old.Routes), len(new.Routes))
	for i := 0; i < n; i++ {
		prev, cur := old.Routes[i], new.Routes[i]
		label := cur.Route.From + " → " + cur.Route.To

		if cur.DelayMinutes-prev.DelayMinutes > delayDeltaHigh {
			changes = append(changes, Change{
				Kind:     ChangeTrafficDelay,
				Severity: SeverityHigh,
				Message: fmt.Sprintf("Traffic delay on %s grew from %d to %d minutes",
					label, prev.DelayMinutes, cur.DelayMinutes),
				Recommendations: []string{
					"Leave earlier than planned",
					"Check alternate routes",
				},
				Location: cur.Route.To,
			})
		}

		if len(cur.Incidents) > len(prev.Incidents) {
			latest := cur.Incidents[len(cur.Incidents)-1]
			changes = append(changes, Change{
				Kind:     ChangeTrafficIncident,
				Severity: SeverityMedium,
				Message:  fmt.Sprintf("New incident on %s: %s", label, latest),
				Location: cur.Route.To,
				Payload:  latest,
			})
		}
	}
	return changes
}

// diffEvents matches locations positionally and events by id. Events
// present only in the new snapshot emit one low change per location;
// an available → sold_out flip for an id present in both emits a medium
// change per event.
func diffEvents(old, new EventsReport) []Change {
	var changes []Change
	n := min(len(old.Locations), len(new.Locations))
	for i := 0; i < n; i++ {
		prev, cur := old.Locations[i], new.Locations[i]

		seen := make(map[string]Event, len(prev.Events))
		for _, e := range prev.Events {
			seen[e.ID] = e
		}

		var fresh []Event
		for _, e := range cur.Events {
			before, existed := seen[e.ID]
			if !existed {
				fresh = append(fresh, e)
				continue
			}
			if before.Availability == EventAvailable && e.Availability == EventSoldOut {
				changes = append(changes, Change{
					Kind:     ChangeEventSoldOut,
					Severity: SeverityMedium,
					Message:  fmt.Sprintf("Event sold out in %s: %s", cur.Location, e.Name),
					Location: cur.Location,
					Payload:  e,
				})
			}
		}
		if len(fresh) > 0 {
			names := make([]string, len(fresh))
			for j, e := range fresh {
				names[j] = e.Name
			}
			changes = append(changes, Change{
				Kind:     ChangeNewEvents,
				Severity: SeverityLow,
				Message:  fmt.Sprintf("%d new events in %s: %s", len(fresh), cur.Location, strings.Join(names, ", ")),
				Recommendations: []string{
					"Check availability before adding to your plan",
				},
				Location: cur.Location,
				Payload:  fresh,
			})
		}
	}
	return changes
}

// diffFlight emits a high change when a delay flag appears and a
// medium/low change for price swings beyond the notification threshold
// (medium when the price went up, low when it went down).
func diffFlight(old, new FlightStatus) []Change {
	var changes []Change
	if !old.Delayed && new.Delayed {
		changes = append(changes, Change{
			Kind:     ChangeFlightDelay,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("Flight %s delayed by %d minutes", new.FlightNumber, new.DelayMinutes),
			Recommendations: []string{
				"Reschedule first-day activities",
				"Notify your hotel of a late arrival",
			},
			Payload: new.DelayMinutes,
		})
	}
	if swing := new.PriceChange; swing > priceSwingNotify || swing < -priceSwingNotify {
		sev := SeverityLow
		msg := fmt.Sprintf("Flight price dropped by %.0f", -swing)
		if swing > 0 {
			sev = SeverityMedium
			msg = fmt.Sprintf("Flight price increased by %.0f", swing)
		}
		changes = append(changes, Change{
			Kind:     ChangePrice,
			Severity: sev,
			Message:  msg,
			Payload:  swing,
		})
	}
	return changes
}

// diffAvailability emits a high change when hotels stop being available and
// a low change when last-minute deals appear.
func diffAvailability(old, new Availability) []Change {
	var changes []Change
	if old.HotelsAvailable && !new.HotelsAvailable {
		changes = append(changes, Change{
			Kind:     ChangeAvailability,
			Severity: SeverityHigh,
			Message:  "Hotels are no longer available for your dates",
			Recommendations: []string{
				"Re-run the accommodation search",
				"Consider nearby areas or adjusted dates",
			},
		})
	}
	if !old.LastMinuteDeals && new.LastMinuteDeals {
		changes = append(changes, Change{
			Kind:     ChangeLastMinuteDeal,
			Severity: SeverityLow,
			Message:  "Last-minute hotel deals are available",
		})
	}
	return changes
}
