package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/escale/amadeus"
	"github.com/hazyhaar/escale/booking"
	"github.com/hazyhaar/escale/catalog"
	"github.com/hazyhaar/escale/idgen"
	"github.com/hazyhaar/escale/monitor"
	"github.com/hazyhaar/escale/outbox"
	"github.com/hazyhaar/escale/phrasebook"
	"github.com/hazyhaar/escale/planner"
	"github.com/hazyhaar/escale/trip"
)

// app holds the wired services the HTTP handlers close over.
type app struct {
	// runCtx is the server lifetime. Monitoring sessions run on it so they
	// outlive the request that created them.
	runCtx context.Context

	logger    *slog.Logger
	plan      planner.Client
	search    *amadeus.Client // nil when credentials absent
	mgr       *monitor.Manager
	flow      *booking.Flow
	outbox    *outbox.Outbox
	providers []monitor.Provider
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok", "version": version})
	})

	r.Get("/api/destinations", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"destinations": catalog.Destinations()})
	})

	r.Get("/api/themes", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]any{"themes": catalog.Themes()})
	})

	r.Post("/api/translate", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text           string `json:"text"`
			TargetLanguage string `json:"target_language"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		if req.Text == "" || req.TargetLanguage == "" {
			writeError(w, 400, fmt.Errorf("text and target_language are required"))
			return
		}
		out, ok := phrasebook.Translate(req.Text, req.TargetLanguage)
		writeJSON(w, 200, map[string]any{"translated_text": out, "translated": ok})
	})

	r.Get("/api/weather-update/{destination}", func(w http.ResponseWriter, r *http.Request) {
		dest := chi.URLParam(r, "destination")
		p := a.provider(monitor.SourceWeather)
		if p == nil {
			writeError(w, 503, fmt.Errorf("weather source not configured"))
			return
		}
		payload, err := p.Fetch(r.Context(), monitor.TripContext{Locations: []string{dest}})
		if err != nil {
			writeError(w, 502, err)
			return
		}
		report, ok := payload.(monitor.WeatherReport)
		if !ok || len(report.Readings) == 0 {
			writeError(w, 502, fmt.Errorf("no weather reading for %s", dest))
			return
		}
		rd := report.Readings[0]
		alerts := monitor.AlertsFor(rd)
		if alerts == nil {
			alerts = []string{}
		}
		writeJSON(w, 200, map[string]any{
			"location":  rd.Location,
			"temp_c":    rd.TempC,
			"condition": rd.Condition,
			"wind_ms":   rd.WindMS,
			"humidity":  rd.Humidity,
			"alerts":    alerts,
		})
	})

	r.Post("/api/generate-itinerary", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FromCity    string  `json:"from_city"`
			Destination string  `json:"destination"`
			Theme       string  `json:"theme"`
			Language    string  `json:"language"`
			Budget      float64 `json:"budget"`
			Travelers   int     `json:"travelers"`
			Duration    int     `json:"duration"`
			StartDate   string  `json:"start_date"`
			EndDate     string  `json:"end_date"`
			Monitor     bool    `json:"monitor"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		if req.Theme != "" && !catalog.ValidTheme(req.Theme) {
			writeError(w, 400, fmt.Errorf("unknown theme %q", req.Theme))
			return
		}
		if req.Travelers == 0 {
			req.Travelers = 1
		}
		tr := trip.Request{
			From:         req.FromCity,
			Destination:  req.Destination,
			Theme:        req.Theme,
			Language:     req.Language,
			Budget:       req.Budget,
			Travelers:    req.Travelers,
			DurationDays: req.Duration,
		}
		var err error
		if tr.StartDate, err = parseDate(req.StartDate); err != nil {
			writeError(w, 400, fmt.Errorf("start_date must be YYYY-MM-DD"))
			return
		}
		if tr.EndDate, err = parseDate(req.EndDate); err != nil {
			writeError(w, 400, fmt.Errorf("end_date must be YYYY-MM-DD"))
			return
		}
		if tr.EndDate.IsZero() && !tr.StartDate.IsZero() && tr.DurationDays > 0 {
			tr.EndDate = tr.StartDate.AddDate(0, 0, tr.DurationDays)
		}
		if err := tr.Validate(); err != nil {
			writeError(w, 400, err)
			return
		}

		res, err := a.plan.Generate(r.Context(), planner.RequestFrom(tr))
		if err != nil {
			writeError(w, 502, err)
			return
		}

		sid := idgen.New()
		if err := a.flow.SubmitTrip(r.Context(), sid, tr, res.Itinerary); err != nil {
			writeError(w, 500, err)
			return
		}
		monitoring := false
		if req.Monitor {
			if err := a.startMonitoring(sid, tr, res.Itinerary); err != nil {
				a.logger.Warn("monitor start failed", "session_id", sid, "error", err)
			} else {
				monitoring = true
			}
		}
		writeJSON(w, 201, map[string]any{
			"session_id": sid,
			"state":      booking.StateFlightPending,
			"itinerary":  res.Itinerary,
			"monitoring": monitoring,
		})
	})

	r.Post("/api/get-transport-options", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Origin      string `json:"origin"`
			Destination string `json:"destination"`
			TravelDate  string `json:"travel_date"`
			Travelers   int    `json:"travelers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		if req.Origin == "" || req.Destination == "" {
			writeError(w, 400, fmt.Errorf("origin and destination are required"))
			return
		}
		date, err := parseDate(req.TravelDate)
		if err != nil || date.IsZero() {
			writeError(w, 400, fmt.Errorf("travel_date must be YYYY-MM-DD"))
			return
		}
		if req.Travelers < 1 {
			req.Travelers = 1
		}
		var flights []trip.FlightOption
		if a.search != nil {
			flights, err = a.search.SearchFlights(r.Context(), req.Origin, req.Destination, date, req.Travelers)
			if err != nil {
				a.logger.Warn("flight search failed, serving fallback", "error", err)
				flights = nil
			}
		}
		if len(flights) == 0 {
			flights = amadeus.FallbackFlights(req.Origin, req.Destination, date)
		}
		writeJSON(w, 200, map[string]any{"flights": flights, "source": flights[0].Source})
	})

	r.Post("/api/get-accommodation-options", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			City         string `json:"city"`
			CheckinDate  string `json:"checkin_date"`
			CheckoutDate string `json:"checkout_date"`
			Guests       int    `json:"guests"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		if req.City == "" {
			writeError(w, 400, fmt.Errorf("city is required"))
			return
		}
		checkIn, err := parseDate(req.CheckinDate)
		if err != nil || checkIn.IsZero() {
			writeError(w, 400, fmt.Errorf("checkin_date must be YYYY-MM-DD"))
			return
		}
		checkOut, err := parseDate(req.CheckoutDate)
		if err != nil || checkOut.IsZero() {
			writeError(w, 400, fmt.Errorf("checkout_date must be YYYY-MM-DD"))
			return
		}
		if !checkOut.After(checkIn) {
			writeError(w, 400, fmt.Errorf("checkout_date must be after checkin_date"))
			return
		}
		if req.Guests < 1 {
			req.Guests = 2
		}
		var hotels []trip.HotelOption
		if a.search != nil {
			hotels, err = a.search.SearchHotels(r.Context(), req.City, checkIn, checkOut, req.Guests)
			if err != nil {
				a.logger.Warn("hotel search failed, serving fallback", "error", err)
				hotels = nil
			}
		}
		if len(hotels) == 0 {
			hotels = amadeus.FallbackHotels(req.City, checkIn, checkOut)
		}
		writeJSON(w, 200, map[string]any{"hotels": hotels, "source": hotels[0].Source})
	})

	r.Post("/api/book-trip", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID string `json:"session_id"`
			Name      string `json:"name"`
			Email     string `json:"email"`
			Phone     string `json:"phone"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		if req.SessionID == "" {
			writeError(w, 400, fmt.Errorf("session_id is required"))
			return
		}
		a.confirmBooking(w, r, req.SessionID, booking.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone})
	})

	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, 200, map[string]any{"sessions": a.mgr.List(), "count": a.mgr.Len()})
		})

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Post("/monitor/start", func(w http.ResponseWriter, r *http.Request) {
				sid := chi.URLParam(r, "sessionID")
				sel, err := a.flow.Selections(r.Context(), sid)
				if err != nil {
					writeBookingError(w, err)
					return
				}
				if sel.Travel == nil {
					writeError(w, 404, fmt.Errorf("session %s has no trip data", sid))
					return
				}
				itin := sel.Travel.Preview
				if sel.Final != nil {
					itin = sel.Final.Itinerary
				}
				if err := a.startMonitoring(sid, sel.Travel.Request, itin); err != nil {
					writeError(w, 500, err)
					return
				}
				if sel.Flight != nil {
					if sess, ok := a.mgr.Get(sid); ok {
						sess.SetFlightNumber(sel.Flight.FlightNumber)
					}
				}
				writeJSON(w, 200, map[string]any{"session_id": sid, "monitoring": true})
			})

			r.Post("/monitor/stop", func(w http.ResponseWriter, r *http.Request) {
				sid := chi.URLParam(r, "sessionID")
				if !a.mgr.Stop(sid) {
					writeError(w, 404, fmt.Errorf("no monitoring session %s", sid))
					return
				}
				writeJSON(w, 200, map[string]any{"session_id": sid, "monitoring": false})
			})

			r.Post("/monitor/force/{source}", func(w http.ResponseWriter, r *http.Request) {
				sess, ok := a.session(w, r)
				if !ok {
					return
				}
				src := monitor.SourceID(chi.URLParam(r, "source"))
				if err := sess.ForceUpdate(r.Context(), src); err != nil {
					switch {
					case errors.Is(err, monitor.ErrUnknownSource):
						writeError(w, 404, err)
					case errors.Is(err, monitor.ErrNotActive):
						writeError(w, 409, err)
					default:
						writeError(w, 502, err)
					}
					return
				}
				snap, _ := sess.Snapshot(src)
				writeJSON(w, 200, snap)
			})

			r.Put("/monitor/interval/{source}", func(w http.ResponseWriter, r *http.Request) {
				sess, ok := a.session(w, r)
				if !ok {
					return
				}
				var req struct {
					Interval string `json:"interval"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				d, err := time.ParseDuration(req.Interval)
				if err != nil {
					writeError(w, 400, fmt.Errorf("interval must be a duration like 5m"))
					return
				}
				src := monitor.SourceID(chi.URLParam(r, "source"))
				if err := sess.SetInterval(src, d); err != nil {
					switch {
					case errors.Is(err, monitor.ErrUnknownSource):
						writeError(w, 404, err)
					case errors.Is(err, monitor.ErrInvalidInterval):
						writeError(w, 400, err)
					default:
						writeError(w, 500, err)
					}
					return
				}
				writeJSON(w, 200, map[string]string{"source": string(src), "interval": d.String()})
			})

			r.Get("/monitor/status", func(w http.ResponseWriter, r *http.Request) {
				sess, ok := a.session(w, r)
				if !ok {
					return
				}
				writeJSON(w, 200, sess.Stats())
			})

			r.Get("/monitor/changes", func(w http.ResponseWriter, r *http.Request) {
				sess, ok := a.session(w, r)
				if !ok {
					return
				}
				after := queryInt64(r, "after", 0)
				recs, next := sess.Changes(after)
				if recs == nil {
					recs = []monitor.ChangeRecord{}
				}
				writeJSON(w, 200, map[string]any{"changes": recs, "next": next})
			})

			r.Get("/monitor/snapshots/{source}", func(w http.ResponseWriter, r *http.Request) {
				sess, ok := a.session(w, r)
				if !ok {
					return
				}
				src := monitor.SourceID(chi.URLParam(r, "source"))
				snap, ok := sess.Snapshot(src)
				if !ok {
					writeError(w, 404, fmt.Errorf("no snapshot for %s yet", src))
					return
				}
				writeJSON(w, 200, snap)
			})

			r.Get("/itinerary", func(w http.ResponseWriter, r *http.Request) {
				sid := chi.URLParam(r, "sessionID")
				if sess, ok := a.mgr.Get(sid); ok {
					writeJSON(w, 200, map[string]string{"session_id": sid, "content": sess.ItineraryContent()})
					return
				}
				sel, err := a.flow.Selections(r.Context(), sid)
				if err != nil {
					writeBookingError(w, err)
					return
				}
				switch {
				case sel.Final != nil:
					writeJSON(w, 200, map[string]string{"session_id": sid, "content": sel.Final.Itinerary.Content})
				case sel.Travel != nil:
					writeJSON(w, 200, map[string]string{"session_id": sid, "content": sel.Travel.Preview.Content})
				default:
					writeError(w, 404, fmt.Errorf("session %s has no itinerary", sid))
				}
			})

			r.Get("/adaptations", func(w http.ResponseWriter, r *http.Request) {
				sess, ok := a.session(w, r)
				if !ok {
					return
				}
				list := sess.Adaptations()
				if list == nil {
					list = []monitor.Adaptation{}
				}
				writeJSON(w, 200, map[string]any{"adaptations": list, "pending": len(sess.PendingAdaptations())})
			})

			r.Post("/adaptations/apply-all", func(w http.ResponseWriter, r *http.Request) {
				sess, ok := a.session(w, r)
				if !ok {
					return
				}
				outcomes := sess.ApplyAllAdaptations()
				if outcomes == nil {
					outcomes = []monitor.ApplyOutcome{}
				}
				writeJSON(w, 200, map[string]any{"results": outcomes, "content": sess.ItineraryContent()})
			})

			r.Post("/adaptations/{adaptationID}/apply", func(w http.ResponseWriter, r *http.Request) {
				sess, ok := a.session(w, r)
				if !ok {
					return
				}
				if err := sess.ApplyAdaptation(chi.URLParam(r, "adaptationID")); err != nil {
					writeAdaptationError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "applied", "content": sess.ItineraryContent()})
			})

			r.Post("/adaptations/{adaptationID}/dismiss", func(w http.ResponseWriter, r *http.Request) {
				sess, ok := a.session(w, r)
				if !ok {
					return
				}
				if err := sess.DismissAdaptation(chi.URLParam(r, "adaptationID")); err != nil {
					writeAdaptationError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "dismissed"})
			})

			r.Get("/notifications", func(w http.ResponseWriter, r *http.Request) {
				sid := chi.URLParam(r, "sessionID")
				limit := queryInt(r, "limit", 20)
				list, err := a.outbox.Recent(r.Context(), sid, limit)
				if err != nil {
					writeError(w, 500, err)
					return
				}
				pending, err := a.outbox.Pending(r.Context(), sid)
				if err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, map[string]any{"notifications": list, "pending": pending})
			})

			r.Get("/booking", func(w http.ResponseWriter, r *http.Request) {
				sid := chi.URLParam(r, "sessionID")
				sel, err := a.flow.Selections(r.Context(), sid)
				if err != nil {
					writeBookingError(w, err)
					return
				}
				resp := map[string]any{"session_id": sid, "state": sel.State, "selections": sel}
				if sel.Flight != nil && sel.Hotel != nil {
					q, err := a.flow.Quote(r.Context(), sid)
					if err != nil {
						writeBookingError(w, err)
						return
					}
					resp["rollup"] = q
				}
				writeJSON(w, 200, resp)
			})

			r.Post("/booking/flight", func(w http.ResponseWriter, r *http.Request) {
				sid := chi.URLParam(r, "sessionID")
				var opt trip.FlightOption
				if err := json.NewDecoder(r.Body).Decode(&opt); err != nil {
					writeError(w, 400, err)
					return
				}
				if err := a.flow.SelectFlight(r.Context(), sid, opt); err != nil {
					writeBookingError(w, err)
					return
				}
				if opt.FlightNumber != "" {
					if sess, ok := a.mgr.Get(sid); ok {
						sess.SetFlightNumber(opt.FlightNumber)
					}
				}
				state, err := a.flow.State(r.Context(), sid)
				if err != nil {
					writeBookingError(w, err)
					return
				}
				writeJSON(w, 200, map[string]any{"state": state, "selected_flight": opt})
			})

			r.Post("/booking/hotel", func(w http.ResponseWriter, r *http.Request) {
				sid := chi.URLParam(r, "sessionID")
				var opt trip.HotelOption
				if err := json.NewDecoder(r.Body).Decode(&opt); err != nil {
					writeError(w, 400, err)
					return
				}
				if err := a.flow.SelectHotel(r.Context(), sid, opt); err != nil {
					writeBookingError(w, err)
					return
				}
				state, err := a.flow.State(r.Context(), sid)
				if err != nil {
					writeBookingError(w, err)
					return
				}
				writeJSON(w, 200, map[string]any{"state": state, "selected_hotel": opt})
			})

			r.Post("/booking/confirm", func(w http.ResponseWriter, r *http.Request) {
				sid := chi.URLParam(r, "sessionID")
				var req struct {
					Name  string `json:"name"`
					Email string `json:"email"`
					Phone string `json:"phone"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				a.confirmBooking(w, r, sid, booking.Contact{Name: req.Name, Email: req.Email, Phone: req.Phone})
			})

			r.Post("/booking/edit", func(w http.ResponseWriter, r *http.Request) {
				sid := chi.URLParam(r, "sessionID")
				var req struct {
					Step string `json:"step"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				state, err := a.flow.EditSelections(r.Context(), sid, booking.Step(req.Step))
				if err != nil {
					writeBookingError(w, err)
					return
				}
				writeJSON(w, 200, map[string]any{"state": state})
			})

			r.Post("/booking/reset", func(w http.ResponseWriter, r *http.Request) {
				sid := chi.URLParam(r, "sessionID")
				if err := a.flow.Reset(r.Context(), sid); err != nil {
					writeBookingError(w, err)
					return
				}
				writeJSON(w, 200, map[string]any{"state": booking.StateNoData})
			})
		})
	})

	return r
}

// startMonitoring runs a session on the server context so it outlives the
// request that created it, and bridges its changes into the outbox.
func (a *app) startMonitoring(id string, req trip.Request, itin trip.Itinerary) error {
	sess, err := a.mgr.Create(a.runCtx, id, req, itin, nil)
	if err != nil {
		return err
	}
	sess.SubscribeAll(a.outbox.Subscriber(id))
	return nil
}

// confirmBooking finalizes the booking and pushes the regenerated itinerary
// into the live monitoring session when one exists.
func (a *app) confirmBooking(w http.ResponseWriter, r *http.Request, sid string, contact booking.Contact) {
	conf, err := a.flow.Confirm(r.Context(), sid, contact)
	if err != nil {
		writeBookingError(w, err)
		return
	}
	if sess, ok := a.mgr.Get(sid); ok {
		sess.ReplaceItinerary(conf.Itinerary)
	}
	writeJSON(w, 200, conf)
}

// session resolves the monitoring session from the path, writing a 404 when
// it is not found.
func (a *app) session(w http.ResponseWriter, r *http.Request) (*monitor.Session, bool) {
	sid := chi.URLParam(r, "sessionID")
	sess, ok := a.mgr.Get(sid)
	if !ok {
		writeError(w, 404, fmt.Errorf("no monitoring session %s", sid))
	}
	return sess, ok
}

// provider returns the configured provider for one source, nil when absent.
func (a *app) provider(src monitor.SourceID) monitor.Provider {
	for _, p := range a.providers {
		if p.Source() == src {
			return p
		}
	}
	return nil
}

func writeBookingError(w http.ResponseWriter, err error) {
	var redirect *booking.RedirectError
	switch {
	case errors.As(err, &redirect):
		writeJSON(w, 409, map[string]string{"error": redirect.Error(), "redirect_to": string(redirect.Step)})
	case errors.Is(err, booking.ErrInvalidContact), errors.Is(err, booking.ErrUnknownStep):
		writeError(w, 400, err)
	case errors.Is(err, booking.ErrRegeneration):
		writeJSON(w, 502, map[string]string{"error": err.Error(), "hint": "selections are kept, retry confirm"})
	case errors.Is(err, booking.ErrKeyNotFound):
		writeError(w, 404, err)
	default:
		writeError(w, 500, err)
	}
}

func writeAdaptationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, monitor.ErrAdaptationNotFound):
		writeError(w, 404, err)
	case errors.Is(err, monitor.ErrAdaptationSettled), errors.Is(err, monitor.ErrNoMatch):
		writeError(w, 409, err)
	default:
		writeError(w, 500, err)
	}
}

// parseDate accepts YYYY-MM-DD, returning the zero time for empty input.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func queryInt64(r *http.Request, key string, def int64) int64 {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return def
	}
	return n
}
