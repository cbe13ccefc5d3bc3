package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/hazyhaar/escale/idgen"
	"github.com/hazyhaar/escale/trip"
)

// DefaultGeminiModel balances quality against free-tier quotas.
const DefaultGeminiModel = "gemini-1.5-flash"

// Gemini generates itineraries with one GenerateContent call per request.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini builds the Gemini client. An empty model name selects
// DefaultGeminiModel.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: gemini api key", ErrMissingCredential)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("planner: gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Generate(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	m := g.client.GenerativeModel(g.model)
	m.SetTemperature(0.4)
	m.SetMaxOutputTokens(4096)

	resp, err := m.GenerateContent(ctx, genai.Text(buildPrompt(req)))
	if err != nil {
		return nil, fmt.Errorf("planner: gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrEmptyPlan
	}

	var content string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			content = strings.TrimSpace(string(text))
			break
		}
	}
	if content == "" {
		return nil, ErrEmptyPlan
	}
	if looksLikeHTML(content) {
		content = Normalize(content)
	}

	id := idgen.New()
	return &PlanResult{
		Itinerary: trip.Itinerary{
			Content:          content,
			GeneratedAt:      time.Now().UTC(),
			PlannerSessionID: id,
		},
		SessionID: id,
	}, nil
}

// buildPrompt asks for exactly the plain-text day-by-day shape the change
// detector and adaptation engine work against.
func buildPrompt(req PlanRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %d-day trip", req.days())
	if req.FromCity != "" {
		fmt.Fprintf(&b, " from %s", req.FromCity)
	}
	fmt.Fprintf(&b, " to %s.\n", req.Destination)
	if req.Theme != "" {
		fmt.Fprintf(&b, "Theme: %s.\n", req.Theme)
	}
	if req.Budget > 0 && req.Travelers > 0 {
		fmt.Fprintf(&b, "Total budget %.0f for %d travelers.\n", req.Budget, req.Travelers)
	}
	if req.StartDate != "" && req.EndDate != "" {
		fmt.Fprintf(&b, "Dates: %s to %s.\n", req.StartDate, req.EndDate)
	}
	if f := req.SelectedFlight; f != nil {
		fmt.Fprintf(&b, "The traveler is booked on %s flight %s arriving %s; plan day one around the arrival.\n",
			f.Airline, f.FlightNumber, f.ArrivalTime)
	}
	if h := req.SelectedHotel; h != nil {
		fmt.Fprintf(&b, "Accommodation is booked at %s in %s.\n", h.Name, h.Location)
	}
	if req.Language != "" && !strings.EqualFold(req.Language, "en") && !strings.EqualFold(req.Language, "english") {
		fmt.Fprintf(&b, "Write the itinerary in %s.\n", req.Language)
	}
	b.WriteString("\nWrite plain text only, one paragraph per day, each starting with \"Day N:\". No markdown, no preamble, no closing remarks.")
	return b.String()
}
