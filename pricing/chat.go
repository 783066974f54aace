package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/rxprice/observe"
	"github.com/jonwraymond/rxprice/resilience"
	"github.com/jonwraymond/rxprice/tool"
)

// Invoker runs a named operation. *tool.Registry satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, call tool.Call) (any, error)
}

// ChatRequest is one user message.
type ChatRequest struct {
	Message         string         `json:"message"`
	UserLocation    string         `json:"user_location,omitempty"`
	UserPreferences map[string]any `json:"user_preferences,omitempty"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Response         string            `json:"response"`
	MedicationPrices []MedicationPrice `json:"medication_prices"`
	Suggestions      []string          `json:"suggestions"`
	SearchPerformed  bool              `json:"search_performed"`
}

var medicationKeywords = []string{
	"price", "cost", "cheap", "affordable", "medication", "medicine",
	"prescription", "pharmacy", "drug", "pills", "tablets", "generic",
}

type cannedReply struct {
	keyword  string
	response string
}

var cannedReplies = []cannedReply{
	{"hello", "Hello! I'm here to help you find the best prices for medications. You can ask me about specific medications, compare prices across pharmacies, or get information about generic alternatives."},
	{"help", "I can help you find medication prices, compare costs across different pharmacies, and provide information about affordable options. Just tell me the name of the medication you're looking for!"},
	{"thank", "You're welcome! Feel free to ask if you need help finding prices for any other medications."},
}

const defaultReply = "I'm here to help you find the best medication prices. You can ask me about specific medications like 'What's the price of ibuprofen?' or 'Find cheap metformin near me.'"

// Assistant answers chat messages, searching prices through an Invoker so
// chat traffic shares the cache and rate limits of direct calls.
type Assistant struct {
	invoker Invoker
	logger  observe.Logger
}

// NewAssistant creates an Assistant.
func NewAssistant(invoker Invoker, logger observe.Logger) *Assistant {
	if logger == nil {
		logger = observe.NopLogger()
	}
	return &Assistant{invoker: invoker, logger: logger}
}

// IsMedicationQuery reports whether message mentions a pricing keyword.
func IsMedicationQuery(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range medicationKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Chat answers one message.
//
// Rate-limit and cancellation errors are returned to the caller. Any other
// search failure is logged and answered as "no prices found".
func (a *Assistant) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, invalid("chat", "message", "field required")
	}

	if IsMedicationQuery(message) {
		if name := ExtractMedicationName(message); name != "" {
			return a.priceReply(ctx, name, req.UserLocation)
		}
	}

	lower := strings.ToLower(message)
	for _, c := range cannedReplies {
		if strings.Contains(lower, c.keyword) {
			return &ChatResponse{
				Response:    c.response,
				Suggestions: []string{"Search for a medication price", "Find pharmacies near me", "Compare generic vs brand name costs"},
			}, nil
		}
	}

	return &ChatResponse{
		Response:    defaultReply,
		Suggestions: []string{"Search for a medication price", "Find pharmacies near me", "Compare medication costs"},
	}, nil
}

func (a *Assistant) priceReply(ctx context.Context, name, location string) (*ChatResponse, error) {
	kwargs := map[string]any{"medication_name": name}
	if location != "" {
		kwargs["location"] = location
	}

	var prices []MedicationPrice
	v, err := a.invoker.Invoke(ctx, tool.Call{Name: OpSearchPrice, Kwargs: kwargs})
	switch {
	case err == nil:
		if res, ok := v.(*PriceResult); ok {
			prices = res.Prices
		}
	case errors.Is(err, resilience.ErrRateLimitExceeded),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		a.logger.Warn(ctx, "chat price search failed",
			observe.F("medication", name),
			observe.F("error", err.Error()),
		)
	}

	if len(prices) > 0 {
		return &ChatResponse{
			Response:         fmt.Sprintf("I found price information for %s. Here are the best prices I could find:", name),
			MedicationPrices: prices,
			Suggestions: []string{
				"Would you like to see more pharmacy options?",
				"Do you need information about generic alternatives?",
				"Would you like help finding pharmacies near you?",
			},
			SearchPerformed: true,
		}, nil
	}

	return &ChatResponse{
		Response: fmt.Sprintf("I couldn't find specific pricing for %s right now. "+
			"This could be because it requires a prescription or the pricing varies "+
			"significantly by location and insurance.", name),
		MedicationPrices: []MedicationPrice{},
		Suggestions: []string{
			"Try checking with your local pharmacy directly",
			"Contact your insurance provider for coverage information",
			"Ask your doctor about generic alternatives",
		},
		SearchPerformed: true,
	}, nil
}
