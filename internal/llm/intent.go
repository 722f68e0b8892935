package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
)

// Intent is what the assistant extracted from the user's message.
type Intent struct {
	WantToSearch bool   `json:"want_to_search"`
	Location     string `json:"location,omitempty"`
	Preferences  string `json:"preferences,omitempty"`
}

// AssistantTurn is an assistant reply plus the extracted intent.
type AssistantTurn struct {
	Text   string
	Intent Intent
}

// turnEnvelope is the JSON structure the model is asked to produce.
type turnEnvelope struct {
	Reply  string `json:"reply"`
	Intent Intent `json:"intent"`
}

const systemPromptBase = `You are a shopping concierge helping a customer buy sarees.
You can search for nearby saree vendors and call them to negotiate a price.
Always respond with a single JSON object of the form
{"reply": "<what you say to the customer>", "intent": {"want_to_search": <bool>, "location": "<city or area if given>", "preferences": "<fabric, color, budget if given>"}}.
Set want_to_search to true only when the customer is ready to find vendors.`

// journeyGuidance tailors the system prompt to where the session is.
var journeyGuidance = map[model.JourneyStatus]string{
	model.JourneyChatting:          "The customer is still describing what they want. Gather location and preferences.",
	model.JourneySearchingVendors:  "Vendors are being looked up; tell the customer to hold on.",
	model.JourneySelectingVendor:   "Vendors are listed. Help the customer pick one so a call can be placed.",
	model.JourneyCallingVendor:     "A call to the vendor is in progress. Keep the customer informed.",
	model.JourneyProcessingPayment: "A price was agreed. Walk the customer through confirming the payment.",
	model.JourneyCompleted:         "The purchase is done. Offer help with anything else.",
}

// GenerateWithIntent produces an assistant reply and extracted intent for
// one chat turn. A malformed model response degrades to a plain reply
// with no intent rather than an error.
func GenerateWithIntent(
	ctx context.Context,
	client Client,
	userMessage string,
	history []ChatMessage,
	journey model.JourneyStatus,
	vendors []model.Vendor,
) (*AssistantTurn, error) {
	system := systemPromptBase
	if g, ok := journeyGuidance[journey]; ok {
		system += "\n" + g
	}
	if len(vendors) > 0 {
		var b strings.Builder
		b.WriteString("\nKnown vendors:")
		for i, v := range vendors {
			fmt.Fprintf(&b, "\n%d. %s (%s, %.1f km)", i+1, v.Name, v.Address, v.DistanceKm)
		}
		system += b.String()
	}

	messages := append(append([]ChatMessage(nil), history...), ChatMessage{
		Role:    "user",
		Content: userMessage,
	})

	resp, err := client.Complete(ctx, &CompletionRequest{
		System:      system,
		Messages:    messages,
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}

	return parseTurn(resp.Content), nil
}

// parseTurn extracts the JSON envelope from the model output, tolerating
// surrounding prose or code fences.
func parseTurn(content string) *AssistantTurn {
	raw := content
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	var env turnEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Reply == "" {
		return &AssistantTurn{Text: strings.TrimSpace(content)}
	}
	return &AssistantTurn{Text: env.Reply, Intent: env.Intent}
}
