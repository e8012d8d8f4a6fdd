package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/searchpulse/backend/scoring"
)

// maxItems caps how many recommendations one analysis may carry.
const maxItems = 10

// weakThresholdPercent marks factors worth recommending on.
const weakThresholdPercent = 60

// Item is one prioritized action item. Priority 1 is most urgent.
type Item struct {
	Priority       int    `json:"priority"`
	Factor         string `json:"factor"`
	Recommendation string `json:"recommendation"`
}

// WeakFactor describes a scoring factor that earned less than 60% of its
// maximum, with enough context for the model to act on.
type WeakFactor struct {
	Component   string
	Name        string
	Points      int
	Max         int
	Explanation string
}

// CollectWeak returns the factors of one evaluation scoring under the weak
// threshold. maxFor resolves a factor name to its maximum points; factors
// it does not know are skipped.
func CollectWeak(component string, eval scoring.Evaluation, maxFor func(string) int) []WeakFactor {
	var weak []WeakFactor
	for _, f := range eval.Factors {
		max := maxFor(f.Name)
		if max <= 0 {
			continue
		}
		if f.Points*100 >= max*weakThresholdPercent {
			continue
		}
		weak = append(weak, WeakFactor{
			Component:   component,
			Name:        f.Name,
			Points:      f.Points,
			Max:         max,
			Explanation: f.Explanation,
		})
	}
	return weak
}

// Generator produces recommendations with Gemini. A nil *Generator is a
// valid "feature off" value for callers that hold one.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a Gemini-backed generator.
func NewGenerator(ctx context.Context, apiKey, model string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Generator{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *Generator) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Generate asks the model for action items addressing the weak factors.
// One attempt only; the caller bounds the context. Returns an empty list
// when there is nothing to recommend.
func (g *Generator) Generate(ctx context.Context, pageURL, vertical string, weak []WeakFactor) ([]Item, error) {
	if len(weak) == 0 {
		return nil, nil
	}

	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(buildPrompt(pageURL, vertical, weak)))
	if err != nil {
		return nil, fmt.Errorf("failed to generate recommendations: %w", err)
	}

	text, err := extractText(resp)
	if err != nil {
		return nil, err
	}

	return parseItems(text)
}

func buildPrompt(pageURL, vertical string, weak []WeakFactor) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an SEO consultant for %s websites.\n", vertical)
	fmt.Fprintf(&b, "The page %s scored poorly on these ranking factors:\n\n", pageURL)
	for _, f := range weak {
		fmt.Fprintf(&b, "- [%s] %s: %d of %d points. %s\n",
			f.Component, f.Name, f.Points, f.Max, f.Explanation)
	}
	b.WriteString("\nFor each factor, suggest one concrete fix the site owner can apply.\n")
	b.WriteString("Respond with a JSON array of objects with keys ")
	b.WriteString(`"priority" (integer 1-5, 1 is most urgent), "factor" and "recommendation".` + "\n")
	b.WriteString("Return only the JSON array, no prose.\n")
	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// parseItems decodes the model output. It tolerates markdown fences and a
// {"recommendations": [...]} wrapper, drops items missing a factor or
// recommendation, clamps priorities and caps the item count.
func parseItems(text string) ([]Item, error) {
	text = cleanJSONBlock(text)

	var items []Item
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		var wrapper struct {
			Recommendations []Item `json:"recommendations"`
		}
		if err2 := json.Unmarshal([]byte(text), &wrapper); err2 != nil {
			return nil, fmt.Errorf("failed to parse recommendations: %w", err)
		}
		items = wrapper.Recommendations
	}

	clean := make([]Item, 0, len(items))
	for _, item := range items {
		if item.Factor == "" || item.Recommendation == "" {
			continue
		}
		if item.Priority < 1 {
			item.Priority = 1
		}
		if item.Priority > 5 {
			item.Priority = 5
		}
		clean = append(clean, item)
		if len(clean) == maxItems {
			break
		}
	}
	return clean, nil
}

// cleanJSONBlock removes markdown code block wrappers from JSON responses.
// Models often wrap JSON in ```json ... ``` blocks even when instructed not to.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		return strings.TrimSpace(text)
	}

	return text
}
