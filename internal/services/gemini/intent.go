package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"FinBrief/internal/domain/models"
	domsvc "FinBrief/internal/domain/service"
)

var ErrUnparseableIntent = errors.New("gemini returned no parseable intent")

const intentPrompt = `You extract the companies a financial question is about.
Reply with a JSON object {"companies": [...]} listing stock ticker symbols in
the order they are mentioned. Use an empty list when no company is named.

Question: %s`

// IntentExtractor asks Gemini for the tickers mentioned in a query.
type IntentExtractor struct {
	gen Generator
}

func NewIntentExtractor(gen Generator) *IntentExtractor {
	return &IntentExtractor{gen: gen}
}

type intentReply struct {
	Companies *[]string `json:"companies"`
}

func (e *IntentExtractor) ExtractIntent(ctx context.Context, text string) (models.Intent, error) {
	out, err := e.gen.Generate(ctx, fmt.Sprintf(intentPrompt, strings.TrimSpace(text)), true)
	if err != nil {
		return models.Intent{}, err
	}
	var reply intentReply
	if err := json.Unmarshal([]byte(stripFences(out)), &reply); err != nil {
		return models.Intent{}, fmt.Errorf("%w: %v", ErrUnparseableIntent, err)
	}
	if reply.Companies == nil {
		return models.Intent{}, ErrUnparseableIntent
	}
	return models.Intent{Companies: *reply.Companies, RawQuery: text}, nil
}

// stripFences removes a markdown code fence around a JSON reply.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var _ domsvc.IntentExtractor = (*IntentExtractor)(nil)
