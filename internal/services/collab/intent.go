package collab

import (
	"context"
	"errors"
	"time"

	"FinBrief/internal/domain/models"
	domsvc "FinBrief/internal/domain/service"
)

// ErrNoStructuredOutput is returned when the model response has no company list.
var ErrNoStructuredOutput = errors.New("intent service returned no structured output")

// HTTPIntentExtractor calls the language service initial-brief endpoint,
// which returns a short summary and the companies mentioned.
type HTTPIntentExtractor struct {
	base *HTTPServiceBase
}

func NewHTTPIntentExtractor(baseURL string, timeout time.Duration, attempts int) *HTTPIntentExtractor {
	return &HTTPIntentExtractor{base: NewHTTPServiceBase(baseURL, timeout, attempts)}
}

type initialBriefRequest struct {
	RawText string `json:"raw_text"`
}

type initialBriefResponse struct {
	Brief        string    `json:"brief"`
	CompanyNames *[]string `json:"company_names"`
}

func (e *HTTPIntentExtractor) ExtractIntent(ctx context.Context, text string) (models.Intent, error) {
	var out initialBriefResponse
	if err := e.base.PostJSON(ctx, "/generate-initial-brief", initialBriefRequest{RawText: text}, &out); err != nil {
		return models.Intent{}, err
	}
	if out.CompanyNames == nil {
		return models.Intent{}, ErrNoStructuredOutput
	}
	return models.Intent{Companies: *out.CompanyNames, RawQuery: text}, nil
}

var _ domsvc.IntentExtractor = (*HTTPIntentExtractor)(nil)
