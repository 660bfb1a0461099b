package service

import (
	"context"

	"FinBrief/internal/domain/models"
)

// Transcriber turns recorded speech into query text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mime string) (string, error)
}

// IntentExtractor extracts the companies a query is about.
// It fails only when no structured output can be obtained.
type IntentExtractor interface {
	ExtractIntent(ctx context.Context, text string) (models.Intent, error)
}

// MarketDataFetcher fetches the market record of one company.
type MarketDataFetcher interface {
	FetchMarketData(ctx context.Context, companyID string) (models.MarketRecord, error)
}

// BriefGenerator writes the final narrative from ranked context.
type BriefGenerator interface {
	GenerateBrief(ctx context.Context, query string, companies []string, ranked []models.RankedChunk) (models.Brief, error)
}

// Synthesizer renders text as speech audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
