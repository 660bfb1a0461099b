package repository

import (
	"context"

	"FinBrief/internal/domain/models"
)

// CorpusStore holds static financial text used to enrich the chunk pool.
type CorpusStore interface {
	// ListChunks returns chunks for the given companies plus general
	// chunks that carry no company id.
	ListChunks(ctx context.Context, companies []string, limit int) ([]models.Chunk, error)
	SaveChunks(ctx context.Context, chunks []models.Chunk) error
}

// EventPublisher publishes brief lifecycle events.
type EventPublisher interface {
	PublishBriefEvent(ctx context.Context, ev models.BriefEvent) error
	Close() error
}

// Metrics records pipeline measurements.
type Metrics interface {
	RecordRequest(result string)
	RecordStage(stage, status string, seconds float64)
	RecordMarketLookup(result string)
	RecordRetrieved(n int)
}
