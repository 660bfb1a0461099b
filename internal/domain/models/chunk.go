package models

import "time"

// Chunk is a unit of context text considered by retrieval.
// CompanyID is empty for general market text.
type Chunk struct {
	ID               string    `json:"id"`
	CompanyID        string    `json:"company_id,omitempty"`
	Text             string    `json:"text"`
	RecencyTimestamp time.Time `json:"recency_timestamp"`
	SourceWeight     float64   `json:"source_weight"`
	Source           string    `json:"source,omitempty"`
}

// ScoreBreakdown holds the weighted components of a chunk score.
type ScoreBreakdown struct {
	Similarity   float64 `json:"similarity"`
	CompanyBoost float64 `json:"company_boost"`
	Recency      float64 `json:"recency"`
	Weight       float64 `json:"weight"`
}

// RankedChunk is a chunk with its relevance score.
type RankedChunk struct {
	Chunk
	Score     float64        `json:"score"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Texts returns the chunk texts in rank order.
func Texts(ranked []RankedChunk) []string {
	out := make([]string, 0, len(ranked))
	for _, rc := range ranked {
		out = append(out, rc.Text)
	}
	return out
}
