package usecase

import (
	"math"
	"sort"
	"strings"
	"time"

	"FinBrief/internal/domain/models"
)

// RetrievalConfig weights the components of a chunk score.
type RetrievalConfig struct {
	SimilarityWeight float64
	CompanyWeight    float64
	RecencyWeight    float64
	HalfLife         time.Duration
}

// DefaultRetrievalConfig matches the shipped configuration defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		SimilarityWeight: 1.0,
		CompanyWeight:    0.5,
		RecencyWeight:    0.25,
		HalfLife:         72 * time.Hour,
	}
}

// ChunkRetriever ranks a pool of chunks against a query. It holds no state
// besides its configuration and is safe for concurrent use.
type ChunkRetriever struct {
	cfg RetrievalConfig
}

func NewChunkRetriever(cfg RetrievalConfig) *ChunkRetriever {
	if cfg.HalfLife <= 0 {
		cfg.HalfLife = DefaultRetrievalConfig().HalfLife
	}
	return &ChunkRetriever{cfg: cfg}
}

// Select scores every chunk of pool and returns at most topK of them ordered
// by score desc, recency desc, id asc. The pool is not modified.
func (r *ChunkRetriever) Select(query string, companies []string, pool []models.Chunk, topK int) []models.RankedChunk {
	if topK <= 0 || len(pool) == 0 {
		return []models.RankedChunk{}
	}

	wanted := make(map[string]struct{}, len(companies))
	for _, c := range companies {
		wanted[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}

	qv := termFrequencies(tokenize(query))
	qn := qv.norm()

	newest := pool[0].RecencyTimestamp
	for _, c := range pool[1:] {
		if c.RecencyTimestamp.After(newest) {
			newest = c.RecencyTimestamp
		}
	}

	ranked := make([]models.RankedChunk, 0, len(pool))
	for _, c := range pool {
		cv := termFrequencies(tokenize(c.Text))
		b := models.ScoreBreakdown{
			Similarity: cosine(qv, cv, qn, cv.norm()),
			Recency:    r.recency(newest.Sub(c.RecencyTimestamp)),
			Weight:     c.SourceWeight,
		}
		if c.CompanyID != "" {
			if _, ok := wanted[strings.ToUpper(c.CompanyID)]; ok {
				b.CompanyBoost = 1
			}
		}
		if !(b.Weight > 0) || math.IsInf(b.Weight, 0) {
			b.Weight = 1
		}
		score := b.Weight * (r.cfg.SimilarityWeight*b.Similarity +
			r.cfg.CompanyWeight*b.CompanyBoost +
			r.cfg.RecencyWeight*b.Recency)
		ranked = append(ranked, models.RankedChunk{Chunk: c, Score: score, Breakdown: b})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.RecencyTimestamp.Equal(b.RecencyTimestamp) {
			return a.RecencyTimestamp.After(b.RecencyTimestamp)
		}
		return a.ID < b.ID
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// recency decays by half every HalfLife. A zero age scores 1.
func (r *ChunkRetriever) recency(age time.Duration) float64 {
	if age <= 0 {
		return 1
	}
	return math.Pow(0.5, float64(age)/float64(r.cfg.HalfLife))
}
