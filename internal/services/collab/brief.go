package collab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinBrief/internal/domain/models"
	domsvc "FinBrief/internal/domain/service"
)

// maxContextChunks caps the context sent to the narrative model.
const maxContextChunks = 5

// HTTPBriefGenerator calls the language service final-narrative endpoint.
type HTTPBriefGenerator struct {
	base *HTTPServiceBase
}

func NewHTTPBriefGenerator(baseURL string, timeout time.Duration, attempts int) *HTTPBriefGenerator {
	return &HTTPBriefGenerator{base: NewHTTPServiceBase(baseURL, timeout, attempts)}
}

type finalNarrativeRequest struct {
	ContextChunks   []string `json:"context_chunks"`
	AnalysisSummary string   `json:"analysis_summary,omitempty"`
}

type finalNarrativeResponse struct {
	Narrative string `json:"narrative"`
}

func (g *HTTPBriefGenerator) GenerateBrief(ctx context.Context, query string, companies []string, ranked []models.RankedChunk) (models.Brief, error) {
	req := finalNarrativeRequest{
		ContextChunks:   ContextTexts(ranked),
		AnalysisSummary: AnalysisSummary(query, ranked),
	}
	var out finalNarrativeResponse
	if err := g.base.PostJSON(ctx, "/generate-final-narrative", req, &out); err != nil {
		return models.Brief{}, err
	}
	return models.Brief{Text: CleanNarrative(out.Narrative), CompaniesCovered: companies}, nil
}

// ContextTexts returns the texts of the highest ranked chunks, at most five.
func ContextTexts(ranked []models.RankedChunk) []string {
	if len(ranked) > maxContextChunks {
		ranked = ranked[:maxContextChunks]
	}
	return models.Texts(ranked)
}

// AnalysisSummary renders the ranked context as a bulleted digest of the query.
func AnalysisSummary(query string, ranked []models.RankedChunk) string {
	texts := ContextTexts(ranked)
	if len(texts) == 0 {
		return "No relevant information found to summarize."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your query: '%s', here are the top insights:\n\n", strings.TrimSpace(query))
	for i, t := range texts {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(t))
	}
	return b.String()
}

var _ domsvc.BriefGenerator = (*HTTPBriefGenerator)(nil)
