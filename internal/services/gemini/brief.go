package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinBrief/internal/domain/models"
	domsvc "FinBrief/internal/domain/service"
	"FinBrief/internal/services/collab"
)

// BriefGenerator writes the spoken-style market brief with Gemini.
type BriefGenerator struct {
	gen Generator
	now func() time.Time
}

func NewBriefGenerator(gen Generator) *BriefGenerator {
	return &BriefGenerator{gen: gen, now: time.Now}
}

func (g *BriefGenerator) GenerateBrief(ctx context.Context, query string, companies []string, ranked []models.RankedChunk) (models.Brief, error) {
	out, err := g.gen.Generate(ctx, g.prompt(query, ranked), false)
	if err != nil {
		return models.Brief{}, err
	}
	return models.Brief{Text: collab.CleanNarrative(out), CompaniesCovered: companies}, nil
}

func (g *BriefGenerator) prompt(query string, ranked []models.RankedChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a financial analyst assistant. Today is %s.\n\n", g.now().Format("Monday, 02 January 2006"))
	b.WriteString("Using the following market context and analysis, write a natural spoken-style summary ")
	b.WriteString("for a portfolio manager. Keep it concise for text-to-speech, include numbers and ")
	b.WriteString("finish with a key takeaway. Do not use markdown.\n\n")
	for i, text := range collab.ContextTexts(ranked) {
		fmt.Fprintf(&b, "Context %d: %s\n", i+1, strings.TrimSpace(text))
	}
	fmt.Fprintf(&b, "\nAnalytical Summary: %s\n", collab.AnalysisSummary(query, ranked))
	return b.String()
}

var _ domsvc.BriefGenerator = (*BriefGenerator)(nil)
