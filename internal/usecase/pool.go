package usecase

import (
	"fmt"
	"strings"

	"FinBrief/internal/domain/models"
	"FinBrief/internal/services/features"
	"FinBrief/pkg/util"
)

const marketSource = "market_data"

// BuildMarketChunks turns a market record into one profile chunk and one
// chunk per daily bar. Ids are derived from the company and bar date so the
// same record always yields the same chunks.
func BuildMarketChunks(rec models.MarketRecord) []models.Chunk {
	ticker := strings.ToUpper(rec.CompanyID)
	name := rec.Name
	if name == "" {
		name = ticker
	}

	out := make([]models.Chunk, 0, len(rec.Prices)+1)
	profile := models.Chunk{
		ID:           ticker + ":profile",
		CompanyID:    ticker,
		Text:         profileText(name, ticker, rec),
		SourceWeight: 1,
		Source:       marketSource,
	}
	if n := len(rec.Prices); n > 0 {
		profile.RecencyTimestamp = rec.Prices[n-1].Timestamp
	}
	out = append(out, profile)

	pct, ok := features.PercentChanges(rec.Prices)
	for i, p := range rec.Prices {
		var b strings.Builder
		fmt.Fprintf(&b, "%s (%s) closed at %.2f on %s", name, ticker, p.Close, util.DayKey(p.Timestamp))
		if ok[i] {
			fmt.Fprintf(&b, ", %s %.2f%% from the previous session", direction(pct[i]), abs(pct[i]))
		}
		if p.Volume > 0 {
			fmt.Fprintf(&b, " on volume of %d shares", p.Volume)
		}
		b.WriteString(".")
		out = append(out, models.Chunk{
			ID:               fmt.Sprintf("%s:bar:%s", ticker, util.DayKey(p.Timestamp)),
			CompanyID:        ticker,
			Text:             b.String(),
			RecencyTimestamp: p.Timestamp,
			SourceWeight:     1,
			Source:           marketSource,
		})
	}
	return out
}

func profileText(name, ticker string, rec models.MarketRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s), Sector: %s, Region: %s.", name, ticker, orUnknown(rec.Sector), orUnknown(rec.Region))
	if len(rec.Prices) == 0 {
		b.WriteString(" No recent price history.")
		return b.String()
	}
	b.WriteString(" Price history:")
	for i, p := range rec.Prices {
		if i > 0 {
			b.WriteString(";")
		}
		fmt.Fprintf(&b, " %s close %.2f", util.DayKey(p.Timestamp), p.Close)
	}
	b.WriteString(".")
	if r, ok := features.PeriodReturn(rec.Prices); ok {
		fmt.Fprintf(&b, " Period change %+.2f%%.", r)
	}
	rets := features.ComputeLogReturns(rec.Prices)
	if vol := features.RealizedVolatility(rets, len(rets), features.TradingDaysPerYear); vol > 0 {
		fmt.Fprintf(&b, " Annualized volatility %.1f%%.", vol*100)
	}
	return b.String()
}

func direction(pct float64) string {
	if pct < 0 {
		return "down"
	}
	return "up"
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
