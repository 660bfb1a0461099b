package usecase

import (
	"strings"
	"testing"
	"time"

	"FinBrief/internal/domain/models"
)

func TestBuildMarketChunks(t *testing.T) {
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rec := models.MarketRecord{
		CompanyID: "tsla",
		Name:      "Tesla, Inc.",
		Sector:    "Consumer Cyclical",
		Region:    "US",
		Prices: []models.PricePoint{
			{Timestamp: day, Close: 200},
			{Timestamp: day.AddDate(0, 0, 1), Close: 190, Volume: 500},
		},
	}
	chunks := BuildMarketChunks(rec)
	if len(chunks) != 3 {
		t.Fatalf("expected profile plus 2 bars, got %d", len(chunks))
	}
	profile := chunks[0]
	if profile.ID != "TSLA:profile" || !strings.HasPrefix(profile.Text, "Tesla, Inc. (TSLA), Sector: Consumer Cyclical, Region: US. Price history:") {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if !profile.RecencyTimestamp.Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("profile recency should be the last bar")
	}
	bar := chunks[2]
	if bar.ID != "TSLA:bar:2024-05-02" || !strings.Contains(bar.Text, "down 5.00%") || !strings.Contains(bar.Text, "volume of 500") {
		t.Fatalf("unexpected bar chunk %+v", bar)
	}
	if strings.Contains(chunks[1].Text, "previous session") {
		t.Fatalf("first bar has no previous session")
	}
}

func TestBuildMarketChunksNoHistory(t *testing.T) {
	chunks := BuildMarketChunks(models.MarketRecord{CompanyID: "NVDA"})
	if len(chunks) != 1 || !strings.Contains(chunks[0].Text, "NVDA (NVDA), Sector: unknown") {
		t.Fatalf("unexpected chunks %+v", chunks)
	}
}
