package collab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FinBrief/internal/domain/models"
	domsvc "FinBrief/internal/domain/service"
	"FinBrief/pkg/util"
)

// HTTPMarketFetcher calls the finance lookup service for one company at a time.
type HTTPMarketFetcher struct {
	base *HTTPServiceBase
}

func NewHTTPMarketFetcher(baseURL string, timeout time.Duration, attempts int) *HTTPMarketFetcher {
	return &HTTPMarketFetcher{base: NewHTTPServiceBase(baseURL, timeout, attempts)}
}

type financialsRequest struct {
	Companies []string `json:"companies"`
}

type financialsBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

type financialsEntry struct {
	CompanyName string          `json:"company_name"`
	Ticker      string          `json:"ticker"`
	Region      string          `json:"region"`
	Sector      string          `json:"sector"`
	History     []financialsBar `json:"history"`
	Error       string          `json:"error"`
}

type financialsResponse struct {
	Status      string            `json:"status"`
	CompanyData []financialsEntry `json:"company_data"`
}

// FetchMarketData returns the record of companyID. A per-company error entry
// in the batch response is reported as an error.
func (f *HTTPMarketFetcher) FetchMarketData(ctx context.Context, companyID string) (models.MarketRecord, error) {
	var out financialsResponse
	if err := f.base.PostJSON(ctx, "/get-company-financials", financialsRequest{Companies: []string{companyID}}, &out); err != nil {
		return models.MarketRecord{}, err
	}
	entry, ok := findEntry(out.CompanyData, companyID)
	if !ok {
		return models.MarketRecord{}, fmt.Errorf("no market data returned for %s", companyID)
	}
	if entry.Error != "" {
		return models.MarketRecord{}, fmt.Errorf("market data for %s: %s", companyID, entry.Error)
	}
	if len(entry.History) == 0 {
		return models.MarketRecord{}, fmt.Errorf("no price history for %s", companyID)
	}

	rec := models.MarketRecord{
		CompanyID: companyID,
		Name:      entry.CompanyName,
		Sector:    entry.Sector,
		Region:    entry.Region,
		Prices:    make([]models.PricePoint, 0, len(entry.History)),
	}
	for _, b := range entry.History {
		ts, ok := util.ParseTime(b.Date)
		if !ok {
			continue
		}
		rec.Prices = append(rec.Prices, models.PricePoint{
			Timestamp: ts, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume,
		})
	}
	return rec, nil
}

func findEntry(entries []financialsEntry, companyID string) (financialsEntry, bool) {
	for _, e := range entries {
		if strings.EqualFold(e.Ticker, companyID) || strings.EqualFold(e.CompanyName, companyID) {
			return e, true
		}
	}
	if len(entries) == 1 {
		return entries[0], true
	}
	return financialsEntry{}, false
}

var _ domsvc.MarketDataFetcher = (*HTTPMarketFetcher)(nil)
