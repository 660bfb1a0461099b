package models

import "time"

// PricePoint is one daily OHLCV bar.
type PricePoint struct {
	Timestamp time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// MarketRecord is the market snapshot of a single company.
type MarketRecord struct {
	CompanyID string       `json:"company_id"`
	Name      string       `json:"name"`
	Sector    string       `json:"sector"`
	Region    string       `json:"region"`
	Prices    []PricePoint `json:"prices"`
}

// LastClose returns the most recent close, or 0 when there is no history.
func (r MarketRecord) LastClose() float64 {
	if len(r.Prices) == 0 {
		return 0
	}
	return r.Prices[len(r.Prices)-1].Close
}
