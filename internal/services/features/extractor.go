package features

import (
	"math"

	"FinBrief/internal/domain/models"
)

// TradingDaysPerYear annualizes daily bar statistics.
const TradingDaysPerYear = 252

// ComputeLogReturns computes log returns r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(bars)-1, or nil if insufficient data.
func ComputeLogReturns(bars []models.PricePoint) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		cur := bars[i].Close
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// PercentChanges returns the simple close-to-close change of each bar in
// percent. The first bar has no predecessor and reports ok=false.
func PercentChanges(bars []models.PricePoint) (pct []float64, ok []bool) {
	pct = make([]float64, len(bars))
	ok = make([]bool, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev <= 0 {
			continue
		}
		pct[i] = (bars[i].Close - prev) / prev * 100
		ok[i] = true
	}
	return pct, ok
}

// RealizedVolatility computes annualized realized volatility over the last
// window returns. Returns 0 when there is not enough data.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// PeriodReturn is the percent change from the first to the last close.
func PeriodReturn(bars []models.PricePoint) (float64, bool) {
	if len(bars) < 2 || bars[0].Close <= 0 {
		return 0, false
	}
	first, last := bars[0].Close, bars[len(bars)-1].Close
	return (last - first) / first * 100, true
}
