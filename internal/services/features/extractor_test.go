package features

import (
	"math"
	"testing"

	"FinBrief/internal/domain/models"
)

func bars(closes ...float64) []models.PricePoint {
	out := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		out[i] = models.PricePoint{Close: c}
	}
	return out
}

func TestComputeLogReturns(t *testing.T) {
	rets := ComputeLogReturns(bars(100, 110, 0, 121))
	if len(rets) != 3 {
		t.Fatalf("expected 3 returns, got %d", len(rets))
	}
	if math.Abs(rets[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("unexpected first return %v", rets[0])
	}
	if rets[1] != 0 || rets[2] != 0 {
		t.Fatalf("expected zero returns around non-positive close, got %v", rets)
	}
	if ComputeLogReturns(bars(1)) != nil {
		t.Fatalf("expected nil for a single bar")
	}
}

func TestPercentChanges(t *testing.T) {
	pct, ok := PercentChanges(bars(200, 210, 189))
	if ok[0] {
		t.Fatalf("first bar has no change")
	}
	if !ok[1] || math.Abs(pct[1]-5) > 1e-9 {
		t.Fatalf("expected +5%%, got %v", pct[1])
	}
	if !ok[2] || math.Abs(pct[2]+10) > 1e-9 {
		t.Fatalf("expected -10%%, got %v", pct[2])
	}
}

func TestRealizedVolatilityConstantSeries(t *testing.T) {
	rets := ComputeLogReturns(bars(100, 100, 100, 100, 100))
	if v := RealizedVolatility(rets, 4, TradingDaysPerYear); v != 0 {
		t.Fatalf("expected zero volatility, got %v", v)
	}
	if v := RealizedVolatility(rets, 10, TradingDaysPerYear); v != 0 {
		t.Fatalf("expected zero for short window, got %v", v)
	}
}

func TestPeriodReturn(t *testing.T) {
	r, ok := PeriodReturn(bars(50, 55, 60))
	if !ok || math.Abs(r-20) > 1e-9 {
		t.Fatalf("unexpected period return %v %v", r, ok)
	}
}
