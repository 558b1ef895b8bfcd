package usecase

import (
	"math"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
)

// rangeSeries builds n bars with a fixed high-low range around close.
func rangeSeries(n int, close, halfRange float64, slowSMA *float64) []models.EnrichedBar {
	bars := make([]models.EnrichedBar, n)
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i].Close = close
		bars[i].High = close + halfRange
		bars[i].Low = close - halfRange
		bars[i].Date = d
		d = d.AddDate(0, 0, 1)
	}
	bars[n-1].SlowSMA = slowSMA
	return bars
}

func TestMarketConditionsAllClear(t *testing.T) {
	sma := 99.0
	// 0.5% daily range: 0.005 * 100 * 16 * 2 = 16% estimated volatility.
	mc := BuildMarketConditions("SPY", rangeSeries(15, 100, 0.25, &sma), "Neutral", time.Now())

	if math.Abs(mc.EstVolatility-16) > 1e-9 {
		t.Errorf("estimated volatility = %v, want 16", mc.EstVolatility)
	}
	if !mc.VolatilityOK || !mc.AboveSlowSMA || !mc.RotationOK {
		t.Errorf("factors = %v/%v/%v, want all true", mc.VolatilityOK, mc.AboveSlowSMA, mc.RotationOK)
	}
	if mc.ConditionsMet != 3 || !mc.SafeToTrade {
		t.Errorf("met=%d safe=%v, want 3/true", mc.ConditionsMet, mc.SafeToTrade)
	}
	if math.Abs(mc.TrendDistance-pctChange(99, 100)) > 1e-9 {
		t.Errorf("trend distance = %v, want %v", mc.TrendDistance, pctChange(99, 100))
	}
}

func TestMarketConditionsVolatilityDoubled(t *testing.T) {
	sma := 99.0
	// 1% daily range annualizes to 16, doubled to 32: past the green light.
	mc := BuildMarketConditions("SPY", rangeSeries(15, 100, 0.5, &sma), "Neutral", time.Now())
	if math.Abs(mc.EstVolatility-32) > 1e-9 {
		t.Errorf("estimated volatility = %v, want 32", mc.EstVolatility)
	}
	if mc.VolatilityOK {
		t.Errorf("volatility 32 flagged OK against threshold 20")
	}
}

func TestMarketConditionsVolatilityClamps(t *testing.T) {
	sma := 99.0
	low := BuildMarketConditions("SPY", rangeSeries(15, 100, 0.01, &sma), "Neutral", time.Now())
	if low.EstVolatility != 10 {
		t.Errorf("tiny ranges: volatility = %v, want floor 10", low.EstVolatility)
	}
	high := BuildMarketConditions("SPY", rangeSeries(15, 100, 10, &sma), "Neutral", time.Now())
	if high.EstVolatility != 50 {
		t.Errorf("huge ranges: volatility = %v, want ceiling 50", high.EstVolatility)
	}
}

func TestMarketConditionsTwoOfThree(t *testing.T) {
	sma := 101.0 // close below the slow SMA
	mc := BuildMarketConditions("SPY", rangeSeries(15, 100, 0.25, &sma), "Neutral", time.Now())
	if mc.AboveSlowSMA {
		t.Fatalf("close 100 below SMA 101 flagged as above")
	}
	if mc.ConditionsMet != 2 || !mc.SafeToTrade {
		t.Errorf("met=%d safe=%v, want 2/true", mc.ConditionsMet, mc.SafeToTrade)
	}
}

func TestMarketConditionsRiskOff(t *testing.T) {
	sma := 101.0
	mc := BuildMarketConditions("SPY", rangeSeries(15, 100, 10, &sma), "Risk-Off", time.Now())
	if mc.RotationOK {
		t.Errorf("risk-off rotation flagged OK")
	}
	if mc.ConditionsMet != 0 || mc.SafeToTrade {
		t.Errorf("met=%d safe=%v, want 0/false", mc.ConditionsMet, mc.SafeToTrade)
	}
}

func TestMarketConditionsNoSMA(t *testing.T) {
	mc := BuildMarketConditions("SPY", rangeSeries(15, 100, 0.5, nil), "Neutral", time.Now())
	if mc.AboveSlowSMA {
		t.Errorf("missing SMA must not count as above")
	}
	if mc.TrendDistance != 0 {
		t.Errorf("trend distance = %v, want 0 without SMA", mc.TrendDistance)
	}
}

func TestMarketConditionsEmptySeries(t *testing.T) {
	mc := BuildMarketConditions("SPY", nil, "Neutral", time.Now())
	if mc.SafeToTrade || mc.ConditionsMet != 0 {
		t.Errorf("empty series: met=%d safe=%v, want 0/false", mc.ConditionsMet, mc.SafeToTrade)
	}
	if mc.Symbol != "SPY" {
		t.Errorf("symbol = %q, want SPY", mc.Symbol)
	}
}
