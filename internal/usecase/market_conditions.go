package usecase

import (
	"time"

	"TradePulse/internal/domain/models"
)

const (
	volProxyWindow   = 10
	volAnnualizer    = 16 // ~sqrt(252)
	volIndexScale    = 2  // range proxy understates the index roughly 2:1
	volFloor         = 10.0
	volCeiling       = 50.0
	volSafeThreshold = 20.0
)

// BuildMarketConditions scores the 3-factor safe-to-trade vote for one
// symbol: estimated volatility below threshold, close above the slow SMA,
// and sector rotation not risk-off. Safe when at least two factors hold.
func BuildMarketConditions(symbol string, enriched []models.EnrichedBar, rotation string, now time.Time) *models.MarketConditions {
	mc := &models.MarketConditions{
		GeneratedAt: now,
		Symbol:      symbol,
		Rotation:    rotation,
	}
	if len(enriched) == 0 {
		return mc
	}
	last := enriched[len(enriched)-1]

	mc.EstVolatility = estVolatility(enriched)
	mc.VolatilityOK = mc.EstVolatility < volSafeThreshold

	if last.SlowSMA != nil {
		mc.AboveSlowSMA = last.Close > *last.SlowSMA
		mc.TrendDistance = pctChange(*last.SlowSMA, last.Close)
	}

	mc.RotationOK = rotation != "Risk-Off"

	for _, ok := range []bool{mc.VolatilityOK, mc.AboveSlowSMA, mc.RotationOK} {
		if ok {
			mc.ConditionsMet++
		}
	}
	mc.SafeToTrade = mc.ConditionsMet >= 2
	return mc
}

// estVolatility is an annualized VIX-style proxy from intraday ranges:
// mean((high-low)/close) over the trailing window, scaled and clamped.
func estVolatility(enriched []models.EnrichedBar) float64 {
	n := volProxyWindow
	if len(enriched) < n {
		n = len(enriched)
	}
	var sum float64
	for _, eb := range enriched[len(enriched)-n:] {
		if eb.Close > 0 {
			sum += (eb.High - eb.Low) / eb.Close
		}
	}
	v := sum / float64(n) * 100 * volAnnualizer * volIndexScale
	if v < volFloor {
		v = volFloor
	}
	if v > volCeiling {
		v = volCeiling
	}
	return v
}
