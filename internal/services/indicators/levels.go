package indicators

import (
	"math"

	"TradePulse/internal/domain/models"
)

const (
	gannStep      = 45.0 / 180.0
	gannLevelsMax = 5
)

// gannLevels derives Square-of-9 support/resistance from the close. Both
// sides pick the candidate nearest to close by absolute difference, so
// "resistance" can occasionally resolve below the close; agent thresholds
// were tuned against that behavior, keep it.
func gannLevels(close float64) (support, resistance float64) {
	s := math.Sqrt(close)

	bestSup, bestSupDiff := 0.0, math.MaxFloat64
	bestRes, bestResDiff := 0.0, math.MaxFloat64
	for k := 1; k <= gannLevelsMax; k++ {
		step := float64(k) * gannStep

		res := (s + step) * (s + step)
		if d := math.Abs(res - close); d < bestResDiff {
			bestRes, bestResDiff = res, d
		}

		if s > step {
			sup := (s - step) * (s - step)
			if d := math.Abs(sup - close); d < bestSupDiff {
				bestSup, bestSupDiff = sup, d
			}
		}
	}
	if bestSupDiff == math.MaxFloat64 {
		bestSup = close * 0.95
	}
	return bestSup, bestRes
}

// geoPhiLevels computes the midpoint and 0.618 retracement of the trailing
// 20-bar high/low range, excluding the current bar. Early bars fall back to
// the close itself.
func geoPhiLevels(bars []models.Bar, i int) (geo, phi float64) {
	if i <= GeoWindow {
		return bars[i].Close, bars[i].Close * 0.618
	}
	hi, lo := bars[i-GeoWindow].High, bars[i-GeoWindow].Low
	for j := i - GeoWindow + 1; j < i; j++ {
		if bars[j].High > hi {
			hi = bars[j].High
		}
		if bars[j].Low < lo {
			lo = bars[j].Low
		}
	}
	return (hi + lo) / 2, lo + 0.618*(hi-lo)
}
