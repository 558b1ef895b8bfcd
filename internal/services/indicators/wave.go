package indicators

import "TradePulse/internal/domain/models"

// timeCycles are the fixed cycle lengths checked for time confluence.
var timeCycles = [...]int{11, 22, 34, 45, 56, 67, 78, 90}

const timeCycleTolerance = 2

// wavePosition labels where price sits inside a presumed 5-wave structure,
// from the position of the extreme high/low within the trailing 50-bar
// window (inclusive of the current bar).
//
// The DOWN branch labels its mid tier "Wave 2 DOWN" where the UP branch says
// "Wave 3 UP". The asymmetry is historical; outputs are compared against
// archived runs, so it stays.
func wavePosition(bars []models.Bar, i int) string {
	if i < WaveWindow {
		return "Unknown"
	}
	start := i - WaveWindow + 1
	maxIdx, minIdx := start, start
	for j := start; j <= i; j++ {
		if bars[j].High > bars[maxIdx].High {
			maxIdx = j
		}
		if bars[j].Low < bars[minIdx].Low {
			minIdx = j
		}
	}

	if maxIdx > minIdx {
		pos := float64(maxIdx-start) / float64(WaveWindow-1)
		switch {
		case pos >= 0.8:
			return "Wave 5 UP"
		case pos >= 0.5:
			return "Wave 3 UP"
		default:
			return "Wave 1 UP"
		}
	}
	pos := float64(minIdx-start) / float64(WaveWindow-1)
	switch {
	case pos >= 0.8:
		return "Wave 5 DOWN"
	case pos >= 0.5:
		return "Wave 2 DOWN"
	default:
		return "Wave 1 DOWN"
	}
}

// priceConfluence is set when the close sits within half an ATR of the
// geometric level. No ATR yet means no confluence.
func priceConfluence(eb models.EnrichedBar) bool {
	if eb.ATR == nil {
		return false
	}
	d := eb.Close - eb.GeoLevel
	if d < 0 {
		d = -d
	}
	return d < 0.5**eb.ATR
}

// timeConfluence is set when the zero-based bar index lands within the
// tolerance of any cycle boundary.
func timeConfluence(i int) bool {
	for _, c := range timeCycles {
		m := i % c
		if m <= timeCycleTolerance || m >= c-timeCycleTolerance {
			return true
		}
	}
	return false
}
