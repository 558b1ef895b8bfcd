package indicators

import (
	"math"

	"TradePulse/internal/domain/models"
	domservice "TradePulse/internal/domain/service"
)

// Lookback lengths. These are tuned constants; changing them changes every
// downstream signal, so they are not configurable.
const (
	ATRLength  = 14
	RSILength  = 14
	FastSMALen = 10
	SlowSMALen = 20
	GeoWindow  = 20
	WaveWindow = 50
)

// Pipeline computes per-bar indicators over a validated series. Pure and
// stateless: every derived field depends only on the series prefix ending at
// that bar.
type Pipeline struct{}

var _ domservice.Enricher = (*Pipeline)(nil)

func NewPipeline() *Pipeline { return &Pipeline{} }

// Enrich annotates every bar of the series. Insufficient history never
// errors; each indicator falls back to its documented default instead.
func (p *Pipeline) Enrich(series *models.BarSeries) []models.EnrichedBar {
	bars := series.Bars
	out := make([]models.EnrichedBar, len(bars))

	fast := smaSeries(bars, FastSMALen)
	slow := smaSeries(bars, SlowSMALen)

	for i := range bars {
		eb := models.EnrichedBar{
			Bar:    bars[i],
			Symbol: series.Symbol,
			Index:  i,
		}
		eb.ATR = atrAt(bars, i, ATRLength)
		eb.FastSMA = fast[i]
		eb.SlowSMA = slow[i]
		eb.RSI = rsiAt(bars, i, RSILength)
		if fast[i] != nil && slow[i] != nil {
			if *fast[i] > *slow[i] {
				eb.Bias = models.SignalCall
			} else {
				eb.Bias = models.SignalPut
			}
		}
		eb.GannSupport, eb.GannResistance = gannLevels(bars[i].Close)
		eb.GeoLevel, eb.PhiLevel = geoPhiLevels(bars, i)
		eb.WavePosition = wavePosition(bars, i)
		eb.PriceConfluence = priceConfluence(eb)
		eb.TimeConfluence = timeConfluence(i)
		out[i] = eb
	}
	return out
}

// atrAt returns the simple mean of true ranges over the trailing window.
// This is deliberately not Wilder's smoothing; downstream confidence levels
// were tuned against the plain mean.
func atrAt(bars []models.Bar, i, length int) *float64 {
	if i < length {
		return nil
	}
	var sum float64
	for j := i - length + 1; j <= i; j++ {
		prevClose := bars[j].Close
		if j > 0 {
			prevClose = bars[j-1].Close
		}
		tr := bars[j].High - bars[j].Low
		if d := math.Abs(bars[j].High - prevClose); d > tr {
			tr = d
		}
		if d := math.Abs(bars[j].Low - prevClose); d > tr {
			tr = d
		}
		sum += tr
	}
	v := sum / float64(length)
	return &v
}

func smaSeries(bars []models.Bar, length int) []*float64 {
	out := make([]*float64, len(bars))
	var sum float64
	for i := range bars {
		sum += bars[i].Close
		if i >= length {
			sum -= bars[i-length].Close
		}
		if i >= length-1 {
			v := sum / float64(length)
			out[i] = &v
		}
	}
	return out
}

// rsiAt computes classic RSI over the trailing daily changes. Bars before the
// lookback fills get a neutral 50 rather than no value; agents rely on the
// field always being present.
func rsiAt(bars []models.Bar, i, length int) float64 {
	if i < length {
		return 50
	}
	var gains, losses float64
	for j := i - length + 1; j <= i; j++ {
		change := bars[j].Close - bars[j-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}
	avgGain := gains / float64(length)
	avgLoss := losses / float64(length)
	if avgLoss == 0 {
		// No movement at all stays neutral; only gains-with-zero-losses pin
		// to 100.
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
