package models

import (
	"fmt"
	"time"
)

// Bar represents one daily OHLCV record for one symbol.
type Bar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// ValidationError reports a malformed bar rejected at the series boundary.
type ValidationError struct {
	Symbol string
	Index  int
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bar series %s: bar %d: %s", e.Symbol, e.Index, e.Reason)
}

// BarSeries holds validated bars for one symbol, strictly ascending by date.
type BarSeries struct {
	Symbol string
	Bars   []Bar
}

// NewBarSeries validates bars and builds a series. Prices must be positive,
// high/low must bracket open and close, dates must be strictly ascending.
// Validation happens only here; downstream stages assume well-formed input.
func NewBarSeries(symbol string, bars []Bar) (*BarSeries, error) {
	for i, b := range bars {
		if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			return nil, &ValidationError{Symbol: symbol, Index: i, Reason: "non-positive price"}
		}
		if b.High < b.Open || b.High < b.Close {
			return nil, &ValidationError{Symbol: symbol, Index: i, Reason: "high below open/close"}
		}
		if b.Low > b.Open || b.Low > b.Close {
			return nil, &ValidationError{Symbol: symbol, Index: i, Reason: "low above open/close"}
		}
		if b.Volume < 0 {
			return nil, &ValidationError{Symbol: symbol, Index: i, Reason: "negative volume"}
		}
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return nil, &ValidationError{Symbol: symbol, Index: i, Reason: "date not strictly ascending"}
		}
	}
	return &BarSeries{Symbol: symbol, Bars: bars}, nil
}

// EnrichedBar is a Bar annotated by the indicator pipeline. Pointer fields are
// nil while the corresponding lookback has not filled. All fields are pure
// functions of the series prefix ending at this bar.
type EnrichedBar struct {
	Bar
	Symbol          string
	Index           int      // zero-based position in the series
	ATR             *float64 // nil for the first 14 bars
	FastSMA         *float64 // nil for the first 9 bars
	SlowSMA         *float64 // nil for the first 19 bars
	RSI             float64  // defaults to 50 until the lookback fills
	Bias            Signal   // "" until both SMAs exist
	GannSupport     float64
	GannResistance  float64
	GeoLevel        float64
	PhiLevel        float64
	WavePosition    string // "Unknown", "Wave 1 UP", "Wave 2 DOWN", ...
	PriceConfluence bool
	TimeConfluence  bool
}
