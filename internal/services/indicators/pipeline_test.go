package indicators

import (
	"math"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
)

func flatBars(n int, high, low, close float64) []models.Bar {
	bars := make([]models.Bar, n)
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.Bar{Date: d, Open: close, High: high, Low: low, Close: close, Volume: 1000}
		d = d.AddDate(0, 0, 1)
	}
	return bars
}

func mustSeries(t *testing.T, symbol string, bars []models.Bar) *models.BarSeries {
	t.Helper()
	s, err := models.NewBarSeries(symbol, bars)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	return s
}

func TestEnrichWarmupDefaults(t *testing.T) {
	bars := flatBars(60, 101, 99, 100)
	out := NewPipeline().Enrich(mustSeries(t, "SPY", bars))

	if len(out) != 60 {
		t.Fatalf("expected 60 enriched bars, got %d", len(out))
	}
	if out[13].ATR != nil {
		t.Errorf("bar 13: ATR should be nil before the lookback fills")
	}
	if out[14].ATR == nil {
		t.Fatalf("bar 14: ATR missing")
	}
	if got := *out[14].ATR; math.Abs(got-2.0) > 1e-9 {
		t.Errorf("bar 14: ATR = %v, want 2.0", got)
	}

	if out[8].FastSMA != nil {
		t.Errorf("bar 8: FastSMA should be nil")
	}
	if out[9].FastSMA == nil || math.Abs(*out[9].FastSMA-100) > 1e-9 {
		t.Errorf("bar 9: FastSMA = %v, want 100", out[9].FastSMA)
	}
	if out[18].SlowSMA != nil {
		t.Errorf("bar 18: SlowSMA should be nil")
	}
	if out[19].SlowSMA == nil || math.Abs(*out[19].SlowSMA-100) > 1e-9 {
		t.Errorf("bar 19: SlowSMA = %v, want 100", out[19].SlowSMA)
	}

	// Before both SMAs exist there is no bias.
	if out[18].Bias != "" {
		t.Errorf("bar 18: Bias = %q, want empty", out[18].Bias)
	}
	// Flat closes: fast == slow, which reads as PUT.
	if out[19].Bias != models.SignalPut {
		t.Errorf("bar 19: Bias = %q, want PUT", out[19].Bias)
	}

	// A flat series never leaves neutral: no gains and no losses.
	for i := range out {
		if out[i].RSI != 50 {
			t.Fatalf("bar %d: RSI = %v, want neutral 50", i, out[i].RSI)
		}
	}
}

func TestEnrichRSIDirections(t *testing.T) {
	up := flatBars(30, 0, 0, 0)
	down := flatBars(30, 0, 0, 0)
	for i := range up {
		c := 100 + float64(i)
		up[i].Open, up[i].High, up[i].Low, up[i].Close = c, c+1, c-1, c
		c = 200 - float64(i)
		down[i].Open, down[i].High, down[i].Low, down[i].Close = c, c+1, c-1, c
	}

	outUp := NewPipeline().Enrich(mustSeries(t, "UP", up))
	if got := outUp[29].RSI; got != 100 {
		t.Errorf("rising series RSI = %v, want 100", got)
	}
	outDown := NewPipeline().Enrich(mustSeries(t, "DOWN", down))
	if got := outDown[29].RSI; got != 0 {
		t.Errorf("falling series RSI = %v, want 0", got)
	}
}

func TestGannLevelsNearest(t *testing.T) {
	sup, res := gannLevels(100)

	// sqrt(100)=10; the k=1 ring is nearest on both sides.
	wantSup := (10 - 0.25) * (10 - 0.25)
	wantRes := (10 + 0.25) * (10 + 0.25)
	if math.Abs(sup-wantSup) > 1e-9 {
		t.Errorf("support = %v, want %v", sup, wantSup)
	}
	if math.Abs(res-wantRes) > 1e-9 {
		t.Errorf("resistance = %v, want %v", res, wantRes)
	}
}

func TestGannLevelsSupportFallback(t *testing.T) {
	// sqrt(0.05) < 0.25: no ring has a support candidate.
	sup, _ := gannLevels(0.05)
	if math.Abs(sup-0.05*0.95) > 1e-12 {
		t.Errorf("support fallback = %v, want %v", sup, 0.05*0.95)
	}
}

func TestGeoPhiLevels(t *testing.T) {
	bars := flatBars(25, 110, 90, 100)

	// At or before the window boundary: close-derived fallback.
	geo, phi := geoPhiLevels(bars, 20)
	if geo != 100 || math.Abs(phi-61.8) > 1e-9 {
		t.Errorf("fallback geo/phi = %v/%v, want 100/61.8", geo, phi)
	}

	// Past the boundary: midpoint and 0.618 retracement of the trailing
	// window, current bar excluded.
	geo, phi = geoPhiLevels(bars, 21)
	if math.Abs(geo-100) > 1e-9 {
		t.Errorf("geo = %v, want 100", geo)
	}
	if math.Abs(phi-(90+0.618*20)) > 1e-9 {
		t.Errorf("phi = %v, want %v", phi, 90+0.618*20)
	}
}

func TestGeoPhiExcludesCurrentBar(t *testing.T) {
	bars := flatBars(25, 110, 90, 100)
	// A spike on the current bar must not move the level.
	bars[21].High = 500
	bars[21].Close = 111
	geo, _ := geoPhiLevels(bars, 21)
	if math.Abs(geo-100) > 1e-9 {
		t.Errorf("geo = %v, current bar leaked into the window", geo)
	}
}

func TestWavePosition(t *testing.T) {
	base := func() []models.Bar { return flatBars(51, 100, 90, 95) }

	t.Run("unknown before window", func(t *testing.T) {
		if got := wavePosition(base(), 49); got != "Unknown" {
			t.Errorf("got %q, want Unknown", got)
		}
	})

	// Window at i=50 spans indices 1..50 with denominator 49.
	cases := []struct {
		name     string
		maxIdx   int
		minIdx   int
		want     string
	}{
		{"wave 5 up", 50, 2, "Wave 5 UP"},
		{"wave 3 up", 30, 2, "Wave 3 UP"},
		{"wave 1 up", 10, 2, "Wave 1 UP"},
		{"wave 5 down", 2, 50, "Wave 5 DOWN"},
		// Mid tier is "Wave 2 DOWN", not "Wave 3": the label sets are
		// intentionally asymmetric to match archived runs.
		{"wave 2 down", 2, 30, "Wave 2 DOWN"},
		{"wave 1 down", 2, 10, "Wave 1 DOWN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bars := base()
			bars[tc.maxIdx].High = 120
			bars[tc.minIdx].Low = 80
			if got := wavePosition(bars, 50); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTimeConfluence(t *testing.T) {
	cases := []struct {
		i    int
		want bool
	}{
		{0, true},   // 0 mod 11
		{2, true},   // inside tolerance
		{3, false},
		{5, false},
		{9, true},   // 11 - 2
		{22, true},  // exact cycle
		{38, false},
	}
	for _, tc := range cases {
		if got := timeConfluence(tc.i); got != tc.want {
			t.Errorf("timeConfluence(%d) = %v, want %v", tc.i, got, tc.want)
		}
	}
}

func TestPriceConfluence(t *testing.T) {
	atr := 2.0
	eb := models.EnrichedBar{GeoLevel: 100.5}
	eb.Close = 100

	if priceConfluence(eb) {
		t.Errorf("no ATR should mean no confluence")
	}

	eb.ATR = &atr
	if !priceConfluence(eb) {
		t.Errorf("close within half an ATR of geo should be confluent")
	}

	eb.GeoLevel = 101.1
	if priceConfluence(eb) {
		t.Errorf("close beyond half an ATR should not be confluent")
	}
}

func TestEnrichDeterministic(t *testing.T) {
	bars := flatBars(55, 0, 0, 0)
	for i := range bars {
		c := 100 + 5*math.Sin(float64(i)/3)
		bars[i].Open, bars[i].High, bars[i].Low, bars[i].Close = c, c+2, c-2, c
	}
	p := NewPipeline()
	a := p.Enrich(mustSeries(t, "QQQ", bars))
	b := p.Enrich(mustSeries(t, "QQQ", bars))
	for i := range a {
		if a[i].RSI != b[i].RSI || a[i].GeoLevel != b[i].GeoLevel || a[i].WavePosition != b[i].WavePosition {
			t.Fatalf("bar %d differs between identical runs", i)
		}
	}
}
