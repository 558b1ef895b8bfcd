package agents

import (
	"math"
	"strings"
	"testing"

	"TradePulse/internal/domain/models"
)

func ptr(v float64) *float64 { return &v }

func callBar() models.EnrichedBar {
	eb := models.EnrichedBar{
		Symbol:          "SPY",
		ATR:             ptr(2.0),
		RSI:             55,
		Bias:            models.SignalCall,
		GeoLevel:        100.4,
		PhiLevel:        100.4,
		GannSupport:     99.5,
		GannResistance:  105,
		WavePosition:    "Wave 3 UP",
		PriceConfluence: true,
	}
	eb.Close = 100
	return eb
}

func TestAllOrder(t *testing.T) {
	want := []string{BaseConfluenceName, GannElliottName, DQNMomentumName, ThreeWaveName}
	roster := All()
	if len(roster) != len(want) {
		t.Fatalf("roster size = %d, want %d", len(roster), len(want))
	}
	for i, a := range roster {
		if a.Name() != want[i] {
			t.Errorf("agent %d = %q, want %q", i, a.Name(), want[i])
		}
	}
}

func TestHoldSentinel(t *testing.T) {
	eb := callBar()
	eb.PriceConfluence = false
	sig := NewBaseConfluence().Evaluate(eb)

	if sig.Signal != models.SignalHold {
		t.Fatalf("signal = %q, want HOLD", sig.Signal)
	}
	if sig.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", sig.Confidence)
	}
	for _, v := range []float64{sig.Entry, sig.Stop, sig.Target1, sig.Target2} {
		if v != eb.Close {
			t.Errorf("hold plan field = %v, want close %v", v, eb.Close)
		}
	}
}

func TestBaseConfluence(t *testing.T) {
	sig := NewBaseConfluence().Evaluate(callBar())

	if sig.Signal != models.SignalCall || sig.Confidence != 65 {
		t.Fatalf("got %q/%v, want CALL/65", sig.Signal, sig.Confidence)
	}
	if sig.Entry != 100 || sig.Stop != 97 || sig.Target1 != 104 || sig.Target2 != 106 {
		t.Errorf("plan = %v/%v/%v/%v, want 100/97/104/106", sig.Entry, sig.Stop, sig.Target1, sig.Target2)
	}

	eb := callBar()
	eb.Bias = ""
	if got := NewBaseConfluence().Evaluate(eb); got.Signal != models.SignalHold {
		t.Errorf("no bias should hold, got %q", got.Signal)
	}
}

func TestBaseConfluenceFallbackATR(t *testing.T) {
	eb := callBar()
	eb.ATR = nil
	sig := NewBaseConfluence().Evaluate(eb)
	if sig.Stop != 100-1.5*5.0 {
		t.Errorf("stop = %v, want fallback-ATR stop %v", sig.Stop, 100-1.5*5.0)
	}
}

func TestGannElliottCall(t *testing.T) {
	eb := callBar()
	sig := NewGannElliott().Evaluate(eb)

	if sig.Signal != models.SignalCall || sig.Confidence != 72 {
		t.Fatalf("got %q/%v, want CALL/72", sig.Signal, sig.Confidence)
	}
	if math.Abs(sig.Stop-99.5*0.99) > 1e-9 {
		t.Errorf("stop = %v, want support*0.99", sig.Stop)
	}
	if sig.Target1 != 105 || math.Abs(sig.Target2-105*1.01) > 1e-9 {
		t.Errorf("targets = %v/%v, want 105/%v", sig.Target1, sig.Target2, 105*1.01)
	}

	eb.TimeConfluence = true
	sig = NewGannElliott().Evaluate(eb)
	if sig.Confidence != 77 {
		t.Errorf("time confluence confidence = %v, want 77", sig.Confidence)
	}
	if len(sig.Reasons) != 2 || sig.Reasons[1] != "time cycle confluence" {
		t.Errorf("reasons = %v, want time-cycle reason appended", sig.Reasons)
	}
}

func TestGannElliottPut(t *testing.T) {
	eb := callBar()
	eb.WavePosition = "Wave 2 DOWN"
	eb.GannResistance = 100.2
	eb.GannSupport = 95
	sig := NewGannElliott().Evaluate(eb)

	if sig.Signal != models.SignalPut {
		t.Fatalf("got %q, want PUT", sig.Signal)
	}
	if math.Abs(sig.Stop-100.2*1.01) > 1e-9 {
		t.Errorf("stop = %v, want resistance*1.01", sig.Stop)
	}
	if sig.Target1 != 95 || math.Abs(sig.Target2-95*0.99) > 1e-9 {
		t.Errorf("targets = %v/%v, want 95/%v", sig.Target1, sig.Target2, 95*0.99)
	}
}

func TestGannElliottHoldAwayFromLevels(t *testing.T) {
	eb := callBar()
	eb.GannSupport = 90 // close nowhere near support
	if got := NewGannElliott().Evaluate(eb); got.Signal != models.SignalHold {
		t.Errorf("got %q, want HOLD", got.Signal)
	}
	eb.WavePosition = "Unknown"
	if got := NewGannElliott().Evaluate(eb); got.Signal != models.SignalHold {
		t.Errorf("unknown wave should hold, got %q", got.Signal)
	}
}

func TestDQNMomentum(t *testing.T) {
	cases := []struct {
		name     string
		rsi      float64
		bias     models.Signal
		wantSig  models.Signal
		wantConf float64
	}{
		{"oversold", 25, "", models.SignalCall, 71},
		{"overbought", 75, "", models.SignalPut, 71},
		{"call momentum", 60, models.SignalCall, models.SignalCall, 60},
		{"put momentum", 40, models.SignalPut, models.SignalPut, 60},
		{"dead zone", 50, "", models.SignalHold, 0},
		{"against bias", 40, models.SignalCall, models.SignalHold, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			eb := callBar()
			eb.RSI = tc.rsi
			eb.Bias = tc.bias
			sig := NewDQNMomentum().Evaluate(eb)
			if sig.Signal != tc.wantSig || sig.Confidence != tc.wantConf {
				t.Errorf("got %q/%v, want %q/%v", sig.Signal, sig.Confidence, tc.wantSig, tc.wantConf)
			}
		})
	}
}

func TestDQNMomentumReason(t *testing.T) {
	eb := callBar()
	eb.RSI = 25
	sig := NewDQNMomentum().Evaluate(eb)
	if len(sig.Reasons) != 1 || !strings.Contains(sig.Reasons[0], "oversold at 25.0") {
		t.Errorf("reasons = %v, want oversold reason with RSI value", sig.Reasons)
	}
}

func TestThreeWave(t *testing.T) {
	sig := NewThreeWave().Evaluate(callBar())
	if sig.Signal != models.SignalCall || sig.Confidence != 68 {
		t.Fatalf("got %q/%v, want CALL/68", sig.Signal, sig.Confidence)
	}
	if sig.Stop != 100-1.2*2 || sig.Target2 != 100+3.5*2 {
		t.Errorf("plan = %v/%v, want %v/%v", sig.Stop, sig.Target2, 100-1.2*2, 100+3.5*2)
	}

	eb := callBar()
	eb.PhiLevel = 101.0 // exactly half an ATR away: outside
	if got := NewThreeWave().Evaluate(eb); got.Signal != models.SignalHold {
		t.Errorf("boundary distance should hold, got %q", got.Signal)
	}
	eb = callBar()
	eb.Bias = ""
	if got := NewThreeWave().Evaluate(eb); got.Signal != models.SignalHold {
		t.Errorf("no bias should hold, got %q", got.Signal)
	}
}
