package usecase

import (
	"math"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/services/agents"
	"TradePulse/internal/services/indicators"
)

// stubAgent votes a fixed signal regardless of the bar.
type stubAgent struct {
	name string
	sig  models.Signal
	conf float64
	plan [4]float64 // entry, stop, t1, t2
}

func (s *stubAgent) Name() string { return s.name }

func (s *stubAgent) Evaluate(eb models.EnrichedBar) models.AgentSignal {
	if s.sig == models.SignalHold {
		return models.AgentSignal{
			Agent: s.name, Signal: models.SignalHold,
			Entry: eb.Close, Stop: eb.Close, Target1: eb.Close, Target2: eb.Close,
		}
	}
	return models.AgentSignal{
		Agent: s.name, Signal: s.sig, Confidence: s.conf,
		Entry: s.plan[0], Stop: s.plan[1], Target1: s.plan[2], Target2: s.plan[3],
	}
}

func engineOf(sigs ...models.Signal) *ConsensusEngine {
	agents := make([]domsvc.Agent, len(sigs))
	for i, sig := range sigs {
		agents[i] = &stubAgent{
			name: string(rune('A' + i)),
			sig:  sig,
			conf: 60 + float64(i)*10,
			plan: [4]float64{100, 95, 105, 110},
		}
	}
	return NewConsensusEngine(agents)
}

func bar(close float64) models.EnrichedBar {
	eb := models.EnrichedBar{Symbol: "SPY", Index: 0}
	eb.Close = close
	eb.Date = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	return eb
}

func TestEvaluateVotesAlwaysSumToFour(t *testing.T) {
	engines := []*ConsensusEngine{
		engineOf(models.SignalCall, models.SignalCall, models.SignalPut, models.SignalHold),
		engineOf(models.SignalHold, models.SignalHold, models.SignalHold, models.SignalHold),
		engineOf(models.SignalPut, models.SignalPut, models.SignalPut, models.SignalPut),
	}
	for i, e := range engines {
		r := e.Evaluate(bar(100))
		if r.CallVotes+r.PutVotes+r.HoldVotes != 4 {
			t.Errorf("engine %d: votes sum to %d, want 4", i, r.CallVotes+r.PutVotes+r.HoldVotes)
		}
		if len(r.Agents) != 4 {
			t.Errorf("engine %d: %d agent signals, want 4", i, len(r.Agents))
		}
	}
}

func TestEvaluateSuperMajorityCall(t *testing.T) {
	e := engineOf(models.SignalCall, models.SignalCall, models.SignalCall, models.SignalHold)
	r := e.Evaluate(bar(100))

	if r.Signal != models.SignalCall {
		t.Fatalf("signal = %q, want CALL", r.Signal)
	}
	if r.Tier != models.TierSuper {
		t.Errorf("tier = %q, want SUPER", r.Tier)
	}
	if !r.Approved {
		t.Errorf("3-of-4 directional majority should be approved")
	}

	// Means over the three CALL voters only; confidences 60, 70, 80.
	if math.Abs(r.Confidence-70) > 1e-9 {
		t.Errorf("confidence = %v, want 70", r.Confidence)
	}
	if r.Entry != 100 || r.Stop != 95 || r.Target1 != 105 || r.Target2 != 110 {
		t.Errorf("plan = %v/%v/%v/%v, want 100/95/105/110", r.Entry, r.Stop, r.Target1, r.Target2)
	}
	if math.Abs(r.Target3-110*1.1) > 1e-9 {
		t.Errorf("target3 = %v, want %v", r.Target3, 110*1.1)
	}
}

func TestEvaluateTieIsHold(t *testing.T) {
	e := engineOf(models.SignalCall, models.SignalCall, models.SignalPut, models.SignalPut)
	r := e.Evaluate(bar(100))

	if r.Signal != models.SignalHold {
		t.Fatalf("signal = %q, want HOLD on a tie", r.Signal)
	}
	if r.Tier != models.TierPartial {
		t.Errorf("tier = %q, want PARTIAL", r.Tier)
	}
	if r.Approved {
		t.Errorf("tie must not be approved")
	}
	// HOLD extends the PUT side.
	if math.Abs(r.Target3-110*0.9) > 1e-9 {
		t.Errorf("target3 = %v, want %v", r.Target3, 110*0.9)
	}
}

func TestEvaluateAllHold(t *testing.T) {
	e := engineOf(models.SignalHold, models.SignalHold, models.SignalHold, models.SignalHold)
	r := e.Evaluate(bar(123.45))

	if r.Signal != models.SignalHold || r.Approved {
		t.Fatalf("all-hold must yield unapproved HOLD, got %q approved=%v", r.Signal, r.Approved)
	}
	// HOLD votes carry no tier weight: a quiet day is NONE, not agreement.
	if r.Tier != models.TierNone {
		t.Errorf("tier = %q, want NONE", r.Tier)
	}
	if r.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", r.Confidence)
	}
	for _, v := range []float64{r.Entry, r.Stop, r.Target1, r.Target2} {
		if v != 123.45 {
			t.Errorf("plan field = %v, want close", v)
		}
	}
	if math.Abs(r.Target3-123.45*0.9) > 1e-9 {
		t.Errorf("target3 = %v, want close*0.9", r.Target3)
	}
}

func TestEvaluateHoldVotesCarryNoTier(t *testing.T) {
	// Three quiet agents must not lift a lone directional vote past NONE.
	e := engineOf(models.SignalPut, models.SignalHold, models.SignalHold, models.SignalHold)
	r := e.Evaluate(bar(100))

	if r.Tier != models.TierNone {
		t.Errorf("tier = %q, want NONE with one directional vote", r.Tier)
	}
	if r.MaxVotes() != 1 {
		t.Errorf("max votes = %d, want 1", r.MaxVotes())
	}
	if r.Signal != models.SignalHold || r.Approved {
		t.Errorf("got %q approved=%v, want unapproved HOLD", r.Signal, r.Approved)
	}
}

func TestEvaluateUnanimousPut(t *testing.T) {
	e := engineOf(models.SignalPut, models.SignalPut, models.SignalPut, models.SignalPut)
	r := e.Evaluate(bar(100))

	if r.Signal != models.SignalPut || r.Tier != models.TierUltra || !r.Approved {
		t.Fatalf("got %q/%q approved=%v, want PUT/ULTRA approved", r.Signal, r.Tier, r.Approved)
	}
	if math.Abs(r.Target3-110*0.9) > 1e-9 {
		t.Errorf("target3 = %v, want target2*0.9", r.Target3)
	}
}

func TestEvaluateQuietMarket(t *testing.T) {
	// A dead-flat tape through the real pipeline and agent roster: nobody
	// fires, RSI stays neutral, and the day grades NONE.
	bars := make([]models.Bar, 20)
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		bars[i] = models.Bar{Date: d, Open: 100, High: 100, Low: 100, Close: 100, Volume: 1000}
		d = d.AddDate(0, 0, 1)
	}
	series, err := models.NewBarSeries("SPY", bars)
	if err != nil {
		t.Fatalf("series: %v", err)
	}

	enriched := indicators.NewPipeline().Enrich(series)
	last := enriched[len(enriched)-1]
	if last.RSI != 50 {
		t.Fatalf("flat-series RSI = %v, want 50", last.RSI)
	}

	r := NewConsensusEngine(agents.All()).Evaluate(last)
	if r.HoldVotes != 4 {
		t.Fatalf("hold votes = %d (call=%d put=%d), want all four agents HOLD",
			r.HoldVotes, r.CallVotes, r.PutVotes)
	}
	if r.Tier != models.TierNone {
		t.Errorf("tier = %q, want NONE", r.Tier)
	}
	if r.Signal != models.SignalHold || r.Approved {
		t.Errorf("got %q approved=%v, want unapproved HOLD", r.Signal, r.Approved)
	}
}

func TestEvaluateSeriesTrailing(t *testing.T) {
	e := engineOf(models.SignalCall, models.SignalCall, models.SignalCall, models.SignalCall)

	enriched := make([]models.EnrichedBar, 5)
	d := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	for i := range enriched {
		enriched[i] = bar(100 + float64(i))
		enriched[i].Date = d
		d = d.AddDate(0, 0, 1)
	}

	out := e.EvaluateSeries(enriched, 3)
	if len(out) != 3 {
		t.Fatalf("got %d results, want trailing 3", len(out))
	}
	if !out[0].Date.Equal(enriched[2].Date) {
		t.Errorf("first result date = %v, want %v", out[0].Date, enriched[2].Date)
	}
	if !out[2].Date.After(out[0].Date) {
		t.Errorf("results not in ascending date order")
	}

	if got := e.EvaluateSeries(enriched, 0); len(got) != 5 {
		t.Errorf("trailing 0 should evaluate all bars, got %d", len(got))
	}
}
