package usecase

import (
	"math"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/pkg/util"
)

func resultAt(symbol string, date time.Time, tier models.Tier, approved bool) *models.ConsensusResult {
	return &models.ConsensusResult{
		Symbol:   symbol,
		Date:     date,
		Signal:   models.SignalCall,
		Tier:     tier,
		Entry:    100,
		Stop:     95,
		Target1:  105,
		Target2:  110,
		Approved: approved,
		Close:    100,
	}
}

func TestFilterTier(t *testing.T) {
	d := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	results := []*models.ConsensusResult{
		resultAt("SPY", d, models.TierNone, false),
		resultAt("SPY", d, models.TierPartial, false),
		resultAt("SPY", d, models.TierSuper, true),
		resultAt("SPY", d, models.TierUltra, true),
	}

	cases := []struct {
		min  models.Tier
		want int
	}{
		{models.TierNone, 4},
		{models.TierPartial, 3},
		{models.TierSuper, 2},
		{models.TierUltra, 1},
	}
	for _, tc := range cases {
		if got := len(FilterTier(results, tc.min)); got != tc.want {
			t.Errorf("FilterTier(%q) = %d results, want %d", tc.min, got, tc.want)
		}
	}
}

func TestBuildPortfolio(t *testing.T) {
	d1 := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)  // Monday
	d2 := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	results := []*models.ConsensusResult{
		resultAt("SPY", d1, models.TierSuper, true),
		resultAt("QQQ", d2, models.TierUltra, true),
		resultAt("IWM", d1, models.TierPartial, false), // not approved
	}

	atr := 2.0
	spyBar := models.EnrichedBar{ATR: &atr}
	spyBar.Date = d1
	enriched := map[string][]models.EnrichedBar{"SPY": {spyBar}}

	entries := BuildPortfolio(results, enriched, 10)
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2 approved", len(entries))
	}
	// Newest first.
	if entries[0].Symbol != "QQQ" || entries[1].Symbol != "SPY" {
		t.Errorf("order = %s,%s, want QQQ,SPY", entries[0].Symbol, entries[1].Symbol)
	}

	spy := entries[1]
	if math.Abs(spy.EntryLow-(100-0.5*atr)) > 1e-9 || math.Abs(spy.EntryHigh-(100+0.5*atr)) > 1e-9 {
		t.Errorf("entry band = [%v, %v], want half an ATR around entry", spy.EntryLow, spy.EntryHigh)
	}
	// QQQ has no enriched bars: the fixed fallback band applies.
	qqq := entries[0]
	if math.Abs(qqq.EntryLow-(100-2.5)) > 1e-9 {
		t.Errorf("fallback band low = %v, want %v", qqq.EntryLow, 100-2.5)
	}

	if got := util.DayKey(spy.ExpiryDate); got != "2024-06-10" {
		t.Errorf("expiry = %s, want 2024-06-10 (5 trading days after Monday)", got)
	}
	for _, e := range entries {
		if e.Status != "OPEN" {
			t.Errorf("status = %q, want OPEN", e.Status)
		}
		if e.ExitDate != nil || e.ExitPrice != nil || e.PNL != nil {
			t.Errorf("exit fields must stay empty at emission")
		}
	}

	if got := BuildPortfolio(results, enriched, 1); len(got) != 1 || got[0].Symbol != "QQQ" {
		t.Errorf("n=1 should keep only the newest approved entry")
	}
}

func TestBuildAgreement(t *testing.T) {
	d := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	r1 := resultAt("SPY", d, models.TierSuper, true)
	r1.Agents = []models.AgentSignal{
		{Agent: "A", Signal: models.SignalCall, Confidence: 70},
		{Agent: "B", Signal: models.SignalHold},
	}
	r2 := resultAt("QQQ", d, models.TierPartial, false)
	r2.Agents = []models.AgentSignal{
		{Agent: "A", Signal: models.SignalPut, Confidence: 60},
		{Agent: "B", Signal: models.SignalHold},
	}
	r2.Signal = models.SignalHold

	aa := BuildAgreement([]*models.ConsensusResult{r1, r2}, time.Now())

	if aa.Results != 2 || aa.Approved != 1 {
		t.Errorf("results/approved = %d/%d, want 2/1", aa.Results, aa.Approved)
	}
	if aa.Tiers[models.TierSuper] != 1 || aa.Tiers[models.TierPartial] != 1 {
		t.Errorf("tier histogram wrong: %v", aa.Tiers)
	}
	if aa.Symbols["SPY"] != 1 || aa.Symbols["QQQ"] != 1 {
		t.Errorf("symbol histogram wrong: %v", aa.Symbols)
	}

	if len(aa.Agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(aa.Agents))
	}
	a := aa.Agents[0]
	if a.Agent != "A" || a.Calls != 1 || a.Puts != 1 || a.Holds != 0 {
		t.Errorf("agent A tallies = %+v", a)
	}
	if math.Abs(a.AvgConfidence-65) > 1e-9 {
		t.Errorf("agent A avg confidence = %v, want 65", a.AvgConfidence)
	}
	// A matched the consensus on r1 (CALL) but not r2 (HOLD vs PUT).
	if math.Abs(a.ConsensusAgreement-0.5) > 1e-9 {
		t.Errorf("agent A agreement = %v, want 0.5", a.ConsensusAgreement)
	}
	b := aa.Agents[1]
	// B held both times; consensus was CALL then HOLD.
	if b.Holds != 2 || math.Abs(b.ConsensusAgreement-0.5) > 1e-9 {
		t.Errorf("agent B stats = %+v", b)
	}
}
