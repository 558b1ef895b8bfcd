package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/services/agents"
	"TradePulse/internal/services/indicators"
)

// fakeProvider serves deterministic synthetic bars per symbol.
type fakeProvider struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{calls: map[string]int{}, fail: map[string]bool{}}
}

func (p *fakeProvider) DailyBars(ctx context.Context, symbol string, lookback int) ([]models.Bar, error) {
	p.mu.Lock()
	p.calls[symbol]++
	fail := p.fail[symbol]
	p.mu.Unlock()
	if fail {
		return nil, fmt.Errorf("provider down")
	}

	bars := make([]models.Bar, lookback)
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 100 + 5*math.Sin(float64(i)/4)
		bars[i] = models.Bar{Date: d, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
		d = d.AddDate(0, 0, 1)
	}
	return bars, nil
}

// fakeStore records stored consensus results.
type fakeStore struct {
	mu      sync.Mutex
	stored  []*models.ConsensusResult
	batches int
}

func (s *fakeStore) Init(ctx context.Context) error { return nil }
func (s *fakeStore) Store(ctx context.Context, r *models.ConsensusResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, r)
	return nil
}
func (s *fakeStore) StoreBatch(ctx context.Context, results []*models.ConsensusResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = append(s.stored, results...)
	s.batches++
	return nil
}
func (s *fakeStore) Query(ctx context.Context, symbol string, minTier models.Tier, limit int) ([]*models.ConsensusResult, error) {
	return nil, nil
}
func (s *fakeStore) Health(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                     { return nil }

// nopMetrics satisfies the metrics interface for tests.
type nopMetrics struct{}

func (nopMetrics) RecordAgentSignal(agent, signal string)       {}
func (nopMetrics) RecordConsensus(tier string, approved bool)   {}
func (nopMetrics) RecordMessageSent(backend, symbol string)     {}
func (nopMetrics) RecordError(kind string)                      {}
func (nopMetrics) RecordLastPrice(symbol string, price float64) {}
func (nopMetrics) RecordLatency(op string, seconds float64)     {}

type captureAnchor struct {
	mu     sync.Mutex
	prices map[string]float64
}

func (a *captureAnchor) Anchor(symbol string, close float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.prices == nil {
		a.prices = map[string]float64{}
	}
	a.prices[symbol] = close
}

func newTestScanner(provider *fakeProvider, store *fakeStore, opts ...ScannerOption) *Scanner {
	proc := NewSignalProcessor(nil, store, nopMetrics{}, "clickhouse")
	engine := NewConsensusEngine(agents.All())
	base := []ScannerOption{WithTrailing(10), WithLookback(60), WithWorkers(2)}
	return NewScanner(provider, indicators.NewPipeline(), engine, proc, nopMetrics{}, nil,
		append(base, opts...)...)
}

func TestScanSymbol(t *testing.T) {
	provider := newFakeProvider()
	anchor := &captureAnchor{}
	s := newTestScanner(provider, &fakeStore{}, WithAnchorer(anchor))

	scan, err := s.ScanSymbol(context.Background(), "SPY")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scan.Symbol != "SPY" || len(scan.Enriched) != 60 {
		t.Fatalf("enriched = %d bars for %q, want 60 for SPY", len(scan.Enriched), scan.Symbol)
	}
	if len(scan.Results) != 10 {
		t.Errorf("results = %d, want trailing 10", len(scan.Results))
	}
	for _, r := range scan.Results {
		if r.CallVotes+r.PutVotes+r.HoldVotes != 4 {
			t.Fatalf("votes sum to %d, want 4", r.CallVotes+r.PutVotes+r.HoldVotes)
		}
	}

	last := scan.Enriched[len(scan.Enriched)-1]
	if got := anchor.prices["SPY"]; got != last.Close {
		t.Errorf("anchored close = %v, want %v", got, last.Close)
	}
}

func TestScanAllMergesAndPersists(t *testing.T) {
	provider := newFakeProvider()
	store := &fakeStore{}
	s := newTestScanner(provider, store, WithBenchmark("SPY"))

	symbols := []string{"SPY", "QQQ", "IWM"}
	report, err := s.ScanAll(context.Background(), symbols)
	if err != nil {
		t.Fatalf("scan all: %v", err)
	}

	if len(report.Enriched) != 3 {
		t.Fatalf("enriched symbols = %d, want 3", len(report.Enriched))
	}
	if want := 3 * 10; len(report.Results) != want {
		t.Fatalf("results = %d, want %d", len(report.Results), want)
	}
	for i := 1; i < len(report.Results); i++ {
		a, b := report.Results[i-1], report.Results[i]
		if a.Symbol > b.Symbol || (a.Symbol == b.Symbol && a.Date.After(b.Date)) {
			t.Fatalf("results not ordered by symbol then date at %d", i)
		}
	}

	if len(store.stored) != len(report.Results) {
		t.Errorf("stored %d results, want %d", len(store.stored), len(report.Results))
	}
	if report.Rotation == nil || report.Conditions == nil || report.Agreement == nil {
		t.Fatalf("summaries missing from report")
	}
	if report.Conditions.Symbol != "SPY" {
		t.Errorf("conditions symbol = %q, want benchmark SPY", report.Conditions.Symbol)
	}
	if report.Agreement.Results != len(report.Results) {
		t.Errorf("agreement counted %d results, want %d", report.Agreement.Results, len(report.Results))
	}
	if report.Errors != nil {
		t.Errorf("unexpected errors: %v", report.Errors)
	}
}

func TestScanAllPartialFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.fail["QQQ"] = true
	store := &fakeStore{}
	s := newTestScanner(provider, store)

	report, err := s.ScanAll(context.Background(), []string{"SPY", "QQQ"})
	if err != nil {
		t.Fatalf("scan all: %v", err)
	}
	if len(report.Enriched) != 1 {
		t.Errorf("enriched symbols = %d, want 1", len(report.Enriched))
	}
	if _, ok := report.Errors["QQQ"]; !ok {
		t.Errorf("QQQ failure not reported: %v", report.Errors)
	}
	if len(report.Results) != 10 {
		t.Errorf("results = %d, want 10 from the surviving symbol", len(report.Results))
	}
}

func TestScanSymbolRejectsBadBars(t *testing.T) {
	provider := newFakeProvider()
	s := newTestScanner(provider, &fakeStore{})

	// Malformed bars must be rejected at the series boundary.
	s.provider = badProvider{}
	_, err := s.ScanSymbol(context.Background(), "SPY")
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error %v is not a ValidationError", err)
	}
	if verr.Index != 1 {
		t.Errorf("validation index = %d, want 1", verr.Index)
	}
}

type badProvider struct{}

func (badProvider) DailyBars(ctx context.Context, symbol string, lookback int) ([]models.Bar, error) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return []models.Bar{
		{Date: d, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1},
		{Date: d.AddDate(0, 0, 1), Open: 100, High: 99, Low: 99, Close: 100, Volume: 1}, // high below close
	}, nil
}

