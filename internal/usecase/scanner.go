package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	drepo "TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/pkg/logger"
)

// Anchorer receives the close price each symbol was last scanned at.
type Anchorer interface {
	Anchor(symbol string, close float64)
}

// SymbolScan is one symbol's pass through the full pipeline.
type SymbolScan struct {
	Symbol   string
	Enriched []models.EnrichedBar
	Results  []*models.ConsensusResult
}

// ScanReport is the merged output of one multi-symbol run.
type ScanReport struct {
	GeneratedAt time.Time
	Enriched    map[string][]models.EnrichedBar
	Results     []*models.ConsensusResult
	Rotation    *models.SectorRotation
	Conditions  *models.MarketConditions
	Agreement   *models.AgreementAnalysis
	Errors      map[string]string
}

// Scanner runs the indicator pipeline, agent set, and consensus engine over
// every symbol and merges the per-symbol outputs. Symbols are independent;
// the fan-out shares nothing but the result channel. Within one symbol, bars
// are processed strictly in ascending-date order.
type Scanner struct {
	provider  domsvc.BarProvider
	enricher  domsvc.Enricher
	engine    *ConsensusEngine
	proc      *SignalProcessor
	metrics   drepo.Metrics
	l         *logger.Logger
	anchor    Anchorer
	benchmark string // symbol driving the market-conditions summary
	trailing  int    // consensus window, bars per symbol
	lookback  int    // bars fetched per symbol
	workers   int
}

type ScannerOption func(*Scanner)

// WithTrailing sets how many trailing bars get a consensus evaluation.
func WithTrailing(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.trailing = n
		}
	}
}

// WithLookback sets how many daily bars are fetched per symbol.
func WithLookback(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.lookback = n
		}
	}
}

// WithWorkers caps the concurrent per-symbol pipelines.
func WithWorkers(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithBenchmark sets the symbol used for the market-conditions summary.
func WithBenchmark(symbol string) ScannerOption {
	return func(s *Scanner) {
		if symbol != "" {
			s.benchmark = symbol
		}
	}
}

// WithAnchorer forwards each symbol's scanned close to the quote pipeline.
func WithAnchorer(a Anchorer) ScannerOption {
	return func(s *Scanner) { s.anchor = a }
}

func NewScanner(
	provider domsvc.BarProvider,
	enricher domsvc.Enricher,
	engine *ConsensusEngine,
	proc *SignalProcessor,
	metrics drepo.Metrics,
	l *logger.Logger,
	opts ...ScannerOption,
) *Scanner {
	s := &Scanner{
		provider:  provider,
		enricher:  enricher,
		engine:    engine,
		proc:      proc,
		metrics:   metrics,
		l:         l,
		benchmark: "SPY",
		trailing:  100,
		lookback:  252,
		workers:   4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanSymbol fetches, validates, enriches, and evaluates one symbol.
func (s *Scanner) ScanSymbol(ctx context.Context, symbol string) (*SymbolScan, error) {
	start := time.Now()

	bars, err := s.provider.DailyBars(ctx, symbol, s.lookback)
	if err != nil {
		s.metrics.RecordError("fetch")
		return nil, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}

	series, err := models.NewBarSeries(symbol, bars)
	if err != nil {
		s.metrics.RecordError("validate")
		return nil, err
	}

	enriched := s.enricher.Enrich(series)
	results := s.engine.EvaluateSeries(enriched, s.trailing)

	s.metrics.RecordLatency("scan_symbol", time.Since(start).Seconds())
	if s.anchor != nil && len(enriched) > 0 {
		s.anchor.Anchor(symbol, enriched[len(enriched)-1].Close)
	}
	return &SymbolScan{Symbol: symbol, Enriched: enriched, Results: results}, nil
}

// ScanAll fans one pipeline instance out per symbol and merges at the end.
// The cross-symbol summaries (sector rotation, market conditions) need every
// symbol's latest bars at once, so the merge is sequential.
func (s *Scanner) ScanAll(ctx context.Context, symbols []string) (*ScanReport, error) {
	report := &ScanReport{
		GeneratedAt: time.Now(),
		Enriched:    make(map[string][]models.EnrichedBar, len(symbols)),
		Errors:      map[string]string{},
	}

	type item struct {
		scan *SymbolScan
		sym  string
		err  error
	}
	ch := make(chan item, len(symbols))
	sem := make(chan struct{}, s.workers)
	var wg sync.WaitGroup

	for _, sym := range symbols {
		wg.Add(1)
		go func(sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			scan, err := s.ScanSymbol(ctx, sym)
			ch <- item{scan: scan, sym: sym, err: err}
		}(sym)
	}
	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			report.Errors[it.sym] = it.err.Error()
			if s.l != nil {
				s.l.Error("scan failed", logger.String("symbol", it.sym), logger.Error(it.err))
			}
			continue
		}
		report.Enriched[it.sym] = it.scan.Enriched
		report.Results = append(report.Results, it.scan.Results...)
	}

	sort.Slice(report.Results, func(i, j int) bool {
		if report.Results[i].Symbol != report.Results[j].Symbol {
			return report.Results[i].Symbol < report.Results[j].Symbol
		}
		return report.Results[i].Date.Before(report.Results[j].Date)
	})

	report.Rotation = BuildSectorRotation(report.Enriched, report.GeneratedAt)
	report.Conditions = BuildMarketConditions(s.benchmark, report.Enriched[s.benchmark], report.Rotation.Rotation, report.GeneratedAt)
	report.Agreement = BuildAgreement(report.Results, report.GeneratedAt)

	if s.proc != nil {
		if err := s.proc.ProcessBatch(ctx, report.Results); err != nil {
			return report, fmt.Errorf("persist results: %w", err)
		}
	}
	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	if s.l != nil {
		s.l.Info("scan complete",
			logger.Int("symbols", len(symbols)),
			logger.Int("results", len(report.Results)),
			logger.String("rotation", report.Rotation.Rotation),
		)
	}
	return report, nil
}
