package usecase

import (
	"context"
	"fmt"
	"sync"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
)

// ResultsUseCase provides business logic for reading stored consensus
// results and the latest in-memory scan report.
type ResultsUseCase struct {
	store domrepo.SignalStore

	mu     sync.RWMutex
	latest *ScanReport
}

func NewResultsUseCase(store domrepo.SignalStore) *ResultsUseCase {
	return &ResultsUseCase{store: store}
}

// SetLatest publishes the most recent scan report for the read API.
func (uc *ResultsUseCase) SetLatest(r *ScanReport) {
	uc.mu.Lock()
	uc.latest = r
	uc.mu.Unlock()
}

// Latest returns the most recent scan report, or nil before the first scan.
func (uc *ResultsUseCase) Latest() *ScanReport {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.latest
}

type GetSignalsParams struct {
	Symbol string
	Tier   models.Tier
	Limit  int
}

// GetSignals returns stored results for a symbol at or above the tier,
// ascending by date.
func (uc *ResultsUseCase) GetSignals(ctx context.Context, p GetSignalsParams) ([]*models.ConsensusResult, error) {
	if p.Symbol == "" {
		return nil, fmt.Errorf("symbol required")
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}
	if p.Tier == "" {
		p.Tier = models.TierNone
	}

	results, err := uc.store.Query(ctx, p.Symbol, p.Tier, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("get signals: %w", err)
	}
	return results, nil
}

// GetEnriched returns the trailing n enriched bars for a symbol from the
// latest scan.
func (uc *ResultsUseCase) GetEnriched(symbol string, n int) ([]models.EnrichedBar, error) {
	r := uc.Latest()
	if r == nil {
		return nil, fmt.Errorf("no scan has completed yet")
	}
	bars, ok := r.Enriched[symbol]
	if !ok {
		return nil, fmt.Errorf("symbol %s not scanned", symbol)
	}
	if n > 0 && len(bars) > n {
		bars = bars[len(bars)-n:]
	}
	return bars, nil
}
