package service

import (
	"context"

	"TradePulse/internal/domain/models"
)

// Agent scores one enriched bar into a directional signal. Implementations
// are pure functions of the bar; no state between calls.
type Agent interface {
	Name() string
	Evaluate(bar models.EnrichedBar) models.AgentSignal
}

// Enricher turns a validated bar series into enriched bars.
type Enricher interface {
	Enrich(series *models.BarSeries) []models.EnrichedBar
}

// BarProvider fetches daily bars from the market-data collaborator.
type BarProvider interface {
	DailyBars(ctx context.Context, symbol string, lookback int) ([]models.Bar, error)
}
