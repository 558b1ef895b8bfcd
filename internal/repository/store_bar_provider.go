package repository

import (
	"context"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
)

// StoreBarProvider serves the scanner from the bar store instead of the REST
// API, for replaying ingested history offline.
type StoreBarProvider struct {
	bars domrepo.BarStore
}

var _ domsvc.BarProvider = (*StoreBarProvider)(nil)

func NewStoreBarProvider(bars domrepo.BarStore) *StoreBarProvider {
	return &StoreBarProvider{bars: bars}
}

func (p *StoreBarProvider) DailyBars(ctx context.Context, symbol string, lookback int) ([]models.Bar, error) {
	return p.bars.GetLatestNBars(ctx, symbol, lookback)
}
