package repository

import (
	"context"
	"time"

	"TradePulse/internal/domain/models"
)

type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, symbols []string) error
	Read(ctx context.Context) (<-chan *models.Quote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

type Publisher interface {
	Publish(ctx context.Context, r *models.ConsensusResult) error
	PublishBatch(ctx context.Context, results []*models.ConsensusResult) error
	Close() error
}

type SignalStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, r *models.ConsensusResult) error
	StoreBatch(ctx context.Context, results []*models.ConsensusResult) error
	Query(ctx context.Context, symbol string, minTier models.Tier, limit int) ([]*models.ConsensusResult, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type BarStore interface {
	Init(ctx context.Context) error
	StoreBatch(ctx context.Context, symbol string, bars []models.Bar) error
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
	GetLatestNBars(ctx context.Context, symbol string, n int) ([]models.Bar, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordAgentSignal(agent, signal string)
	RecordConsensus(tier string, approved bool)
	RecordMessageSent(backend, symbol string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
