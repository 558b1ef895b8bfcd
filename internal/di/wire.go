//go:build wireinject
// +build wireinject

package di

import (
	"TradePulse/pkg/config"
	"TradePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideBarStore,
		ProvideSignalStore,
		ProvideSignalPublisher,
		ProvideBarProvider,
		ProvideMarketStream,

		// Core pipeline
		ProvideEnricher,
		ProvideConsensusEngine,
		ProvideSignalProcessor,
		ProvideResultsUseCase,
		ProvideReportsWriter,
		ProvideScanSystem,

		// Use cases
		ProvideQuoteCollector,
		ProvideKafkaBarsHandler,

		// HTTP
		ProvideSignalsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
