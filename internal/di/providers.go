package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"TradePulse/internal/domain/repository"
	domsvc "TradePulse/internal/domain/service"
	"TradePulse/internal/handler/api"
	mid "TradePulse/internal/middleware"
	internalrepo "TradePulse/internal/repository"
	icache "TradePulse/internal/service/cache"
	"TradePulse/internal/service/marketdata"
	"TradePulse/internal/service/ratelimit"
	"TradePulse/internal/services/agents"
	"TradePulse/internal/services/indicators"
	"TradePulse/internal/services/reports"
	"TradePulse/internal/usecase"
	pkgcache "TradePulse/pkg/cache"
	pkgch "TradePulse/pkg/clickhouse"
	"TradePulse/pkg/config"
	pkgkafka "TradePulse/pkg/kafka"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/metrics"
	"TradePulse/pkg/queue"
	"TradePulse/pkg/server"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the shared application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	level := "info"
	if cfg.Environment == "development" {
		level = "debug"
	}
	return logger.New(&logger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".daily_bars (" +
			"symbol String, d Date, open Float64, high Float64, low Float64, close Float64, volume Int64" +
			") ENGINE=ReplacingMergeTree ORDER BY (symbol, d)",
		"CREATE TABLE IF NOT EXISTS " + db + ".consensus_signals (" +
			"d Date, symbol String, signal String, tier String, " +
			"call_votes UInt8, put_votes UInt8, hold_votes UInt8, confidence Float64, " +
			"entry Float64, stop Float64, target1 Float64, target2 Float64, target3 Float64, " +
			"approved UInt8" +
			") ENGINE=MergeTree ORDER BY (symbol, d)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer. When an ops log topic is
// configured the logger's error digest is attached to it.
func ProvideKafkaProducer(cfg *config.Config, lgr *logger.Logger) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	if cfg.Kafka.LogTopic != "" {
		lgr.AttachErrorDigest(&logger.DigestConfig{
			FlushEvery: 30 * time.Second,
			MaxEntries: 100,
			Topic:      cfg.Kafka.LogTopic,
			Publisher:  producer,
		})
	}

	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML.
func ProvideKafkaConsumer(cfg *config.Config, lgr *logger.Logger) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(lgr,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBarStore creates the ClickHouse daily-bar repository.
func ProvideBarStore(chClient *pkgch.Client, cfg *config.Config, lgr *logger.Logger) repository.BarStore {
	return internalrepo.NewClickHouseBarStore(chClient.DB(), cfg.ClickHouse.Database+".daily_bars", lgr)
}

// ProvideSignalStore creates the ClickHouse consensus-result repository.
func ProvideSignalStore(chClient *pkgch.Client, cfg *config.Config) repository.SignalStore {
	return internalrepo.NewClickHouseSignalStore(chClient.DB(), cfg.ClickHouse.Database+".consensus_signals")
}

// ProvideSignalPublisher creates the Kafka consensus-result publisher.
func ProvideSignalPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic)
}

// ProvideBarProvider selects where the scanner reads daily bars from: the
// provider REST API, or the ClickHouse bar store for offline replay of
// Kafka-ingested history. The API path gets a bar cache in front of it; with
// redis enabled the cache is layered (memory + redis) so restarts keep warm
// history.
func ProvideBarProvider(cfg *config.Config, bars repository.BarStore) domsvc.BarProvider {
	if cfg.Scanner.Source == "store" {
		return internalrepo.NewStoreBarProvider(bars)
	}
	var barCache pkgcache.Service = pkgcache.NewMemoryCache()
	if cfg.Redis.Enabled {
		if host, port, err := splitHostPort(cfg.Redis.Addr); err == nil {
			if rc, err := pkgcache.NewRedisCache(
				pkgcache.WithRedisHost(host),
				pkgcache.WithRedisPort(port),
				pkgcache.WithRedisPassword(cfg.Redis.Password),
				pkgcache.WithRedisDB(cfg.Redis.DB),
			); err == nil {
				barCache = pkgcache.NewLayeredCache(rc)
			}
		}
	}
	return marketdata.NewClient(cfg.MarketData.BaseURL, cfg.MarketData.Token, cfg.MarketData.Timeout, ratelimit.New(),
		marketdata.WithBarCache(barCache, 10*time.Minute),
	)
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// ProvideMarketStream creates the live quote WebSocket stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return marketdata.NewStream(
		cfg.MarketData.Token,
		cfg.MarketData.WebSocketURL,
		cfg.MarketData.ReconnectDelay,
		cfg.MarketData.PingInterval,
	)
}

// ProvideEnricher creates the indicator pipeline.
func ProvideEnricher() domsvc.Enricher {
	return indicators.NewPipeline()
}

// ProvideConsensusEngine creates the consensus engine over the agent roster.
func ProvideConsensusEngine() *usecase.ConsensusEngine {
	return usecase.NewConsensusEngine(agents.All())
}

// ProvideSignalProcessor creates the backend-routing processor.
func ProvideSignalProcessor(
	pub repository.Publisher,
	store repository.SignalStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.SignalProcessor {
	return usecase.NewSignalProcessor(pub, store, m, cfg.Backend.Type)
}

// ProvideResultsUseCase creates the read-side use case.
func ProvideResultsUseCase(store repository.SignalStore) *usecase.ResultsUseCase {
	return usecase.NewResultsUseCase(store)
}

// ProvideReportsWriter creates the CSV/JSON report emitter.
func ProvideReportsWriter(cfg *config.Config, lgr *logger.Logger) *reports.Writer {
	return reports.NewWriter(cfg.Reports.Dir, cfg.Reports.PortfolioSize, lgr)
}

// ScanSystem bundles the queue-driven scan loop: the redis queue (nil when
// redis is disabled), the enqueuer serving the API and the quote pipeline,
// the pipeline itself, and the scanner.
type ScanSystem struct {
	Queue    *queue.RedisQueue
	Scans    mid.Enqueuer
	Pipeline *mid.QuotePipeline
	Scanner  *usecase.Scanner
}

// lateEnqueuer breaks the construction cycle between the quote pipeline
// (which needs an enqueuer) and the scan job (which needs the scanner that
// anchors the pipeline).
type lateEnqueuer struct {
	target mid.Enqueuer
}

func (l *lateEnqueuer) EnqueueScan(ctx context.Context, symbol string) error {
	if l.target == nil {
		return fmt.Errorf("scan queue not ready")
	}
	return l.target.EnqueueScan(ctx, symbol)
}

// ProvideScanSystem assembles the scanner, the quote pipeline, and the scan
// queue around the shared enqueuer.
func ProvideScanSystem(
	cfg *config.Config,
	lgr *logger.Logger,
	provider domsvc.BarProvider,
	enricher domsvc.Enricher,
	engine *usecase.ConsensusEngine,
	proc *usecase.SignalProcessor,
	m repository.Metrics,
	results *usecase.ResultsUseCase,
	writer *reports.Writer,
) *ScanSystem {
	le := &lateEnqueuer{}
	pipe := mid.NewQuotePipeline(le, m,
		mid.WithMaxRPS(20),
		mid.WithBufferSize(256),
	)

	scanner := usecase.NewScanner(provider, enricher, engine, proc, m, lgr,
		usecase.WithTrailing(cfg.Scanner.Trailing),
		usecase.WithLookback(cfg.Scanner.Lookback),
		usecase.WithWorkers(cfg.Scanner.Workers),
		usecase.WithBenchmark(cfg.Scanner.Benchmark),
		usecase.WithAnchorer(pipe),
	)

	job := usecase.NewScanJob(scanner, results, writer, cfg.Scanner.Symbols, lgr)

	sys := &ScanSystem{Scans: le, Pipeline: pipe, Scanner: scanner}
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		q := queue.NewRedisQueue(lgr, &queue.QueueConfig{
			Workers:    cfg.Queue.Workers,
			RetryLimit: cfg.Queue.RetryLimit,
			RetryDelay: cfg.Queue.RetryDelay,
		}, client)
		q.RegisterJob(job)
		sys.Queue = q
		le.target = usecase.NewScanEnqueuer(q)
	} else {
		le.target = usecase.NewDirectEnqueuer(job)
	}
	return sys
}

// ProvideQuoteCollector creates the live quote collector.
func ProvideQuoteCollector(
	stream repository.MarketStream,
	cfg *config.Config,
	m repository.Metrics,
	sys *ScanSystem,
) *usecase.QuoteCollector {
	return usecase.NewQuoteCollector(stream, cfg.Scanner.Symbols, m, sys.Pipeline)
}

// ProvideKafkaBarsHandler registers the handler for the daily-bars topic.
func ProvideKafkaBarsHandler(bars repository.BarStore, m repository.Metrics, cfg *config.Config) *usecase.KafkaBarsHandler {
	topic := cfg.Kafka.BarsTopic
	if topic == "" {
		topic = "daily_bars"
	}
	return usecase.NewKafkaBarsHandler(topic, bars, m)
}

// ProvideSignalsHandler creates the read API handler.
func ProvideSignalsHandler(
	lgr *logger.Logger,
	results *usecase.ResultsUseCase,
	sys *ScanSystem,
	cfg *config.Config,
) *api.SignalsHandler {
	h := api.NewSignalsHandler(lgr, results, sys.Scans)
	if cfg.Redis.Enabled {
		h.SetCache(icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}))
	} else {
		h.SetCache(icache.NewTTLCache())
	}
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *logger.Logger,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaBarsHandler,
	chClient *pkgch.Client,
	sys *ScanSystem,
	handler *api.SignalsHandler,
	proc *usecase.SignalProcessor,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	app := server.New(cfg, lgr, collector, consumer, kh, chClient, sys.Queue, sys.Scans)
	app.SetHTTPHandler(handler)
	app.SignalProc = proc
	return app
}
