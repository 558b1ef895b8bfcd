package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "TradePulse/internal/middleware"
	"TradePulse/internal/usecase"
	pkgch "TradePulse/pkg/clickhouse"
	"TradePulse/pkg/config"
	xhttp "TradePulse/pkg/http"
	pkgkafka "TradePulse/pkg/kafka"
	applogger "TradePulse/pkg/logger"
	"TradePulse/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	collector   *usecase.QuoteCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	scanQueue   *queue.RedisQueue
	scans       mid.Enqueuer
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
	SignalProc  *usecase.SignalProcessor
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	lgr *applogger.Logger,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	scanQueue *queue.RedisQueue,
	scans mid.Enqueuer,
) *App {
	return &App{
		cfg:       cfg,
		log:       lgr,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
		scanQueue: scanQueue,
		scans:     scans,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := a.log
	if l == nil {
		l, _ = applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
		a.log = l
	}

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the scan queue workers before anything can enqueue
	if a.scanQueue != nil {
		if err := a.scanQueue.Start(); err != nil {
			l.Error("scan queue start error", applogger.Error(err))
			return err
		}
	}

	// Kick off the first full sweep, then reschedule on the interval
	if err := a.scans.EnqueueScan(ctx, ""); err != nil {
		l.Warn("initial scan enqueue failed", applogger.Error(err))
	}
	go a.scheduleScans(ctx, l)
	l.Info("scanner scheduled",
		applogger.Strings("symbols", a.cfg.Scanner.Symbols),
		applogger.String("interval", a.scanInterval().String()))

	// Start live quote collector
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("collector error", applogger.Error(err))
			}
		}()
		l.Info("quote collector started", applogger.Strings("symbols", a.cfg.Scanner.Symbols))
	}

	// Start bar-ingest consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) scanInterval() time.Duration {
	if a.cfg.Scanner.Interval > 0 {
		return a.cfg.Scanner.Interval
	}
	return 15 * time.Minute
}

// scheduleScans enqueues a full-universe scan on every tick.
func (a *App) scheduleScans(ctx context.Context, l *applogger.Logger) {
	ticker := time.NewTicker(a.scanInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.scans.EnqueueScan(ctx, ""); err != nil {
				l.Warn("scheduled scan enqueue failed", applogger.Error(err))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l := a.log
	l.Info("shutting down...")

	// Stop collector (pipeline + stream)
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Drain the scan queue workers
	if a.scanQueue != nil {
		if err := a.scanQueue.Stop(shutdownCtx); err != nil {
			l.Warn("scan queue stop error", applogger.Error(err))
		}
	}

	// Stop consumer
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Close signal processor resources (publisher/store)
	if a.SignalProc != nil {
		a.SignalProc.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	// Flushes the tail of the error digest, if one is attached.
	l.Close()
	return nil
}
