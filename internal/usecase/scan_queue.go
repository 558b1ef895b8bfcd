package usecase

import (
	"context"
	"fmt"

	mid "TradePulse/internal/middleware"
	"TradePulse/pkg/logger"
	"TradePulse/pkg/queue"
)

const scanMessageType = "scan"

// ScanPayload is the queued scan request. An empty symbol requests a
// full-universe scan.
type ScanPayload struct {
	Symbol string `json:"symbol"`
}

// ScanEnqueuer pushes scan requests onto the redis queue.
type ScanEnqueuer struct {
	q queue.QueueService
}

var _ mid.Enqueuer = (*ScanEnqueuer)(nil)

func NewScanEnqueuer(q queue.QueueService) *ScanEnqueuer {
	return &ScanEnqueuer{q: q}
}

func (e *ScanEnqueuer) EnqueueScan(ctx context.Context, symbol string) error {
	return e.q.PublishMessage(ctx, scanMessageType, ScanPayload{Symbol: symbol})
}

// DirectEnqueuer runs scans in-process when no queue backend is configured.
type DirectEnqueuer struct {
	job *ScanJob
}

var _ mid.Enqueuer = (*DirectEnqueuer)(nil)

func NewDirectEnqueuer(job *ScanJob) *DirectEnqueuer {
	return &DirectEnqueuer{job: job}
}

func (d *DirectEnqueuer) EnqueueScan(ctx context.Context, symbol string) error {
	go func() {
		if err := d.job.Handle(context.Background(), ScanPayload{Symbol: symbol}); err != nil && d.job.l != nil {
			d.job.l.Error("direct scan failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}()
	return nil
}

// ReportSink receives each completed scan report.
type ReportSink interface {
	WriteAll(report *ScanReport) error
}

// ScanJob drains scan requests from the queue and runs the scanner.
type ScanJob struct {
	scanner  *Scanner
	results  *ResultsUseCase
	sink     ReportSink
	universe []string
	l        *logger.Logger
}

var _ queue.Job = (*ScanJob)(nil)

func NewScanJob(scanner *Scanner, results *ResultsUseCase, sink ReportSink, universe []string, l *logger.Logger) *ScanJob {
	return &ScanJob{scanner: scanner, results: results, sink: sink, universe: universe, l: l}
}

func (j *ScanJob) Name() string { return "symbol-scan" }
func (j *ScanJob) Type() string { return scanMessageType }

func (j *ScanJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ScanPayload](payload)
	if err != nil {
		return fmt.Errorf("scan payload: %w", err)
	}

	if p.Symbol == "" {
		return j.runFull(ctx)
	}

	scan, err := j.scanner.ScanSymbol(ctx, p.Symbol)
	if err != nil {
		return err
	}

	// Fold the single-symbol rescan into the published report so the read
	// API reflects it without waiting for the next full sweep.
	if report := j.results.Latest(); report != nil {
		report.Enriched[scan.Symbol] = scan.Enriched
		j.results.SetLatest(report)
	}

	if j.l != nil {
		j.l.Debug("symbol rescan complete",
			logger.String("symbol", p.Symbol),
			logger.Int("results", len(scan.Results)))
	}
	return nil
}

func (j *ScanJob) runFull(ctx context.Context) error {
	report, err := j.scanner.ScanAll(ctx, j.universe)
	if err != nil {
		return err
	}

	j.results.SetLatest(report)

	if j.sink != nil {
		if err := j.sink.WriteAll(report); err != nil {
			if j.l != nil {
				j.l.Warn("report write failed", logger.Error(err))
			}
		}
	}
	return nil
}
