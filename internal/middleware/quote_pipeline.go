package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradePulse/internal/domain/models"
	domrepo "TradePulse/internal/domain/repository"
)

// Enqueuer is the minimal scan-queue interface the pipeline needs.
type Enqueuer interface {
	EnqueueScan(ctx context.Context, symbol string) error
}

// QuotePipeline sits between the live quote stream and the scan queue. It
// validates and throttles incoming quotes, tracks the last scanned close per
// symbol, and requeues a rescan when price drifts past the trigger fraction.
// Failed enqueues are buffered and retried with backoff.
type QuotePipeline struct {
	queue    Enqueuer
	metrics  domrepo.Metrics
	maxRPS   int
	trigger  float64 // fractional move from the last scanned close
	bufSize  int
	bufCh    chan string
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-symbol last accepted time
	anchor   map[string]float64   // per-symbol close at last scan
}

type PipelineOption func(*QuotePipeline)

// WithMaxRPS sets the max accepted quotes per second per symbol.
func WithMaxRPS(n int) PipelineOption {
	return func(p *QuotePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithTrigger sets the fractional price move that requeues a scan.
func WithTrigger(f float64) PipelineOption {
	return func(p *QuotePipeline) {
		if f > 0 {
			p.trigger = f
		}
	}
}

// WithBufferSize sets the retry buffer size for failed enqueues.
func WithBufferSize(n int) PipelineOption {
	return func(p *QuotePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewQuotePipeline creates a new pipeline.
func NewQuotePipeline(queue Enqueuer, metrics domrepo.Metrics, opts ...PipelineOption) *QuotePipeline {
	p := &QuotePipeline{
		queue:    queue,
		metrics:  metrics,
		maxRPS:   20,    // default throttle per symbol
		trigger:  0.005, // 0.5% move from the last scanned close
		bufSize:  256,
		bufCh:    make(chan string, 256),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
		anchor:   make(map[string]float64),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan string, p.bufSize)
	}
	return p
}

// Start launches background retry of buffered enqueues.
func (p *QuotePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case sym := <-p.bufCh:
				if sym == "" {
					continue
				}
				if err := p.queue.EnqueueScan(ctx, sym); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					select {
					case p.bufCh <- sym:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background retry loop.
func (p *QuotePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Anchor records the close price a symbol was last scanned at. Subsequent
// quotes are measured against it.
func (p *QuotePipeline) Anchor(symbol string, close float64) {
	p.mu.Lock()
	p.anchor[symbol] = close
	p.mu.Unlock()
}

// Process validates and throttles a quote, and requeues a scan when the
// price has drifted past the trigger. Returns nil for quotes that are simply
// ignored.
func (p *QuotePipeline) Process(ctx context.Context, q *models.Quote) error {
	start := time.Now()
	if err := validateQuote(q); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(q.Symbol, start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}
	p.metrics.RecordLastPrice(q.Symbol, q.Price)

	p.mu.Lock()
	base, ok := p.anchor[q.Symbol]
	p.mu.Unlock()
	if !ok || base <= 0 {
		return nil
	}
	move := (q.Price - base) / base
	if move < 0 {
		move = -move
	}
	if move < p.trigger {
		return nil
	}

	// Re-anchor immediately so one drift fires one scan.
	p.Anchor(q.Symbol, q.Price)

	if err := p.queue.EnqueueScan(ctx, q.Symbol); err != nil {
		p.metrics.RecordError("pipeline_enqueue")
		select {
		case p.bufCh <- q.Symbol:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline enqueue: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateQuote(q *models.Quote) error {
	if q == nil {
		return fmt.Errorf("quote nil")
	}
	if q.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if q.Price <= 0 || q.Volume < 0 {
		return fmt.Errorf("invalid price/volume")
	}
	return nil
}

func (p *QuotePipeline) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[symbol]
	if last.IsZero() {
		p.lastSeen[symbol] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}
