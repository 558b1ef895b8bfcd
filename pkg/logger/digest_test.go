package logger

import (
	"context"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches [][]DigestLine
}

func (p *capturePublisher) Publish(_ context.Context, _ string, _ []byte, value interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = append(p.batches, value.([]DigestLine))
	return nil
}

func (p *capturePublisher) all() []DigestLine {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []DigestLine
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestDigestCollapsesRepeatedLines(t *testing.T) {
	pub := &capturePublisher{}
	d := newErrorDigest(&DigestConfig{
		FlushEvery: time.Hour,
		MaxEntries: 100,
		Topic:      "ops.logs",
		Publisher:  pub,
	})

	for i := 0; i < 5; i++ {
		d.record("provider fetch failed", "marketdata/client.go:80", []Field{String("symbol", "SPY")})
	}
	d.record("csv write failed", "reports/writer.go:40", nil)
	d.close()

	lines := pub.all()
	if len(lines) != 2 {
		t.Fatalf("flushed %d lines, want 2", len(lines))
	}
	byMsg := map[string]DigestLine{}
	for _, l := range lines {
		byMsg[l.Message] = l
	}
	if got := byMsg["provider fetch failed"].Count; got != 5 {
		t.Errorf("repeated line count = %d, want 5", got)
	}
	if got := byMsg["csv write failed"].Count; got != 1 {
		t.Errorf("single line count = %d, want 1", got)
	}
	if v := byMsg["provider fetch failed"].Fields["symbol"]; v != "SPY" {
		t.Errorf("fields sample = %v, want SPY", v)
	}
}

func TestDigestSameMessageDifferentCallSites(t *testing.T) {
	pub := &capturePublisher{}
	d := newErrorDigest(&DigestConfig{FlushEvery: time.Hour, Topic: "ops.logs", Publisher: pub})

	d.record("store insert failed", "clickhouse/bars.go:55", nil)
	d.record("store insert failed", "clickhouse/signals.go:70", nil)
	d.close()

	if lines := pub.all(); len(lines) != 2 {
		t.Fatalf("flushed %d lines, want 2 distinct call sites", len(lines))
	}
}

func TestDigestFlushesAtMaxEntries(t *testing.T) {
	pub := &capturePublisher{}
	d := newErrorDigest(&DigestConfig{
		FlushEvery: time.Hour,
		MaxEntries: 2,
		Topic:      "ops.logs",
		Publisher:  pub,
	})
	defer d.close()

	d.record("a", "x.go:1", nil)
	d.record("b", "x.go:2", nil)

	if lines := pub.all(); len(lines) != 2 {
		t.Fatalf("early flush emitted %d lines, want 2", len(lines))
	}
}

func TestDigestEmptyFlushPublishesNothing(t *testing.T) {
	pub := &capturePublisher{}
	d := newErrorDigest(&DigestConfig{FlushEvery: time.Hour, Topic: "ops.logs", Publisher: pub})
	d.close()

	if len(pub.batches) != 0 {
		t.Fatalf("empty digest published %d batches", len(pub.batches))
	}
}
