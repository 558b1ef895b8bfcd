package logger

import (
	"context"
	"sync"
	"time"
)

// Publisher ships a digest batch. Satisfied by the kafka producer.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

type DigestConfig struct {
	FlushEvery time.Duration // periodic flush interval
	MaxEntries int           // distinct lines that force an early flush
	Topic      string
	Publisher  Publisher
}

// DigestLine is one collapsed error line. The same message from the same
// call site counts up instead of repeating; Fields holds the latest sample.
type DigestLine struct {
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Count     int                    `json:"count"`
	FirstSeen time.Time              `json:"first_seen"`
	LastSeen  time.Time              `json:"last_seen"`
}

// errorDigest batches error lines so a flapping provider or a poison symbol
// produces one counted line per interval instead of a log flood.
type errorDigest struct {
	cfg   *DigestConfig
	mu    sync.Mutex
	lines map[string]*DigestLine

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func newErrorDigest(cfg *DigestConfig) *errorDigest {
	if cfg.FlushEvery <= 0 {
		cfg.FlushEvery = 30 * time.Second
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100
	}

	d := &errorDigest{
		cfg:   cfg,
		lines: make(map[string]*DigestLine),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *errorDigest) record(msg, caller string, fields []Field) {
	now := time.Now()
	key := caller + "|" + msg

	d.mu.Lock()
	line, ok := d.lines[key]
	if ok {
		line.Count++
		line.LastSeen = now
		line.Fields = fieldMap(fields)
		d.mu.Unlock()
		return
	}

	d.lines[key] = &DigestLine{
		Message:   msg,
		Caller:    caller,
		Fields:    fieldMap(fields),
		Count:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	full := len(d.lines) >= d.cfg.MaxEntries
	var batch []DigestLine
	if full {
		batch = d.drainLocked()
	}
	d.mu.Unlock()

	if full {
		d.publish(batch)
	}
}

func (d *errorDigest) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.cfg.FlushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.flush()
		case <-d.stop:
			d.flush()
			return
		}
	}
}

func (d *errorDigest) flush() {
	d.mu.Lock()
	batch := d.drainLocked()
	d.mu.Unlock()
	d.publish(batch)
}

// drainLocked hands back the pending lines and resets the map. Caller holds
// the lock.
func (d *errorDigest) drainLocked() []DigestLine {
	if len(d.lines) == 0 {
		return nil
	}
	batch := make([]DigestLine, 0, len(d.lines))
	for _, line := range d.lines {
		batch = append(batch, *line)
	}
	d.lines = make(map[string]*DigestLine)
	return batch
}

func (d *errorDigest) publish(batch []DigestLine) {
	if len(batch) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Digest loss is acceptable; the lines already went to the main log.
	_ = d.cfg.Publisher.Publish(ctx, d.cfg.Topic, nil, batch)
}

func (d *errorDigest) close() {
	d.stopOnce.Do(func() { close(d.stop) })
	<-d.done
}

func fieldMap(fields []Field) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}
