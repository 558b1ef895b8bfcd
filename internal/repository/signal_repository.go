package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/repository"
	pkgkafka "TradePulse/pkg/kafka"
)

// ClickHouseSignalStore implements SignalStore for ClickHouse.
type ClickHouseSignalStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseSignalStore creates ClickHouse signal storage.
func NewClickHouseSignalStore(db *sql.DB, table string) repository.SignalStore {
	return &ClickHouseSignalStore{db: db, table: table}
}

func (s *ClickHouseSignalStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseSignalStore) Store(ctx context.Context, r *models.ConsensusResult) error {
	return s.StoreBatch(ctx, []*models.ConsensusResult{r})
}

func (s *ClickHouseSignalStore) StoreBatch(ctx context.Context, results []*models.ConsensusResult) error {
	if len(results) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	// Chunk size tuned to 2000 rows per batch.
	const chunkSize = 2000
	for start := 0; start < len(results); start += chunkSize {
		end := start + chunkSize
		if end > len(results) { end = len(results) }

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*14)
		for _, r := range results[start:end] {
			if r == nil || r.Symbol == "" { continue }
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				r.Date,
				r.Symbol,
				string(r.Signal),
				string(r.Tier),
				r.CallVotes,
				r.PutVotes,
				r.HoldVotes,
				r.Confidence,
				r.Entry,
				r.Stop,
				r.Target1,
				r.Target2,
				r.Target3,
				boolUInt8(r.Approved),
			)
		}
		if len(values) == 0 { continue }
		q := fmt.Sprintf("INSERT INTO %s (d, symbol, signal, tier, call_votes, put_votes, hold_votes, confidence, entry, stop, target1, target2, target3, approved) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseSignalStore) Query(ctx context.Context, symbol string, minTier models.Tier, limit int) ([]*models.ConsensusResult, error) {
	tiers := tiersAtOrAbove(minTier)
	q := fmt.Sprintf("SELECT d, symbol, signal, tier, call_votes, put_votes, hold_votes, confidence, entry, stop, target1, target2, target3, approved FROM %s WHERE symbol = ? AND tier IN ('%s') ORDER BY d DESC LIMIT ?",
		s.table, strings.Join(tiers, "','"))
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.ConsensusResult
	for rows.Next() {
		var r models.ConsensusResult
		var d time.Time
		var sig, tier string
		var approved uint8
		if err := rows.Scan(&d, &r.Symbol, &sig, &tier,
			&r.CallVotes, &r.PutVotes, &r.HoldVotes,
			&r.Confidence, &r.Entry, &r.Stop,
			&r.Target1, &r.Target2, &r.Target3, &approved); err != nil {
			return nil, err
		}
		r.Date = d
		r.Signal = models.Signal(sig)
		r.Tier = models.Tier(tier)
		r.Approved = approved == 1
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Stored DESC for the LIMIT; callers expect ascending dates.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *ClickHouseSignalStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseSignalStore) Close() error {
	return nil // Managed by pkg
}

func tiersAtOrAbove(min models.Tier) []string {
	order := []models.Tier{models.TierUltra, models.TierSuper, models.TierPartial, models.TierNone}
	out := make([]string, 0, len(order))
	for _, t := range order {
		out = append(out, string(t))
		if t == min {
			break
		}
	}
	return out
}

func boolUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// KafkaSignalPublisher implements Publisher for Kafka.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalPublisher creates a Kafka consensus publisher.
func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, r *models.ConsensusResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(r.Symbol), signalPayload(r))
}

func (p *KafkaSignalPublisher) PublishBatch(ctx context.Context, results []*models.ConsensusResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(results))
	for i, r := range results {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(r.Symbol),
			Value: signalPayload(r),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaSignalPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func signalPayload(r *models.ConsensusResult) map[string]interface{} {
	return map[string]interface{}{
		"symbol":     r.Symbol,
		"d":          r.Date.Format("2006-01-02"),
		"signal":     string(r.Signal),
		"tier":       string(r.Tier),
		"call_votes": r.CallVotes,
		"put_votes":  r.PutVotes,
		"hold_votes": r.HoldVotes,
		"confidence": r.Confidence,
		"entry":      r.Entry,
		"stop":       r.Stop,
		"target1":    r.Target1,
		"target2":    r.Target2,
		"target3":    r.Target3,
		"approved":   r.Approved,
	}
}
