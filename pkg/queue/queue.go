package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// QueueService is the producer side: publish a typed payload for a worker.
type QueueService interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Job is the consumer side. A job owns one message type; Handle receives the
// payload as raw JSON and decodes it with ParsePayload.
type Job interface {
	Name() string
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}

// QueueConfig tunes the worker pool and retry policy.
type QueueConfig struct {
	Workers    int           // concurrent scan workers
	QueueSize  int           // soft cap on pending messages; 0 means unbounded
	RetryLimit int           // attempts before a message is parked
	RetryDelay time.Duration // delay before a failed message re-enters the queue
}

// Message is the wire envelope. Payloads are encoded once at enqueue time so
// workers always see raw JSON, never a decoded map.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"ts"`
}

// ParsePayload decodes a handler payload into T. Accepts the typed value
// (in-process dispatch) or raw JSON (queue dispatch).
func ParsePayload[T any](payload interface{}) (*T, error) {
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		var result T
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &result, nil
	case []byte:
		var result T
		if err := json.Unmarshal(p, &result); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &result, nil
	default:
		return nil, fmt.Errorf("invalid payload type: %T", payload)
	}
}
