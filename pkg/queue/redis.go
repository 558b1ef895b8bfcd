package queue

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"TradePulse/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisQueue schedules scan work through redis: a pending list drained by a
// worker pool, a retry ZSET holding failed messages until their due time, and
// a parked list for messages that exhausted their retries.
//
// Enqueues are coalesced: while a message with the same type and payload is
// still pending, publishing it again is a no-op. A burst of drift triggers
// for one symbol costs one scan, not one per quote.
type RedisQueue struct {
	l         *logger.Logger
	cfg       *QueueConfig
	client    *redis.Client
	jobs      map[string]Job
	keyPrefix string

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix overrides the redis key namespace.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) { r.keyPrefix = prefix }
}

func NewRedisQueue(lgr *logger.Logger, cfg *QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if cfg == nil {
		cfg = &QueueConfig{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		l:         lgr,
		cfg:       cfg,
		client:    client,
		jobs:      make(map[string]Job),
		keyPrefix: "tradepulse:scans",
		stopCh:    make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// RegisterJob binds a job to its message type. Later registrations for the
// same type are ignored.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.Type()]; ok {
		r.l.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.l.Info("job registered",
		logger.String("job", job.Name()),
		logger.String("type", job.Type()))
}

// Start pings redis and launches the worker pool plus the retry pump.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("queue already running")
	}
	r.running = true
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return fmt.Errorf("redis ping: %w", err)
	}

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	r.wg.Add(1)
	go r.retryPump()

	r.l.Info("scan queue started",
		logger.Int("workers", r.cfg.Workers),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop drains the workers, waiting up to the context deadline.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	close(r.stopCh)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		r.l.Warn("timeout waiting for scan workers", logger.Error(ctx.Err()))
		return fmt.Errorf("stop queue: %w", ctx.Err())
	case <-done:
		r.l.Info("scan queue stopped")
		return nil
	}
}

// PublishMessage encodes the payload and pushes it onto the pending list,
// unless an identical message is already waiting.
func (r *RedisQueue) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	_, known := r.jobs[msgType]
	r.mu.RUnlock()

	if !running {
		return fmt.Errorf("queue not running")
	}
	if !known {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	dedup := dedupMember(msgType, body)
	added, err := r.client.SAdd(ctx, r.pendingSetKey(), dedup).Result()
	if err != nil {
		return fmt.Errorf("sadd pending: %w", err)
	}
	if added == 0 {
		// Same request already queued; coalesce.
		return nil
	}

	msg := Message{
		ID:        strconv.FormatInt(time.Now().UnixNano(), 10),
		Type:      msgType,
		Payload:   body,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		_ = r.client.SRem(ctx, r.pendingSetKey(), dedup).Err()
		return fmt.Errorf("encode message: %w", err)
	}
	if err := r.client.LPush(ctx, r.pendingKey(), data).Err(); err != nil {
		_ = r.client.SRem(ctx, r.pendingSetKey(), dedup).Err()
		return fmt.Errorf("lpush pending: %w", err)
	}
	return nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	r.l.Info("scan worker started", logger.Int("worker_id", id))

	for {
		select {
		case <-r.stopCh:
			return
		case <-r.ctx.Done():
			return
		default:
			r.leaseNext()
		}
	}
}

// leaseNext blocks briefly on the pending list and dispatches one message.
func (r *RedisQueue) leaseNext() {
	ctx, cancel := context.WithTimeout(r.ctx, 2*time.Second)
	defer cancel()

	res, err := r.client.BRPop(ctx, time.Second, r.pendingKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return
		}
		r.l.Error("brpop pending", logger.Error(err))
		time.Sleep(time.Second)
		return
	}
	if len(res) < 2 {
		return
	}

	var msg Message
	if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
		r.l.Error("decode message", logger.Error(err))
		return
	}

	// The message is leased; identical requests may queue again from here on.
	_ = r.client.SRem(r.ctx, r.pendingSetKey(), dedupMember(msg.Type, msg.Payload)).Err()

	r.dispatch(msg)
}

func (r *RedisQueue) dispatch(msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.l.Error("no job for message",
			logger.String("type", msg.Type),
			logger.String("id", msg.ID))
		return
	}

	start := time.Now()
	err := job.Handle(r.ctx, msg.Payload)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		r.l.Warn("scan cancelled",
			logger.String("id", msg.ID),
			logger.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return
	}

	r.l.Error("scan failed",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	if msg.Attempts >= r.cfg.RetryLimit {
		r.park(msg)
		return
	}
	msg.Attempts++
	r.scheduleRetry(msg, time.Now().Add(r.cfg.RetryDelay))
}

func (r *RedisQueue) scheduleRetry(msg Message, due time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.l.Error("encode retry", logger.Error(err))
		return
	}
	err = r.client.ZAdd(context.Background(), r.retryKey(), redis.Z{
		Score:  float64(due.Unix()),
		Member: data,
	}).Err()
	if err != nil {
		r.l.Error("zadd retry", logger.Error(err))
		return
	}
	r.l.Info("scan retry scheduled",
		logger.String("id", msg.ID),
		logger.Int("attempt", msg.Attempts),
		logger.String("due", due.Format(time.RFC3339)))
}

// park moves a message that exhausted its retries to the parked list for
// operator inspection.
func (r *RedisQueue) park(msg Message) {
	r.l.Error("scan parked after max retries", logger.String("id", msg.ID))
	data, err := json.Marshal(msg)
	if err != nil {
		r.l.Error("encode parked", logger.Error(err))
		return
	}
	if err := r.client.LPush(context.Background(), r.parkedKey(), data).Err(); err != nil {
		r.l.Error("lpush parked", logger.Error(err))
	}
}

// retryPump moves due retries back onto the pending list.
func (r *RedisQueue) retryPump() {
	defer r.wg.Done()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.requeueDue()
		}
	}
}

func (r *RedisQueue) requeueDue() {
	now := strconv.FormatInt(time.Now().Unix(), 10)
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: now,
	}).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		r.l.Error("fetch due retries", logger.Error(err))
		return
	}

	for _, data := range due {
		select {
		case <-r.ctx.Done():
			return
		default:
		}
		pipe := r.client.TxPipeline()
		pipe.ZRem(r.ctx, r.retryKey(), data)
		pipe.LPush(r.ctx, r.pendingKey(), data)
		if _, err := pipe.Exec(r.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.l.Error("requeue retry", logger.Error(err))
		}
	}
}

func dedupMember(msgType string, body []byte) string {
	sum := sha256.Sum256(append([]byte(msgType+":"), body...))
	return hex.EncodeToString(sum[:])
}

func (r *RedisQueue) pendingKey() string    { return r.keyPrefix + ":pending" }
func (r *RedisQueue) pendingSetKey() string { return r.keyPrefix + ":pending:set" }
func (r *RedisQueue) retryKey() string      { return r.keyPrefix + ":retry" }
func (r *RedisQueue) parkedKey() string     { return r.keyPrefix + ":parked" }
