package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCacheMiss is returned when a key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Service caches JSON-encodable values, keyed by the builders below. The
// main consumer is the market-data client, which parks fetched bar windows
// so drift-triggered rescans inside the TTL skip the provider round trip.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// GenerateKeyWithParams builds a colon-separated key, e.g.
// GenerateKeyWithParams("bars", "SPY", 252) -> "bars:SPY:252".
func GenerateKeyWithParams(prefix string, params ...interface{}) string {
	key := prefix
	for _, p := range params {
		key = fmt.Sprintf("%s:%v", key, p)
	}
	return key
}
