package cache

import "time"

// BytesCache holds pre-serialized API responses. The signals handler caches
// whole JSON bodies, so the interface deals in bytes rather than values.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
