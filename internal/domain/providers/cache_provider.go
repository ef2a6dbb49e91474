package providers

import (
	"context"
	"time"
)

// CacheProvider abstracts a key-value cache with TTL semantics
type CacheProvider interface {
	// Get retrieves a value by key, returning found=false on miss
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores a value with a TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error
}
