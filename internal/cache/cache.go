package cache

import (
	"context"
	"time"
)

// BytesCache is the minimal cache surface the service layer needs.
// Best-effort: callers must stay correct when the cache is unavailable.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}
