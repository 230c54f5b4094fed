package redistore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Throttle enforces a fixed-window counter per key: at most Max allowed
// calls inside each Window. The counter key expires with the window, so
// idle keys leave no state behind.
type Throttle struct {
	redis  redis.UniversalClient
	prefix string
	max    int
	window time.Duration
}

// NewThrottle creates a fixed-window [Throttle]. prefix sets the key
// namespace; "thr" is used when empty.
func NewThrottle(client redis.UniversalClient, prefix string, max int, window time.Duration) (*Throttle, error) {
	if max <= 0 {
		return nil, errors.New("redistore: throttle max must be positive")
	}
	if window <= 0 {
		return nil, errors.New("redistore: throttle window must be positive")
	}
	if prefix == "" {
		prefix = "thr"
	}
	return &Throttle{redis: client, prefix: prefix, max: max, window: window}, nil
}

// Allow increments the key's window counter and reports whether the call
// is within the limit.
func (t *Throttle) Allow(ctx context.Context, key string) (bool, error) {
	k := t.prefix + ":" + key

	count, err := t.redis.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	if count == 1 {
		if err := t.redis.Expire(ctx, k, t.window).Err(); err != nil {
			return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count <= int64(t.max), nil
}
