// Package redistore provides Redis-backed implementations of the
// authcore.RefreshStore and authcore.Throttle contracts for multi-process
// deployments.
package redistore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/helixmarkets/authcore"
)

// ErrRedisUnavailable wraps any transport-level Redis failure so callers can
// distinguish an outage from a missing key.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RefreshStore keeps the single live refresh-token digest per account in
// Redis. The key TTL is the refresh-token lifetime, so expired slots vanish
// without a sweeper.
type RefreshStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRefreshStore creates a [RefreshStore] backed by the given Redis client.
// prefix sets the key namespace; "rt" is used when empty.
func NewRefreshStore(client redis.UniversalClient, prefix string) *RefreshStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RefreshStore{redis: client, prefix: prefix}
}

func (s *RefreshStore) key(accountID uuid.UUID) string {
	return s.prefix + ":" + accountID.String()
}

// Put overwrites the account's refresh slot. Last writer wins.
func (s *RefreshStore) Put(ctx context.Context, accountID uuid.UUID, digest string, ttl time.Duration) error {
	if err := s.redis.Set(ctx, s.key(accountID), digest, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Get returns the stored digest or authcore.ErrNotFound when the slot is
// absent or expired.
func (s *RefreshStore) Get(ctx context.Context, accountID uuid.UUID) (string, error) {
	digest, err := s.redis.Get(ctx, s.key(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", authcore.ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return digest, nil
}

// Delete removes the slot. Deleting an absent slot is not an error.
func (s *RefreshStore) Delete(ctx context.Context, accountID uuid.UUID) error {
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
