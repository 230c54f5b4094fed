package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helixmarkets/authcore"
)

type refreshSlot struct {
	digest  string
	expires time.Time
}

// RefreshStore keeps one refresh-token digest per account in process memory.
// Put always overwrites; expiry is checked lazily on Get.
type RefreshStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]refreshSlot
	now   func() time.Time
}

// NewRefreshStore returns an empty refresh store.
func NewRefreshStore() *RefreshStore {
	return &RefreshStore{
		slots: make(map[uuid.UUID]refreshSlot),
		now:   time.Now,
	}
}

func (s *RefreshStore) Put(ctx context.Context, accountID uuid.UUID, digest string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.slots[accountID] = refreshSlot{digest: digest, expires: s.now().Add(ttl)}
	return nil
}

func (s *RefreshStore) Get(ctx context.Context, accountID uuid.UUID) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.slots[accountID]
	if !ok {
		return "", authcore.ErrNotFound
	}
	if !slot.expires.After(s.now()) {
		delete(s.slots, accountID)
		return "", authcore.ErrNotFound
	}
	return slot.digest, nil
}

func (s *RefreshStore) Delete(ctx context.Context, accountID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, accountID)
	return nil
}
