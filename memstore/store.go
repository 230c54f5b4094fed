// Package memstore provides an in-memory account store. It implements the
// full authcore.Store contract including the atomic token-consume
// primitives, and is intended for tests and single-process deployments.
package memstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helixmarkets/authcore"
)

// Store keeps all accounts in process memory behind a single mutex. Unique
// indexes over email (case-folded), username, and referral code are
// maintained alongside the primary map.
type Store struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*authcore.Account
	byEmail    map[string]uuid.UUID
	byUsername map[string]uuid.UUID
	byReferral map[string]uuid.UUID

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		byID:       make(map[uuid.UUID]*authcore.Account),
		byEmail:    make(map[string]uuid.UUID),
		byUsername: make(map[string]uuid.UUID),
		byReferral: make(map[string]uuid.UUID),
		now:        time.Now,
	}
}

func emailKey(email string) string { return strings.ToLower(email) }

func (s *Store) Create(ctx context.Context, account *authcore.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	if _, ok := s.byID[account.ID]; ok {
		return authcore.ErrDuplicateKey
	}
	if _, ok := s.byEmail[emailKey(account.Email)]; ok {
		return authcore.ErrDuplicateKey
	}
	if _, ok := s.byUsername[account.Username]; ok {
		return authcore.ErrDuplicateKey
	}
	if account.ReferralCode != "" {
		if _, ok := s.byReferral[account.ReferralCode]; ok {
			return authcore.ErrDuplicateKey
		}
	}

	stored := account.Clone()
	authcore.ApplyCreateDefaults(stored, s.now())

	s.byID[stored.ID] = stored
	s.byEmail[emailKey(stored.Email)] = stored.ID
	s.byUsername[stored.Username] = stored.ID
	if stored.ReferralCode != "" {
		s.byReferral[stored.ReferralCode] = stored.ID
	}

	// Reflect applied defaults back to the caller.
	*account = *stored.Clone()
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*authcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.byID[id]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	return account.Clone(), nil
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*authcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[username]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) FindByReferralCode(ctx context.Context, code string) (*authcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byReferral[code]
	if !ok {
		return nil, authcore.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *Store) Update(ctx context.Context, account *authcore.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[account.ID]
	if !ok {
		return authcore.ErrNotFound
	}

	if emailKey(account.Email) != emailKey(prev.Email) {
		if _, taken := s.byEmail[emailKey(account.Email)]; taken {
			return authcore.ErrDuplicateKey
		}
	}
	if account.Username != prev.Username {
		if _, taken := s.byUsername[account.Username]; taken {
			return authcore.ErrDuplicateKey
		}
	}
	if account.ReferralCode != prev.ReferralCode && account.ReferralCode != "" {
		if _, taken := s.byReferral[account.ReferralCode]; taken {
			return authcore.ErrDuplicateKey
		}
	}

	delete(s.byEmail, emailKey(prev.Email))
	delete(s.byUsername, prev.Username)
	if prev.ReferralCode != "" {
		delete(s.byReferral, prev.ReferralCode)
	}

	stored := account.Clone()
	stored.UpdatedAt = s.now()

	s.byID[stored.ID] = stored
	s.byEmail[emailKey(stored.Email)] = stored.ID
	s.byUsername[stored.Username] = stored.ID
	if stored.ReferralCode != "" {
		s.byReferral[stored.ReferralCode] = stored.ID
	}

	account.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *Store) ConsumeVerifyToken(ctx context.Context, digest string, now time.Time) (*authcore.Account, error) {
	return s.consumeToken(ctx, digest, now, true)
}

func (s *Store) ConsumeResetToken(ctx context.Context, digest string, now time.Time) (*authcore.Account, error) {
	return s.consumeToken(ctx, digest, now, false)
}

func (s *Store) consumeToken(ctx context.Context, digest string, now time.Time, verify bool) (*authcore.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if digest == "" {
		return nil, authcore.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.byID {
		var stored string
		var expiry *time.Time
		if verify {
			stored, expiry = account.VerifyTokenDigest, account.VerifyTokenExpiry
		} else {
			stored, expiry = account.ResetTokenDigest, account.ResetTokenExpiry
		}
		if stored != digest {
			continue
		}
		if expiry == nil || !expiry.After(now) {
			return nil, authcore.ErrNotFound
		}

		if verify {
			account.VerifyTokenDigest = ""
			account.VerifyTokenExpiry = nil
		} else {
			account.ResetTokenDigest = ""
			account.ResetTokenExpiry = nil
		}
		account.UpdatedAt = s.now()
		return account.Clone(), nil
	}
	return nil, authcore.ErrNotFound
}
