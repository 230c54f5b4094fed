package authcore

import (
	"context"
	"crypto/ed25519"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// testStore is an in-memory Store double. It mirrors the contract the engine
// relies on, including atomic token consumption, without pulling in a real
// backend.
type testStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*Account
}

func newTestStore() *testStore {
	return &testStore{accounts: make(map[uuid.UUID]*Account)}
}

func (s *testStore) Create(ctx context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, a.Email) ||
			existing.Username == a.Username ||
			(a.ReferralCode != "" && existing.ReferralCode == a.ReferralCode) {
			return ErrDuplicateKey
		}
	}

	stored := a.Clone()
	ApplyCreateDefaults(stored, time.Now())
	s.accounts[stored.ID] = stored
	*a = *stored.Clone()
	return nil
}

func (s *testStore) FindByID(ctx context.Context, id uuid.UUID) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		return a.Clone(), nil
	}
	return nil, ErrNotFound
}

func (s *testStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Email, email) {
			return a.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *testStore) FindByUsername(ctx context.Context, username string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			return a.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *testStore) FindByReferralCode(ctx context.Context, code string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ReferralCode == code {
			return a.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (s *testStore) Update(ctx context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[a.ID]; !ok {
		return ErrNotFound
	}
	s.accounts[a.ID] = a.Clone()
	return nil
}

func (s *testStore) ConsumeVerifyToken(ctx context.Context, digest string, now time.Time) (*Account, error) {
	return s.consume(digest, now, true)
}

func (s *testStore) ConsumeResetToken(ctx context.Context, digest string, now time.Time) (*Account, error) {
	return s.consume(digest, now, false)
}

func (s *testStore) consume(digest string, now time.Time, verify bool) (*Account, error) {
	if digest == "" {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		var stored string
		var expiry *time.Time
		if verify {
			stored, expiry = a.VerifyTokenDigest, a.VerifyTokenExpiry
		} else {
			stored, expiry = a.ResetTokenDigest, a.ResetTokenExpiry
		}
		if stored != digest {
			continue
		}
		if expiry == nil || !expiry.After(now) {
			return nil, ErrNotFound
		}
		if verify {
			a.VerifyTokenDigest = ""
			a.VerifyTokenExpiry = nil
		} else {
			a.ResetTokenDigest = ""
			a.ResetTokenExpiry = nil
		}
		return a.Clone(), nil
	}
	return nil, ErrNotFound
}

// mutate edits the stored record directly, bypassing the engine. Used to
// stage states like an expired lock window.
func (s *testStore) mutate(t *testing.T, id uuid.UUID, fn func(*Account)) {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		t.Fatalf("account %s not in store", id)
	}
	fn(a)
}

func (s *testStore) get(t *testing.T, id uuid.UUID) *Account {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		t.Fatalf("account %s not in store", id)
	}
	return a.Clone()
}

type testRefreshStore struct {
	mu    sync.Mutex
	slots map[uuid.UUID]string
}

func newTestRefreshStore() *testRefreshStore {
	return &testRefreshStore{slots: make(map[uuid.UUID]string)}
}

func (s *testRefreshStore) Put(ctx context.Context, id uuid.UUID, digest string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[id] = digest
	return nil
}

func (s *testRefreshStore) Get(ctx context.Context, id uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.slots[id]; ok {
		return d, nil
	}
	return "", ErrNotFound
}

func (s *testRefreshStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.slots, id)
	return nil
}

type recordMailer struct {
	mu           sync.Mutex
	verifyTokens map[string][]string
	resetTokens  map[string][]string
}

func newRecordMailer() *recordMailer {
	return &recordMailer{
		verifyTokens: make(map[string][]string),
		resetTokens:  make(map[string][]string),
	}
}

func (m *recordMailer) SendVerification(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifyTokens[email] = append(m.verifyTokens[email], token)
	return nil
}

func (m *recordMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetTokens[email] = append(m.resetTokens[email], token)
	return nil
}

func (m *recordMailer) lastVerify(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := m.verifyTokens[email]
	if len(tokens) == 0 {
		t.Fatalf("no verification token sent to %s", email)
	}
	return tokens[len(tokens)-1]
}

func (m *recordMailer) lastReset(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := m.resetTokens[email]
	if len(tokens) == 0 {
		t.Fatalf("no reset token sent to %s", email)
	}
	return tokens[len(tokens)-1]
}

// denyThrottle rejects everything.
type denyThrottle struct{}

func (denyThrottle) Allow(ctx context.Context, key string) (bool, error) { return false, nil }

func testConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	// Cheap hashing keeps the suite fast; production parameters are tested
	// in the password package.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type engineFixture struct {
	engine  *Engine
	store   *testStore
	refresh *testRefreshStore
	mailer  *recordMailer
}

func newTestEngine(t *testing.T, tweak func(*Config)) *engineFixture {
	t.Helper()

	cfg := testConfig(t)
	if tweak != nil {
		tweak(&cfg)
	}

	store := newTestStore()
	refresh := newTestRefreshStore()
	mailer := newRecordMailer()

	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithRefreshStore(refresh).
		WithMailer(mailer).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, store: store, refresh: refresh, mailer: mailer}
}

func registerAccount(t *testing.T, f *engineFixture, email, username, pass string) *Account {
	t.Helper()

	account, err := f.engine.Register(context.Background(), RegisterInput{
		Email:    email,
		Username: username,
		Password: pass,
	})
	if err != nil {
		t.Fatalf("Register %s: %v", email, err)
	}
	return account
}

func registerVerified(t *testing.T, f *engineFixture, email, username, pass string) *Account {
	t.Helper()

	account := registerAccount(t, f, email, username, pass)
	verified, err := f.engine.VerifyEmail(context.Background(), f.mailer.lastVerify(t, account.Email))
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	return verified
}
