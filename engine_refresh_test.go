package authcore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRefreshIssuesNewPair(t *testing.T) {
	f := newTestEngine(t, nil)
	registerVerified(t, f, "alice@example.com", "alice", "P@ssw0rd1")
	ctx := context.Background()

	result, err := f.engine.Login(ctx, "alice", "P@ssw0rd1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	pair, err := f.engine.Refresh(ctx, result.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("incomplete token pair")
	}
	if pair.RefreshToken == result.RefreshToken {
		t.Fatal("refresh token not rotated")
	}
}

func TestSecondRefreshInvalidatesFirst(t *testing.T) {
	f := newTestEngine(t, nil)
	registerVerified(t, f, "alice@example.com", "alice", "P@ssw0rd1")
	ctx := context.Background()

	result, err := f.engine.Login(ctx, "alice", "P@ssw0rd1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	first, err := f.engine.Refresh(ctx, result.RefreshToken)
	if err != nil {
		t.Fatalf("first Refresh: %v", err)
	}

	// The login-issued token was overwritten by the first refresh.
	if _, err := f.engine.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("stale token err = %v, want ErrInvalidRefreshToken", err)
	}

	// The first refresh's token still works exactly once more.
	if _, err := f.engine.Refresh(ctx, first.RefreshToken); err != nil {
		t.Fatalf("current token: %v", err)
	}
}

func TestConcurrentLoginLastWriterWins(t *testing.T) {
	f := newTestEngine(t, nil)
	registerVerified(t, f, "alice@example.com", "alice", "P@ssw0rd1")
	ctx := context.Background()

	a, err := f.engine.Login(ctx, "alice", "P@ssw0rd1", "")
	if err != nil {
		t.Fatalf("Login a: %v", err)
	}
	b, err := f.engine.Login(ctx, "alice", "P@ssw0rd1", "")
	if err != nil {
		t.Fatalf("Login b: %v", err)
	}

	if _, err := f.engine.Refresh(ctx, a.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("earlier session token err = %v, want ErrInvalidRefreshToken", err)
	}
	if _, err := f.engine.Refresh(ctx, b.RefreshToken); err != nil {
		t.Fatalf("latest session token: %v", err)
	}
}

func TestRefreshGarbageToken(t *testing.T) {
	f := newTestEngine(t, nil)

	for _, tok := range []string{"", "garbage", "AAAA"} {
		if _, err := f.engine.Refresh(context.Background(), tok); !errors.Is(err, ErrInvalidRefreshToken) {
			t.Fatalf("Refresh(%q) err = %v, want ErrInvalidRefreshToken", tok, err)
		}
	}
}

func TestRefreshForInactiveAccount(t *testing.T) {
	f := newTestEngine(t, nil)
	account := registerVerified(t, f, "alice@example.com", "alice", "P@ssw0rd1")
	ctx := context.Background()

	result, err := f.engine.Login(ctx, "alice", "P@ssw0rd1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	f.store.mutate(t, account.ID, func(a *Account) { a.Status = StatusBanned })

	if _, err := f.engine.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrAccountNotActive) {
		t.Fatalf("err = %v, want ErrAccountNotActive", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newTestEngine(t, nil)
	account := registerVerified(t, f, "alice@example.com", "alice", "P@ssw0rd1")
	ctx := context.Background()

	result, err := f.engine.Login(ctx, "alice", "P@ssw0rd1", "")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := f.engine.Logout(ctx, account.ID); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := f.engine.Logout(ctx, account.ID); err != nil {
		t.Fatalf("second Logout: %v", err)
	}

	if _, err := f.engine.Refresh(ctx, result.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("refresh after logout err = %v, want ErrInvalidRefreshToken", err)
	}

	// Logging out an account with no slot at all is also fine.
	if err := f.engine.Logout(ctx, uuid.New()); err != nil {
		t.Fatalf("Logout of unknown account: %v", err)
	}
}
