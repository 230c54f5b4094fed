package authcore

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the lifecycle state of an account. Accounts are created
// pending and become active exactly once, when their email-verification token
// is consumed. Suspended and banned are set by an external authority; the
// engine respects them but never enters or leaves them on its own.
type AccountStatus string

const (
	StatusPending   AccountStatus = "pending"
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
	StatusBanned    AccountStatus = "banned"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusSuspended, StatusBanned:
		return true
	}
	return false
}

// Tier is derived from the account's stake amount.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// TierForStake maps a stake amount onto a tier.
func TierForStake(amount float64) Tier {
	switch {
	case amount >= 100_000:
		return TierPlatinum
	case amount >= 10_000:
		return TierGold
	case amount >= 1_000:
		return TierSilver
	default:
		return TierBronze
	}
}

// Profile carries the non-security account fields.
type Profile struct {
	FirstName   string
	LastName    string
	Phone       string
	Country     string
	DateOfBirth string
	Address     string
}

// IPEntry is one element of the recent-IP history, most-recent-last.
type IPEntry struct {
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent,omitempty"`
	At        time.Time `json:"at"`
}

// maxIPHistory bounds the recent-IP history; the oldest entry drops first.
const maxIPHistory = 10

// Account is the identity root. Email is stored case-folded; email, username,
// id, and referral code are each globally unique (enforced by the Store).
// Credential material lives here only as digests: the password hash, the 2FA
// secret, and the two single-use token digests. None of those fields ever
// leave through the sanitized projection.
type Account struct {
	ID           uuid.UUID
	Email        string
	Username     string
	PasswordHash string
	Profile      Profile

	Status      AccountStatus
	KYCStatus   string
	KYCLevel    int
	StakeAmount float64
	Tier        Tier
	Roles       []string
	Permissions []string

	TwoFactorSecret  string
	TwoFactorEnabled bool

	ReferralCode string
	ReferredBy   uuid.UUID

	IPHistory     []IPEntry
	LoginAttempts int
	LockUntil     *time.Time
	LastLoginAt   *time.Time

	ResetTokenDigest  string
	ResetTokenExpiry  *time.Time
	VerifyTokenDigest string
	VerifyTokenExpiry *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so stores can hand out records without aliasing
// their own state.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}

	out := *a
	out.Roles = append([]string(nil), a.Roles...)
	out.Permissions = append([]string(nil), a.Permissions...)
	out.IPHistory = append([]IPEntry(nil), a.IPHistory...)
	if a.LockUntil != nil {
		t := *a.LockUntil
		out.LockUntil = &t
	}
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		out.LastLoginAt = &t
	}
	if a.ResetTokenExpiry != nil {
		t := *a.ResetTokenExpiry
		out.ResetTokenExpiry = &t
	}
	if a.VerifyTokenExpiry != nil {
		t := *a.VerifyTokenExpiry
		out.VerifyTokenExpiry = &t
	}
	return &out
}

// RecordIP appends an entry to the IP history, dropping the oldest entry once
// the cap is reached.
func (a *Account) RecordIP(entry IPEntry) {
	a.IPHistory = append(a.IPHistory, entry)
	if len(a.IPHistory) > maxIPHistory {
		a.IPHistory = a.IPHistory[len(a.IPHistory)-maxIPHistory:]
	}
}

// ApplyCreateDefaults fills the fields the Store contract promises on create:
// pending status, bronze tier, the user role, and timestamps. Stores call it
// before persisting a new record.
func ApplyCreateDefaults(a *Account, now time.Time) {
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.Tier == "" {
		a.Tier = TierForStake(a.StakeAmount)
	}
	if len(a.Roles) == 0 {
		a.Roles = []string{"user"}
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
}

// Store is the persistence contract. It is the single source of truth for
// Account records and the only component permitted to mutate them. All
// uniqueness checks live here, not in callers; email comparisons are
// case-insensitive.
type Store interface {
	// Create persists a new account after applying the create defaults.
	// Returns ErrDuplicateKey when email, username, or referral code collide.
	Create(ctx context.Context, account *Account) error

	// Lookups return ErrNotFound on a miss.
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByReferralCode(ctx context.Context, code string) (*Account, error)

	// Update replaces the stored record. Returns ErrNotFound when the id is
	// unknown and ErrDuplicateKey when a changed unique field collides.
	Update(ctx context.Context, account *Account) error

	// ConsumeVerifyToken and ConsumeResetToken atomically locate the account
	// whose stored digest matches and whose expiry is after now, clear the
	// digest and expiry, and return the updated account. A miss and an
	// expired token are both ErrNotFound so callers cannot tell them apart.
	ConsumeVerifyToken(ctx context.Context, digest string, now time.Time) (*Account, error)
	ConsumeResetToken(ctx context.Context, digest string, now time.Time) (*Account, error)
}

// RefreshStore holds the single live refresh-token digest per account.
// Put overwrites unconditionally (last writer wins), Delete is idempotent.
type RefreshStore interface {
	Put(ctx context.Context, accountID uuid.UUID, digest string, ttl time.Duration) error
	Get(ctx context.Context, accountID uuid.UUID) (string, error)
	Delete(ctx context.Context, accountID uuid.UUID) error
}

// Throttle limits how often a keyed action may run inside a rolling window.
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// NoOpThrottle always allows.
type NoOpThrottle struct{}

func (NoOpThrottle) Allow(ctx context.Context, key string) (bool, error) { return true, nil }

// Mailer delivers verification and reset tokens. The engine hands over the
// plaintext token exactly once and never persists it.
type Mailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// NoOpMailer discards outbound mail. Useful for embedders that deliver
// tokens out of band.
type NoOpMailer struct{}

func (NoOpMailer) SendVerification(ctx context.Context, email, token string) error { return nil }
func (NoOpMailer) SendPasswordReset(ctx context.Context, email, token string) error { return nil }

// RegisterInput is the caller-supplied registration payload. ReferralCode,
// when present, names the referring account's code.
type RegisterInput struct {
	Email        string
	Username     string
	Password     string
	Profile      Profile
	ReferralCode string
}

// LoginResult is returned by Engine.Login. When TwoFactorRequired is set the
// tokens are empty and no account state was touched; the caller must retry
// with a code.
type LoginResult struct {
	AccessToken  string
	RefreshToken string

	TwoFactorRequired bool

	Account *Account
}

// TokenPair is returned by Engine.Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TwoFactorSetup holds the enrollment material returned by
// Engine.EnableTwoFactor. The secret becomes effective only after
// ConfirmTwoFactor sees a valid code.
type TwoFactorSetup struct {
	Secret string
	URI    string
}
