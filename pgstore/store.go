// Package pgstore provides a PostgreSQL implementation of the
// authcore.Store contract on top of pgx connection pools. Profile and IP
// history are stored as jsonb; roles and permissions as text arrays. The
// single-use token consumes are conditional UPDATE ... RETURNING statements,
// so concurrent redemption of the same token succeeds exactly once.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helixmarkets/authcore"
)

const uniqueViolation = "23505"

// Store persists accounts in the accounts table.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var _ authcore.Store = (*Store)(nil)

// New creates a [Store] backed by the given pool. Run [Store.EnsureSchema]
// or apply Schema out of band before first use.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Schema is the accounts DDL. Email uniqueness is case-insensitive via the
// expression index; tokens are matched on their digest columns.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                  uuid PRIMARY KEY,
	email               text NOT NULL,
	username            text NOT NULL UNIQUE,
	password_hash       text NOT NULL,
	profile             jsonb NOT NULL DEFAULT '{}',
	status              text NOT NULL,
	kyc_status          text NOT NULL DEFAULT '',
	kyc_level           int NOT NULL DEFAULT 0,
	stake_amount        double precision NOT NULL DEFAULT 0,
	tier                text NOT NULL,
	roles               text[] NOT NULL DEFAULT '{}',
	permissions         text[] NOT NULL DEFAULT '{}',
	two_factor_secret   text NOT NULL DEFAULT '',
	two_factor_enabled  boolean NOT NULL DEFAULT false,
	referral_code       text NOT NULL UNIQUE,
	referred_by         uuid,
	ip_history          jsonb NOT NULL DEFAULT '[]',
	login_attempts      int NOT NULL DEFAULT 0,
	lock_until          timestamptz,
	last_login_at       timestamptz,
	reset_token_digest  text,
	reset_token_expiry  timestamptz,
	verify_token_digest text,
	verify_token_expiry timestamptz,
	created_at          timestamptz NOT NULL,
	updated_at          timestamptz NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_lower_key ON accounts (lower(email));
CREATE INDEX IF NOT EXISTS accounts_verify_digest_idx ON accounts (verify_token_digest) WHERE verify_token_digest IS NOT NULL;
CREATE INDEX IF NOT EXISTS accounts_reset_digest_idx ON accounts (reset_token_digest) WHERE reset_token_digest IS NOT NULL;
`

// EnsureSchema applies Schema.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("pgstore: ensure schema: %w", err)
	}
	return nil
}

const accountColumns = `
	id, email, username, password_hash, profile,
	status, kyc_status, kyc_level, stake_amount, tier, roles, permissions,
	two_factor_secret, two_factor_enabled,
	referral_code, referred_by,
	ip_history, login_attempts, lock_until, last_login_at,
	reset_token_digest, reset_token_expiry,
	verify_token_digest, verify_token_expiry,
	created_at, updated_at`

func (s *Store) Create(ctx context.Context, account *authcore.Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	authcore.ApplyCreateDefaults(account, s.now())

	profile, history, err := encodeJSONFields(account)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12,
			$13, $14,
			$15, $16,
			$17, $18, $19, $20,
			$21, $22,
			$23, $24,
			$25, $26
		)`

	_, err = s.pool.Exec(ctx, query,
		account.ID, account.Email, account.Username, account.PasswordHash, profile,
		string(account.Status), account.KYCStatus, account.KYCLevel, account.StakeAmount, string(account.Tier), account.Roles, account.Permissions,
		account.TwoFactorSecret, account.TwoFactorEnabled,
		account.ReferralCode, nullableUUID(account.ReferredBy),
		history, account.LoginAttempts, account.LockUntil, account.LastLoginAt,
		nullableString(account.ResetTokenDigest), account.ResetTokenExpiry,
		nullableString(account.VerifyTokenDigest), account.VerifyTokenExpiry,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return authcore.ErrDuplicateKey
		}
		return fmt.Errorf("pgstore: create account: %w", err)
	}
	return nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (*authcore.Account, error) {
	return s.findBy(ctx, "id = $1", id)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	return s.findBy(ctx, "lower(email) = lower($1)", email)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*authcore.Account, error) {
	return s.findBy(ctx, "username = $1", username)
}

func (s *Store) FindByReferralCode(ctx context.Context, code string) (*authcore.Account, error) {
	return s.findBy(ctx, "referral_code = $1", code)
}

func (s *Store) findBy(ctx context.Context, where string, arg any) (*authcore.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + where
	row := s.pool.QueryRow(ctx, query, arg)

	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authcore.ErrNotFound
		}
		return nil, fmt.Errorf("pgstore: find account: %w", err)
	}
	return account, nil
}

func (s *Store) Update(ctx context.Context, account *authcore.Account) error {
	profile, history, err := encodeJSONFields(account)
	if err != nil {
		return err
	}

	account.UpdatedAt = s.now()

	query := `
		UPDATE accounts SET
			email = $2, username = $3, password_hash = $4, profile = $5,
			status = $6, kyc_status = $7, kyc_level = $8, stake_amount = $9, tier = $10,
			roles = $11, permissions = $12,
			two_factor_secret = $13, two_factor_enabled = $14,
			referral_code = $15, referred_by = $16,
			ip_history = $17, login_attempts = $18, lock_until = $19, last_login_at = $20,
			reset_token_digest = $21, reset_token_expiry = $22,
			verify_token_digest = $23, verify_token_expiry = $24,
			updated_at = $25
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		account.ID,
		account.Email, account.Username, account.PasswordHash, profile,
		string(account.Status), account.KYCStatus, account.KYCLevel, account.StakeAmount, string(account.Tier),
		account.Roles, account.Permissions,
		account.TwoFactorSecret, account.TwoFactorEnabled,
		account.ReferralCode, nullableUUID(account.ReferredBy),
		history, account.LoginAttempts, account.LockUntil, account.LastLoginAt,
		nullableString(account.ResetTokenDigest), account.ResetTokenExpiry,
		nullableString(account.VerifyTokenDigest), account.VerifyTokenExpiry,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return authcore.ErrDuplicateKey
		}
		return fmt.Errorf("pgstore: update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return authcore.ErrNotFound
	}
	return nil
}

func (s *Store) ConsumeVerifyToken(ctx context.Context, digest string, now time.Time) (*authcore.Account, error) {
	return s.consumeToken(ctx, "verify_token_digest", "verify_token_expiry", digest, now)
}

func (s *Store) ConsumeResetToken(ctx context.Context, digest string, now time.Time) (*authcore.Account, error) {
	return s.consumeToken(ctx, "reset_token_digest", "reset_token_expiry", digest, now)
}

func (s *Store) consumeToken(ctx context.Context, digestCol, expiryCol, digest string, now time.Time) (*authcore.Account, error) {
	if digest == "" {
		return nil, authcore.ErrNotFound
	}

	query := `
		UPDATE accounts
		SET ` + digestCol + ` = NULL, ` + expiryCol + ` = NULL, updated_at = $3
		WHERE ` + digestCol + ` = $1 AND ` + expiryCol + ` > $2
		RETURNING ` + accountColumns

	row := s.pool.QueryRow(ctx, query, digest, now, s.now())
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authcore.ErrNotFound
		}
		return nil, fmt.Errorf("pgstore: consume token: %w", err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*authcore.Account, error) {
	var (
		account     authcore.Account
		profile     []byte
		history     []byte
		status      string
		tier        string
		referredBy  uuid.NullUUID
		resetDigest *string
		verDigest   *string
	)

	err := row.Scan(
		&account.ID, &account.Email, &account.Username, &account.PasswordHash, &profile,
		&status, &account.KYCStatus, &account.KYCLevel, &account.StakeAmount, &tier,
		&account.Roles, &account.Permissions,
		&account.TwoFactorSecret, &account.TwoFactorEnabled,
		&account.ReferralCode, &referredBy,
		&history, &account.LoginAttempts, &account.LockUntil, &account.LastLoginAt,
		&resetDigest, &account.ResetTokenExpiry,
		&verDigest, &account.VerifyTokenExpiry,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Status = authcore.AccountStatus(status)
	account.Tier = authcore.Tier(tier)
	if referredBy.Valid {
		account.ReferredBy = referredBy.UUID
	}
	if resetDigest != nil {
		account.ResetTokenDigest = *resetDigest
	}
	if verDigest != nil {
		account.VerifyTokenDigest = *verDigest
	}

	if len(profile) > 0 {
		if err := json.Unmarshal(profile, &account.Profile); err != nil {
			return nil, fmt.Errorf("pgstore: decode profile: %w", err)
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &account.IPHistory); err != nil {
			return nil, fmt.Errorf("pgstore: decode ip history: %w", err)
		}
	}

	return &account, nil
}

func encodeJSONFields(account *authcore.Account) (profile, history []byte, err error) {
	profile, err = json.Marshal(account.Profile)
	if err != nil {
		return nil, nil, fmt.Errorf("pgstore: encode profile: %w", err)
	}

	if account.IPHistory == nil {
		history = []byte("[]")
	} else {
		history, err = json.Marshal(account.IPHistory)
		if err != nil {
			return nil, nil, fmt.Errorf("pgstore: encode ip history: %w", err)
		}
	}
	return profile, history, nil
}

func nullableUUID(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
