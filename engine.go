package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helixmarkets/authcore/password"
	"github.com/helixmarkets/authcore/token"
)

// Engine composes the account store, lockout policy, two-factor challenge,
// and token issuer into the caller-facing use cases. Construct one through
// [Builder.Build]; all methods are safe for concurrent use afterwards.
//
// The Engine never mutates persisted state directly: it computes new account
// state and hands it to the Store, which is the single source of truth.
type Engine struct {
	config       Config
	store        Store
	refreshStore RefreshStore
	mailer       Mailer
	mailThrottle Throttle
	audit        *auditDispatcher
	metrics      *Metrics
	passwordHash *password.Hasher
	totp         *totpManager
	tokens       *token.Manager
}

// Close drains the audit dispatcher. Call it on shutdown.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login runs the full authentication state machine:
//
//	lock check -> status check -> credential check -> two-factor gate -> token issue
//
// A locked account fails before the password is even looked at, so the caller
// learns nothing about credential validity during the window. When the account
// has two-factor enabled and no code was supplied, the result carries
// TwoFactorRequired with no tokens and no state mutation; the caller retries
// with a code. Failed two-factor codes do not feed the lockout counter.
func (e *Engine) Login(ctx context.Context, identifier, plaintext, twoFactorCode string) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.findByIdentifier(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()

	// Lock check runs before credential verification: a locked account
	// rejects the request even when the submitted password is correct.
	if isLocked(account, now) {
		e.metricInc(MetricLoginLocked)
		e.emitAudit(ctx, auditEventLoginLocked, false, account.ID.String(), ErrAccountLocked, nil)
		return nil, ErrAccountLocked
	}

	if account.Status != StatusActive {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID.String(), ErrAccountNotActive, func() map[string]string {
			return map[string]string{"status": string(account.Status)}
		})
		return nil, ErrAccountNotActive
	}

	ok, err := e.passwordHash.Verify(plaintext, account.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify credential: %w", err)
	}
	if !ok {
		registerLoginFailure(account, e.config.Lockout, now)
		if updateErr := e.store.Update(ctx, account); updateErr != nil {
			return nil, updateErr
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, account.ID.String(), ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"attempts": fmt.Sprintf("%d", account.LoginAttempts)}
		})
		return nil, ErrInvalidCredentials
	}

	// Two-factor gate. Lockout state is deliberately not cleared yet: the
	// login has not fully succeeded until a token is issued.
	if account.TwoFactorEnabled {
		if strings.TrimSpace(twoFactorCode) == "" {
			e.metricInc(MetricLoginTwoFactorPending)
			e.emitAudit(ctx, auditEventLoginTwoFactorPending, true, account.ID.String(), nil, nil)
			return &LoginResult{TwoFactorRequired: true}, nil
		}

		valid, err := e.totp.VerifyCode(account.TwoFactorSecret, twoFactorCode, now)
		if err != nil {
			return nil, fmt.Errorf("verify two-factor code: %w", err)
		}
		if !valid {
			e.metricInc(MetricTwoFactorFailure)
			e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.ID.String(), ErrInvalidTwoFactorCode, nil)
			return nil, ErrInvalidTwoFactorCode
		}
	}

	clearLockout(account)

	if e.config.Password.UpgradeOnLogin {
		if needs, err := e.passwordHash.NeedsRehash(account.PasswordHash); err == nil && needs {
			if rehashed, err := e.passwordHash.Hash(plaintext); err == nil {
				account.PasswordHash = rehashed
			}
		}
	}

	account.RecordIP(IPEntry{
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		At:        now,
	})
	account.LastLoginAt = &now

	if err := e.store.Update(ctx, account); err != nil {
		return nil, err
	}

	access, refresh, err := e.issueTokens(ctx, account)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, account.ID.String(), nil, nil)

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		Account:      account,
	}, nil
}

// Refresh exchanges a live refresh token for a new access/refresh pair. The
// slot is overwritten on success, so concurrent refreshes for the same
// account leave only the last writer's token valid.
func (e *Engine) Refresh(ctx context.Context, refreshValue string) (*TokenPair, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	accountID, presented, err := token.ParseRefresh(refreshValue)
	if err != nil {
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", ErrInvalidRefreshToken, nil)
		return nil, ErrInvalidRefreshToken
	}

	stored, err := e.refreshStore.Get(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, accountID.String(), ErrInvalidRefreshToken, nil)
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	if !token.DigestEqual(presented, stored) {
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, accountID.String(), ErrInvalidRefreshToken, nil)
		return nil, ErrInvalidRefreshToken
	}

	account, err := e.store.FindByID(ctx, accountID)
	if errors.Is(err, ErrNotFound) {
		e.metricInc(MetricRefreshInvalid)
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, err
	}
	if account.Status != StatusActive {
		e.metricInc(MetricRefreshInvalid)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, accountID.String(), ErrAccountNotActive, nil)
		return nil, ErrAccountNotActive
	}

	access, refresh, err := e.issueTokens(ctx, account)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, accountID.String(), nil, nil)

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Logout deletes the account's refresh slot. Idempotent: logging out twice is
// not an error.
func (e *Engine) Logout(ctx context.Context, accountID uuid.UUID) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.refreshStore.Delete(ctx, accountID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, auditEventLogout, true, accountID.String(), nil, nil)
	return nil
}

// ValidateAccess parses and verifies an access token, returning its claims.
// Intended for transport adapters guarding authenticated routes.
func (e *Engine) ValidateAccess(tokenStr string) (*token.AccessClaims, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.tokens.ParseAccess(tokenStr)
}

// issueTokens mints an access token and overwrites the refresh slot with a
// fresh value.
func (e *Engine) issueTokens(ctx context.Context, account *Account) (access, refresh string, err error) {
	access, err = e.tokens.CreateAccess(account.ID.String(), account.Roles)
	if err != nil {
		return "", "", fmt.Errorf("issue access token: %w", err)
	}

	refresh, digest, err := token.NewRefresh(account.ID)
	if err != nil {
		return "", "", fmt.Errorf("issue refresh token: %w", err)
	}
	if err := e.refreshStore.Put(ctx, account.ID, digest, e.config.JWT.RefreshTTL); err != nil {
		return "", "", fmt.Errorf("store refresh token: %w", err)
	}

	return access, refresh, nil
}

// findByIdentifier resolves a login identifier, trying case-folded email
// first and falling back to username.
func (e *Engine) findByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, ErrNotFound
	}

	account, err := e.store.FindByEmail(ctx, strings.ToLower(identifier))
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return e.store.FindByUsername(ctx, identifier)
}
