package authcore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EnableTwoFactor starts enrollment: it stores a fresh shared secret on the
// account with the enabled flag still off and returns the secret plus the
// otpauth:// URI for the authenticator app. Logins are not gated until
// ConfirmTwoFactor proves the app produces valid codes.
func (e *Engine) EnableTwoFactor(ctx context.Context, accountID uuid.UUID) (*TwoFactorSetup, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	account, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.TwoFactorEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	secret, err := e.totp.GenerateSecret()
	if err != nil {
		return nil, fmt.Errorf("generate two-factor secret: %w", err)
	}

	account.TwoFactorSecret = secret
	if err := e.store.Update(ctx, account); err != nil {
		return nil, err
	}

	e.emitAudit(ctx, auditEventTwoFactorSetupRequested, true, account.ID.String(), nil, nil)

	return &TwoFactorSetup{
		Secret: secret,
		URI:    e.totp.ProvisionURI(secret, account.Email),
	}, nil
}

// ConfirmTwoFactor completes enrollment by checking one code against the
// pending secret and flipping the enabled flag.
func (e *Engine) ConfirmTwoFactor(ctx context.Context, accountID uuid.UUID, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	account, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if account.TwoFactorEnabled {
		return ErrTwoFactorAlreadyEnabled
	}
	if account.TwoFactorSecret == "" {
		return ErrTwoFactorNotEnabled
	}

	valid, err := e.totp.VerifyCode(account.TwoFactorSecret, code, time.Now())
	if err != nil {
		return fmt.Errorf("verify two-factor code: %w", err)
	}
	if !valid {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.ID.String(), ErrInvalidTwoFactorCode, nil)
		return ErrInvalidTwoFactorCode
	}

	account.TwoFactorEnabled = true
	if err := e.store.Update(ctx, account); err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventTwoFactorEnabled, true, account.ID.String(), nil, nil)
	return nil
}

// DisableTwoFactor turns the gate off. The caller must prove both the
// password and a current code; losing the authenticator is handled by support
// tooling, not this path.
func (e *Engine) DisableTwoFactor(ctx context.Context, accountID uuid.UUID, plaintext, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	account, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !account.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	ok, err := e.passwordHash.Verify(plaintext, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify credential: %w", err)
	}
	if !ok {
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.ID.String(), ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	valid, err := e.totp.VerifyCode(account.TwoFactorSecret, strings.TrimSpace(code), time.Now())
	if err != nil {
		return fmt.Errorf("verify two-factor code: %w", err)
	}
	if !valid {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, auditEventTwoFactorFailure, false, account.ID.String(), ErrInvalidTwoFactorCode, nil)
		return ErrInvalidTwoFactorCode
	}

	account.TwoFactorSecret = ""
	account.TwoFactorEnabled = false

	if err := e.store.Update(ctx, account); err != nil {
		return err
	}

	e.emitAudit(ctx, auditEventTwoFactorDisabled, true, account.ID.String(), nil, nil)
	return nil
}
