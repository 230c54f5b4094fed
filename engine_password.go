package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helixmarkets/authcore/internal"
)

// ForgotPassword issues a password-reset token and mails it. It always
// returns nil for unknown addresses, throttled addresses, and mail failures
// alike, so the response cannot be used to enumerate accounts. Real failures
// are still audited.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))

	account, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			e.emitAudit(ctx, auditEventPasswordResetRequest, false, "", err, nil)
		}
		return nil
	}

	allowed, err := e.mailThrottle.Allow(ctx, "reset:"+email)
	if err != nil || !allowed {
		if !allowed {
			e.metricInc(MetricMailThrottled)
		}
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, account.ID.String(), ErrEmailThrottled, nil)
		return nil
	}

	value, digest, err := internal.NewMailToken()
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, account.ID.String(), err, nil)
		return nil
	}

	expiry := time.Now().Add(e.config.Reset.TokenTTL)
	account.ResetTokenDigest = digest
	account.ResetTokenExpiry = &expiry

	if err := e.store.Update(ctx, account); err != nil {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, account.ID.String(), err, nil)
		return nil
	}

	if err := e.mailer.SendPasswordReset(ctx, account.Email, value); err != nil {
		e.emitAudit(ctx, auditEventPasswordResetRequest, false, account.ID.String(), err, nil)
		return nil
	}

	e.metricInc(MetricPasswordResetRequest)
	e.emitAudit(ctx, auditEventPasswordResetRequest, true, account.ID.String(), nil, nil)

	return nil
}

// ResetPassword consumes a reset token and installs a new credential. The
// refresh slot is revoked so sessions stolen along with the old password die
// here.
func (e *Engine) ResetPassword(ctx context.Context, tokenValue, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.validatePassword(newPassword); err != nil {
		return err
	}

	digest := internal.DigestString(strings.TrimSpace(tokenValue))

	account, err := e.store.ConsumeResetToken(ctx, digest, time.Now())
	if errors.Is(err, ErrNotFound) {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, "", ErrInvalidOrExpiredToken, nil)
		return ErrInvalidOrExpiredToken
	}
	if err != nil {
		return err
	}

	same, err := e.passwordHash.Verify(newPassword, account.PasswordHash)
	if err == nil && same {
		e.metricInc(MetricPasswordResetFailure)
		e.emitAudit(ctx, auditEventPasswordResetConfirm, false, account.ID.String(), ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}

	account.PasswordHash = hash
	clearLockout(account)

	if err := e.store.Update(ctx, account); err != nil {
		return err
	}

	if err := e.refreshStore.Delete(ctx, account.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	e.metricInc(MetricPasswordResetSuccess)
	e.emitAudit(ctx, auditEventPasswordResetConfirm, true, account.ID.String(), nil, nil)

	return nil
}

// ChangePassword swaps the credential for an authenticated account. The
// caller proves the current password; the refresh slot is revoked afterwards.
func (e *Engine) ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	if err := e.validatePassword(newPassword); err != nil {
		return err
	}

	account, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		return err
	}

	ok, err := e.passwordHash.Verify(currentPassword, account.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify credential: %w", err)
	}
	if !ok {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, account.ID.String(), ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	if newPassword == currentPassword {
		e.metricInc(MetricPasswordChangeFailure)
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, account.ID.String(), ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	hash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}

	account.PasswordHash = hash

	if err := e.store.Update(ctx, account); err != nil {
		return err
	}

	if err := e.refreshStore.Delete(ctx, account.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, account.ID.String(), nil, nil)

	return nil
}

func (e *Engine) validatePassword(plaintext string) error {
	if len(plaintext) < e.config.Password.MinLength {
		verr := NewValidationError()
		verr.Add("password", fmt.Sprintf("must be at least %d characters", e.config.Password.MinLength))
		return verr
	}
	return nil
}
