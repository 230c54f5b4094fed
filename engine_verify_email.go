package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/helixmarkets/authcore/internal"
)

// VerifyEmail consumes a verification token. The store clears the digest and
// expiry atomically, so a second presentation of the same value fails even
// inside the validity window. An account that is still pending becomes active;
// suspended and banned accounts keep their externally-set status, and the
// token is still burned.
func (e *Engine) VerifyEmail(ctx context.Context, tokenValue string) (*Account, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	digest := internal.DigestString(strings.TrimSpace(tokenValue))

	account, err := e.store.ConsumeVerifyToken(ctx, digest, time.Now())
	if errors.Is(err, ErrNotFound) {
		e.metricInc(MetricEmailVerifyFailure)
		e.emitAudit(ctx, auditEventEmailVerifyConfirm, false, "", ErrInvalidOrExpiredToken, nil)
		return nil, ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, err
	}

	if account.Status == StatusPending {
		account.Status = StatusActive
		if err := e.store.Update(ctx, account); err != nil {
			return nil, err
		}
	}

	e.metricInc(MetricEmailVerifySuccess)
	e.emitAudit(ctx, auditEventEmailVerifyConfirm, true, account.ID.String(), nil, nil)

	return account, nil
}

// ResendVerification issues a fresh verification token for a pending account,
// replacing any outstanding one, and mails it. Throttled per address.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	email = strings.ToLower(strings.TrimSpace(email))

	account, err := e.store.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if account.Status != StatusPending {
		e.emitAudit(ctx, auditEventEmailVerifyRequest, false, account.ID.String(), ErrAlreadyVerified, nil)
		return ErrAlreadyVerified
	}

	allowed, err := e.mailThrottle.Allow(ctx, "verify:"+email)
	if err != nil {
		return err
	}
	if !allowed {
		e.metricInc(MetricMailThrottled)
		e.emitAudit(ctx, auditEventEmailVerifyRequest, false, account.ID.String(), ErrEmailThrottled, nil)
		return ErrEmailThrottled
	}

	value, digest, err := internal.NewMailToken()
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	expiry := time.Now().Add(e.config.Verification.TokenTTL)
	account.VerifyTokenDigest = digest
	account.VerifyTokenExpiry = &expiry

	if err := e.store.Update(ctx, account); err != nil {
		return err
	}

	if err := e.mailer.SendVerification(ctx, account.Email, value); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}

	e.metricInc(MetricEmailVerifyRequest)
	e.emitAudit(ctx, auditEventEmailVerifyRequest, true, account.ID.String(), nil, nil)

	return nil
}
