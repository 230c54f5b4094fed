package authcore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/helixmarkets/authcore/internal"
)

var (
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)
)

// Register creates a pending account, assigns its referral code, stores the
// digest of a fresh verification token, and hands the plaintext token to the
// mailer. The account stays pending until VerifyEmail consumes that token.
func (e *Engine) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Username = strings.TrimSpace(input.Username)

	if err := e.validateRegister(input); err != nil {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", err, nil)
		return nil, err
	}

	var referredBy uuid.UUID
	if code := strings.TrimSpace(input.ReferralCode); code != "" {
		referrer, err := e.store.FindByReferralCode(ctx, strings.ToUpper(code))
		if errors.Is(err, ErrNotFound) {
			verr := NewValidationError()
			verr.Add("referral_code", "unknown referral code")
			e.emitAudit(ctx, auditEventRegisterFailure, false, "", verr, nil)
			return nil, verr
		}
		if err != nil {
			return nil, err
		}
		referredBy = referrer.ID
	}

	hash, err := e.passwordHash.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash credential: %w", err)
	}

	verifyValue, verifyDigest, err := internal.NewMailToken()
	if err != nil {
		return nil, fmt.Errorf("issue verification token: %w", err)
	}

	now := time.Now()
	expiry := now.Add(e.config.Verification.TokenTTL)

	account := &Account{
		ID:                uuid.New(),
		Email:             input.Email,
		Username:          input.Username,
		PasswordHash:      hash,
		Profile:           input.Profile,
		ReferredBy:        referredBy,
		VerifyTokenDigest: verifyDigest,
		VerifyTokenExpiry: &expiry,
	}

	if err := e.assignReferralCode(ctx, account); err != nil {
		return nil, err
	}

	if err := e.store.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, auditEventRegisterDuplicate, false, "", err, func() map[string]string {
				return map[string]string{"email": input.Email}
			})
		}
		return nil, err
	}

	if err := e.mailer.SendVerification(ctx, account.Email, verifyValue); err != nil {
		// Account exists; the caller can resend. Surface the failure.
		e.emitAudit(ctx, auditEventRegisterFailure, false, account.ID.String(), err, nil)
		return account, fmt.Errorf("send verification mail: %w", err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, account.ID.String(), nil, nil)

	return account, nil
}

func (e *Engine) validateRegister(input RegisterInput) error {
	verr := NewValidationError()

	if input.Email == "" {
		verr.Add("email", "email is required")
	} else if !emailPattern.MatchString(input.Email) {
		verr.Add("email", "invalid email address")
	}

	if input.Username == "" {
		verr.Add("username", "username is required")
	} else if !usernamePattern.MatchString(input.Username) {
		verr.Add("username", "must be 3-32 characters of letters, digits, or underscore")
	}

	if len(input.Password) < e.config.Password.MinLength {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", e.config.Password.MinLength))
	}

	if verr.Empty() {
		return nil
	}
	return verr
}
