package authcore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/helixmarkets/authcore/internal"
)

// referralCode derives one candidate code: an uppercase username prefix
// followed by random uppercase alphanumerics. It does not check the store for
// collisions; assignReferralCode owns the retry loop.
func referralCode(username string, cfg ReferralConfig) (string, error) {
	prefix := strings.ToUpper(username)
	if len(prefix) > cfg.PrefixLength {
		prefix = prefix[:cfg.PrefixLength]
	}

	suffix, err := internal.ReferralSuffix(cfg.SuffixLength)
	if err != nil {
		return "", err
	}

	return prefix + suffix, nil
}

// assignReferralCode picks a code not yet present in the store and sets it on
// the account. Called exactly once, at account-creation time; an account that
// already has a code is left untouched.
func (e *Engine) assignReferralCode(ctx context.Context, a *Account) error {
	if a.ReferralCode != "" {
		return nil
	}

	cfg := e.config.Referral
	for i := 0; i < cfg.MaxRetries; i++ {
		code, err := referralCode(a.Username, cfg)
		if err != nil {
			return err
		}

		_, err = e.store.FindByReferralCode(ctx, code)
		if errors.Is(err, ErrNotFound) {
			a.ReferralCode = code
			return nil
		}
		if err != nil {
			return err
		}
	}

	return fmt.Errorf("referral code generation exhausted %d retries", cfg.MaxRetries)
}
