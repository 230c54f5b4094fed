package authcore

import (
	"context"

	"github.com/google/uuid"
)

// Me returns the sanitized projection of an account for the authenticated
// caller. The projection never carries the credential hash, the two-factor
// secret, or token digests.
func (e *Engine) Me(ctx context.Context, accountID uuid.UUID) (SanitizedAccount, error) {
	if e == nil {
		return SanitizedAccount{}, ErrEngineNotReady
	}

	account, err := e.store.FindByID(ctx, accountID)
	if err != nil {
		return SanitizedAccount{}, err
	}

	return Sanitize(account), nil
}

// Account returns the full record. Intended for embedders that need fields
// the sanitized projection hides; transport adapters must use Me instead.
func (e *Engine) Account(ctx context.Context, accountID uuid.UUID) (*Account, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	return e.store.FindByID(ctx, accountID)
}
