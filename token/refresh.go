package token

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"

	"github.com/google/uuid"

	"github.com/helixmarkets/authcore/internal"
)

// ErrMalformedRefresh reports a refresh token value that does not decode to
// the expected wire shape. It says nothing about whether a well-formed token
// is actually live; that is the store's call.
var ErrMalformedRefresh = errors.New("malformed refresh token")

// NewRefresh mints an opaque refresh token bound to accountID. The returned
// value goes to the caller; only the digest may be persisted. The value embeds
// the account id so verification can find the stored digest without a
// secondary index.
func NewRefresh(accountID uuid.UUID) (value string, digest string, err error) {
	secret, err := internal.NewRefreshSecret()
	if err != nil {
		return "", "", err
	}

	sum := internal.HashRefreshSecret(secret)
	return internal.EncodeRefreshToken(accountID, secret), hex.EncodeToString(sum[:]), nil
}

// ParseRefresh decodes a presented refresh token into the account id it
// claims and the digest of its secret half. Callers must still compare the
// digest against the stored one with DigestEqual.
func ParseRefresh(value string) (accountID uuid.UUID, digest string, err error) {
	id, secret, err := internal.DecodeRefreshToken(value)
	if err != nil {
		return uuid.Nil, "", ErrMalformedRefresh
	}

	sum := internal.HashRefreshSecret(secret)
	return uuid.UUID(id), hex.EncodeToString(sum[:]), nil
}

// DigestEqual compares two hex digests in constant time.
func DigestEqual(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
