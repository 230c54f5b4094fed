package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

const (
	refreshTokenRawSize = 48
	refreshSecretSize   = 32
	mailTokenRawSize    = 32
)

// NewMailToken generates an opaque single-use token for email verification and
// password reset links. It returns the plaintext value handed to the mailer and
// the hex digest that is safe to persist.
func NewMailToken() (value string, digest string, err error) {
	var raw [mailTokenRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", "", err
	}
	value = base64.RawURLEncoding.EncodeToString(raw[:])
	return value, DigestString(value), nil
}

// DigestString hashes a presented token value the same way NewMailToken does,
// so lookups compare digests without ever persisting the plaintext.
func DigestString(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

func NewRefreshSecret() ([refreshSecretSize]byte, error) {
	var secret [refreshSecretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

func HashRefreshSecret(secret [refreshSecretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

func EncodeRefreshToken(accountID [16]byte, secret [refreshSecretSize]byte) string {
	var raw [refreshTokenRawSize]byte
	copy(raw[:len(accountID)], accountID[:])
	copy(raw[len(accountID):], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:])
}

func DecodeRefreshToken(token string) ([16]byte, [refreshSecretSize]byte, error) {
	var id [16]byte
	var secret [refreshSecretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return id, secret, err
	}
	if len(raw) != refreshTokenRawSize {
		return id, secret, errors.New("invalid refresh token size")
	}

	copy(id[:], raw[:len(id)])
	copy(secret[:], raw[len(id):])

	return id, secret, nil
}

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ReferralSuffix returns n uniformly random characters from the uppercase
// alphanumeric alphabet.
func ReferralSuffix(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("invalid referral suffix length")
	}

	var b strings.Builder
	b.Grow(n)

	max := big.NewInt(int64(len(referralAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(referralAlphabet[idx.Int64()])
	}

	return b.String(), nil
}
