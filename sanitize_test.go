package authcore

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSanitizeOmitsCredentialMaterial(t *testing.T) {
	now := time.Now()
	account := &Account{
		ID:                uuid.New(),
		Email:             "alice@example.com",
		Username:          "alice",
		PasswordHash:      "$argon2id$super-secret-hash",
		Status:            StatusActive,
		Tier:              TierBronze,
		TwoFactorSecret:   "JBSWY3DPEHPK3PXP",
		TwoFactorEnabled:  true,
		ReferralCode:      "ALI123456",
		ResetTokenDigest:  "reset-digest",
		ResetTokenExpiry:  &now,
		VerifyTokenDigest: "verify-digest",
		VerifyTokenExpiry: &now,
		CreatedAt:         now,
	}

	payload, err := json.Marshal(Sanitize(account))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	body := string(payload)
	for _, secret := range []string{"super-secret-hash", "JBSWY3DPEHPK3PXP", "reset-digest", "verify-digest"} {
		if strings.Contains(body, secret) {
			t.Errorf("sanitized payload leaks %q", secret)
		}
	}

	if !strings.Contains(body, `"email":"alice@example.com"`) {
		t.Error("email missing from sanitized payload")
	}
	if !strings.Contains(body, `"two_factor_enabled":true`) {
		t.Error("two_factor_enabled missing from sanitized payload")
	}
}

func TestSanitizeCopiesSlices(t *testing.T) {
	account := &Account{Roles: []string{"user"}}

	s := Sanitize(account)
	s.Roles[0] = "admin"

	if account.Roles[0] != "user" {
		t.Fatal("sanitized projection aliases the account's role slice")
	}
}
