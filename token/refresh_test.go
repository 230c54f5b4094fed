package token

import (
	"testing"

	"github.com/google/uuid"
)

func TestRefreshRoundTrip(t *testing.T) {
	accountID := uuid.New()

	value, digest, err := NewRefresh(accountID)
	if err != nil {
		t.Fatalf("new refresh: %v", err)
	}

	gotID, gotDigest, err := ParseRefresh(value)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if gotID != accountID {
		t.Fatalf("account id mismatch: got %s want %s", gotID, accountID)
	}
	if !DigestEqual(gotDigest, digest) {
		t.Fatal("expected digests to match")
	}
}

func TestRefreshValuesAreUnique(t *testing.T) {
	accountID := uuid.New()

	first, firstDigest, err := NewRefresh(accountID)
	if err != nil {
		t.Fatalf("new refresh: %v", err)
	}
	second, secondDigest, err := NewRefresh(accountID)
	if err != nil {
		t.Fatalf("new refresh: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct token values")
	}
	if DigestEqual(firstDigest, secondDigest) {
		t.Fatal("expected distinct digests")
	}
}

func TestParseRefreshRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"not-base64!!",
		"dG9vLXNob3J0",
	}
	for _, value := range cases {
		if _, _, err := ParseRefresh(value); err == nil {
			t.Fatalf("expected %q to be rejected", value)
		}
	}
}

func TestDigestEqualLengthMismatch(t *testing.T) {
	if DigestEqual("abcd", "abc") {
		t.Fatal("expected length mismatch to compare unequal")
	}
}
