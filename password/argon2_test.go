package password

import (
	"strings"
	"testing"
)

func secureConfig() Config {
	return Config{
		Memory:      65536,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestHashAndVerify(t *testing.T) {
	hasher, err := NewHasher(secureConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=2$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification to succeed")
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	hasher, err := NewHasher(secureConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	hash, err := hasher.Hash("correct-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := hasher.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password verification to fail")
	}
}

func TestHashesAreSalted(t *testing.T) {
	hasher, err := NewHasher(secureConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	first, err := hasher.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	second, err := hasher.Hash("same-input")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if first == second {
		t.Fatal("expected distinct hashes for the same plaintext")
	}
}

func TestNeedsRehash(t *testing.T) {
	oldHasher, err := NewHasher(Config{
		Memory:      32768,
		Time:        2,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewHasher(old) error: %v", err)
	}

	hash, err := oldHasher.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	newHasher, err := NewHasher(secureConfig())
	if err != nil {
		t.Fatalf("NewHasher(new) error: %v", err)
	}

	needsRehash, err := newHasher.NeedsRehash(hash)
	if err != nil {
		t.Fatalf("NeedsRehash error: %v", err)
	}
	if !needsRehash {
		t.Fatal("expected NeedsRehash to return true for weaker hash parameters")
	}
}

func TestNeedsRehashSameConfig(t *testing.T) {
	hasher, err := NewHasher(secureConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	hash, err := hasher.Hash("same-config-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	needsRehash, err := hasher.NeedsRehash(hash)
	if err != nil {
		t.Fatalf("NeedsRehash error: %v", err)
	}
	if needsRehash {
		t.Fatal("expected NeedsRehash to return false for current parameters")
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher, err := NewHasher(secureConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	if _, err := hasher.Verify("password", "not-a-phc-hash"); err == nil {
		t.Fatal("expected malformed hash verification to fail")
	}
}

func TestVerifyWrongVersion(t *testing.T) {
	hasher, err := NewHasher(secureConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	hash, err := hasher.Hash("version-test")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	wrongVersion := strings.Replace(hash, "$v=19$", "$v=18$", 1)
	if _, err := hasher.Verify("version-test", wrongVersion); err == nil {
		t.Fatal("expected unsupported version verification to fail")
	}
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	cfg := secureConfig()
	cfg.Memory = 1024
	if _, err := NewHasher(cfg); err == nil {
		t.Fatal("expected weak memory parameter to be rejected")
	}
}
