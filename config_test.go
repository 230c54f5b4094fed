package authcore

import (
	"crypto/ed25519"
	"testing"
	"time"
)

func validTestConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey: %v", err)
	}

	cfg := DefaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	return cfg
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with keys valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "hs256 with secret valid",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "hs256"
				c.JWT.PublicKey = nil
			},
			wantValid: true,
		},
		{
			name: "unknown signing method",
			mutate: func(c *Config) {
				c.JWT.SigningMethod = "rs256"
			},
			wantValid: false,
		},
		{
			name: "ed25519 without private key",
			mutate: func(c *Config) {
				c.JWT.PrivateKey = nil
			},
			wantValid: false,
		},
		{
			name: "zero access ttl",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 0
			},
			wantValid: false,
		},
		{
			name: "argon memory below floor",
			mutate: func(c *Config) {
				c.Password.Memory = 4 * 1024
			},
			wantValid: false,
		},
		{
			name: "min password length below eight",
			mutate: func(c *Config) {
				c.Password.MinLength = 6
			},
			wantValid: false,
		},
		{
			name: "lockout without attempts",
			mutate: func(c *Config) {
				c.Lockout.MaxAttempts = 0
			},
			wantValid: false,
		},
		{
			name: "reset ttl exceeds verification ttl",
			mutate: func(c *Config) {
				c.Reset.TokenTTL = 48 * time.Hour
			},
			wantValid: false,
		},
		{
			name: "two factor digits out of range",
			mutate: func(c *Config) {
				c.TwoFactor.Digits = 4
			},
			wantValid: false,
		},
		{
			name: "two factor bad algorithm",
			mutate: func(c *Config) {
				c.TwoFactor.Algorithm = "MD5"
			},
			wantValid: false,
		},
		{
			name: "two factor skew too wide",
			mutate: func(c *Config) {
				c.TwoFactor.Skew = 5
			},
			wantValid: false,
		},
		{
			name: "referral suffix too short",
			mutate: func(c *Config) {
				c.Referral.SuffixLength = 2
			},
			wantValid: false,
		},
		{
			name: "mail throttle zero window",
			mutate: func(c *Config) {
				c.MailThrottle.Window = 0
			},
			wantValid: false,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tc.mutate(&cfg)

			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestDefaultConfigWindows(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Lockout.MaxAttempts != 5 {
		t.Fatalf("expected 5 lockout attempts, got %d", cfg.Lockout.MaxAttempts)
	}
	if cfg.Lockout.LockDuration != 2*time.Hour {
		t.Fatalf("expected 2h lock duration, got %s", cfg.Lockout.LockDuration)
	}
	if cfg.Verification.TokenTTL != 24*time.Hour {
		t.Fatalf("expected 24h verification ttl, got %s", cfg.Verification.TokenTTL)
	}
	if cfg.Reset.TokenTTL != 10*time.Minute {
		t.Fatalf("expected 10m reset ttl, got %s", cfg.Reset.TokenTTL)
	}
}

func TestConfigCloneIsolatesKeyBytes(t *testing.T) {
	cfg := validTestConfig(t)
	cloned := cloneConfig(cfg)

	cfg.JWT.PrivateKey[0] ^= 0xff
	if cloned.JWT.PrivateKey[0] == cfg.JWT.PrivateKey[0] {
		t.Fatal("cloned config shares private key backing array")
	}
}
