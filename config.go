package authcore

import (
	"errors"
	"time"
)

// Config carries every tunable of the Engine. Instances are configured during
// initialization and treated as immutable afterwards.
type Config struct {
	JWT          JWTConfig
	Password     PasswordConfig
	Lockout      LockoutConfig
	Verification VerificationConfig
	Reset        ResetConfig
	TwoFactor    TwoFactorConfig
	Referral     ReferralConfig
	MailThrottle MailThrottleConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig shapes the consecutive-failure policy. After MaxAttempts
// failed credential checks the account rejects all logins for LockDuration.
type LockoutConfig struct {
	MaxAttempts  int
	LockDuration time.Duration
}

/*
====================================
TOKEN LIFECYCLE CONFIG
====================================
*/

type VerificationConfig struct {
	TokenTTL time.Duration
}

type ResetConfig struct {
	TokenTTL time.Duration
}

/*
====================================
TWO FACTOR CONFIG
====================================
*/

type TwoFactorConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string
	Skew      int
}

/*
====================================
REFERRAL CONFIG
====================================
*/

// ReferralConfig shapes referral code generation: a PrefixLength-character
// uppercase username prefix followed by SuffixLength random uppercase
// alphanumerics. MaxRetries bounds collision retries at creation time.
type ReferralConfig struct {
	PrefixLength int
	SuffixLength int
	MaxRetries   int
}

/*
====================================
MAIL THROTTLE CONFIG
====================================
*/

// MailThrottleConfig bounds outbound verification and reset mail per address
// inside a rolling window. Requires a Throttle implementation on the Builder;
// without one the engine sends unthrottled.
type MailThrottleConfig struct {
	MaxPerWindow int
	Window       time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration. Callers override the
// fields they care about (signing keys at minimum) and pass the result to
// [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Issuer:        "authcore",
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			MinLength:      8,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			MaxAttempts:  5,
			LockDuration: 2 * time.Hour,
		},
		Verification: VerificationConfig{
			TokenTTL: 24 * time.Hour,
		},
		Reset: ResetConfig{
			TokenTTL: 10 * time.Minute,
		},
		TwoFactor: TwoFactorConfig{
			Issuer:    "authcore",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		Referral: ReferralConfig{
			PrefixLength: 3,
			SuffixLength: 6,
			MaxRetries:   5,
		},
		MailThrottle: MailThrottleConfig{
			MaxPerWindow: 3,
			Window:       time.Hour,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 8 {
		return errors.New("Password MinLength must be >= 8")
	}

	// Lockout
	if c.Lockout.MaxAttempts < 1 {
		return errors.New("Lockout MaxAttempts must be >= 1")
	}
	if c.Lockout.LockDuration <= 0 {
		return errors.New("Lockout LockDuration must be > 0")
	}

	// Token lifecycles
	if c.Verification.TokenTTL <= 0 {
		return errors.New("Verification TokenTTL must be > 0")
	}
	if c.Reset.TokenTTL <= 0 {
		return errors.New("Reset TokenTTL must be > 0")
	}
	if c.Reset.TokenTTL > c.Verification.TokenTTL {
		return errors.New("Reset TokenTTL must not exceed Verification TokenTTL")
	}

	// Two factor
	if c.TwoFactor.Digits < 6 || c.TwoFactor.Digits > 8 {
		return errors.New("TwoFactor Digits must be between 6 and 8")
	}
	if c.TwoFactor.Period < 15 || c.TwoFactor.Period > 120 {
		return errors.New("TwoFactor Period must be between 15 and 120 seconds")
	}
	switch c.TwoFactor.Algorithm {
	case "SHA1", "SHA256", "SHA512":
	default:
		return errors.New("unsupported TwoFactor Algorithm")
	}
	if c.TwoFactor.Skew < 0 || c.TwoFactor.Skew > 2 {
		return errors.New("TwoFactor Skew must be between 0 and 2")
	}

	// Referral
	if c.Referral.PrefixLength < 1 {
		return errors.New("Referral PrefixLength must be >= 1")
	}
	if c.Referral.SuffixLength < 4 {
		return errors.New("Referral SuffixLength must be >= 4")
	}
	if c.Referral.MaxRetries < 1 {
		return errors.New("Referral MaxRetries must be >= 1")
	}

	// Mail throttle
	if c.MailThrottle.MaxPerWindow < 1 {
		return errors.New("MailThrottle MaxPerWindow must be >= 1")
	}
	if c.MailThrottle.Window <= 0 {
		return errors.New("MailThrottle Window must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
