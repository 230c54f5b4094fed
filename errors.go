package authcore

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrDuplicateKey reports a registration conflict on email or username.
	ErrDuplicateKey = errors.New("email or username already registered")
	// ErrInvalidCredentials is deliberately generic: it never reveals whether
	// the identifier or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked rejects logins during the lockout window regardless of
	// whether the submitted credentials are correct.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountNotActive rejects logins for pending, suspended, or banned accounts.
	ErrAccountNotActive = errors.New("account not active")
	// ErrInvalidTwoFactorCode reports a failed two-factor check. It does not
	// feed the lockout counter; that is reserved for credential failures.
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
	// ErrInvalidOrExpiredToken covers both email-verification and
	// password-reset tokens. Unknown and expired are indistinguishable to the
	// caller so neither case leaks.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	// ErrInvalidRefreshToken reports a refresh value that is malformed, does
	// not match the live slot, or has no live slot at all.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrNotFound reports an account lookup miss.
	ErrNotFound = errors.New("account not found")
	// ErrAlreadyVerified rejects re-sending a verification mail for an
	// account that is past pending.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrEmailThrottled reports that the per-address mail budget is exhausted.
	ErrEmailThrottled = errors.New("email sending throttled")
	// ErrPasswordReuse rejects a new password equal to the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrTwoFactorAlreadyEnabled rejects enrollment when 2FA is already on.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
	// ErrTwoFactorNotEnabled rejects 2FA operations before enrollment completes.
	ErrTwoFactorNotEnabled = errors.New("two-factor not enabled")
	// ErrValidation is the target for errors.Is checks against ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrEngineNotReady is returned when the Builder produced no usable Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError carries per-field messages for malformed caller input.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}

	names := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		names = append(names, field)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("validation failed: ")
	for i, field := range names {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s: %s", field, e.Fields[field])
	}
	return b.String()
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
