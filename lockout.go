package authcore

import "time"

// The lockout policy is a small state machine over two Account fields:
// LoginAttempts and LockUntil. It only computes new state; persisting the
// mutated account is the engine's job. Counting is read-modify-write and
// therefore approximate under concurrent logins for the same account; the
// store stays authoritative and the window still closes.

// isLocked reports whether the account rejects logins at now.
func isLocked(a *Account, now time.Time) bool {
	return a.LockUntil != nil && a.LockUntil.After(now)
}

// registerLoginFailure applies one failed credential check. A failure after
// the lock window has passed restarts the counter at 1 instead of continuing
// to increment. Reaching the attempt ceiling starts a fresh lock window.
func registerLoginFailure(a *Account, cfg LockoutConfig, now time.Time) {
	if a.LockUntil != nil && !a.LockUntil.After(now) {
		a.LoginAttempts = 1
		a.LockUntil = nil
		return
	}

	a.LoginAttempts++
	if a.LoginAttempts >= cfg.MaxAttempts && a.LockUntil == nil {
		until := now.Add(cfg.LockDuration)
		a.LockUntil = &until
	}
}

// clearLockout resets the counter and the window after a fully successful
// login. Runs only once the login reaches token issue, never earlier.
func clearLockout(a *Account) {
	a.LoginAttempts = 0
	a.LockUntil = nil
}
