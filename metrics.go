package authcore

import "sync/atomic"

// MetricID identifies one counter in the in-process metrics block.
type MetricID uint16

const (
	MetricRegisterSuccess MetricID = iota
	MetricRegisterDuplicate
	MetricLoginSuccess
	MetricLoginFailure
	MetricLoginLocked
	MetricLoginTwoFactorPending
	MetricTwoFactorFailure
	MetricRefreshSuccess
	MetricRefreshInvalid
	MetricLogout
	MetricEmailVerifyRequest
	MetricEmailVerifySuccess
	MetricEmailVerifyFailure
	MetricPasswordResetRequest
	MetricPasswordResetSuccess
	MetricPasswordResetFailure
	MetricPasswordChangeSuccess
	MetricPasswordChangeFailure
	MetricMailThrottled
	metricIDCount
)

// String names are stable identifiers used by the operator endpoint.
func (id MetricID) String() string {
	switch id {
	case MetricRegisterSuccess:
		return "register_success"
	case MetricRegisterDuplicate:
		return "register_duplicate"
	case MetricLoginSuccess:
		return "login_success"
	case MetricLoginFailure:
		return "login_failure"
	case MetricLoginLocked:
		return "login_locked"
	case MetricLoginTwoFactorPending:
		return "login_two_factor_pending"
	case MetricTwoFactorFailure:
		return "two_factor_failure"
	case MetricRefreshSuccess:
		return "refresh_success"
	case MetricRefreshInvalid:
		return "refresh_invalid"
	case MetricLogout:
		return "logout"
	case MetricEmailVerifyRequest:
		return "email_verify_request"
	case MetricEmailVerifySuccess:
		return "email_verify_success"
	case MetricEmailVerifyFailure:
		return "email_verify_failure"
	case MetricPasswordResetRequest:
		return "password_reset_request"
	case MetricPasswordResetSuccess:
		return "password_reset_success"
	case MetricPasswordResetFailure:
		return "password_reset_failure"
	case MetricPasswordChangeSuccess:
		return "password_change_success"
	case MetricPasswordChangeFailure:
		return "password_change_failure"
	case MetricMailThrottled:
		return "mail_throttled"
	default:
		return "unknown"
	}
}

const cacheLineSize = 64

// paddedCounter keeps each counter on its own cache line so concurrent Inc
// calls on different metrics do not false-share.
type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters. All methods are safe on a nil receiver;
// a disabled Metrics is a no-op.
type Metrics struct {
	enabled  bool
	counters [metricIDCount]paddedCounter
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// MetricsSnapshot is a point-in-time copy of every counter, keyed by the
// stable string names.
type MetricsSnapshot map[string]uint64

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := make(MetricsSnapshot, int(metricIDCount))
	if m == nil || !m.enabled {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s[id.String()] = atomic.LoadUint64(&m.counters[id].value)
	}
	return s
}
