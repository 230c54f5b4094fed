package authcore

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventRegisterSuccess         = "register_success"
	auditEventRegisterDuplicate       = "register_duplicate"
	auditEventRegisterFailure         = "register_failure"
	auditEventLoginSuccess            = "login_success"
	auditEventLoginFailure            = "login_failure"
	auditEventLoginLocked             = "login_locked"
	auditEventLoginTwoFactorPending   = "login_two_factor_pending"
	auditEventRefreshSuccess          = "refresh_success"
	auditEventRefreshInvalid          = "refresh_invalid"
	auditEventLogout                  = "logout"
	auditEventEmailVerifyRequest      = "email_verify_request"
	auditEventEmailVerifyConfirm      = "email_verify_confirm"
	auditEventPasswordResetRequest    = "password_reset_request"
	auditEventPasswordResetConfirm    = "password_reset_confirm"
	auditEventPasswordChangeSuccess   = "password_change_success"
	auditEventPasswordChangeFailure   = "password_change_failure"
	auditEventTwoFactorSetupRequested = "two_factor_setup_requested"
	auditEventTwoFactorEnabled        = "two_factor_enabled"
	auditEventTwoFactorDisabled       = "two_factor_disabled"
	auditEventTwoFactorFailure        = "two_factor_failure"
)

// AuditErrorCode is the stable identifier recorded in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountLocked      AuditErrorCode = "account_locked"
	auditErrAccountNotActive   AuditErrorCode = "account_not_active"
	auditErrTwoFactorInvalid   AuditErrorCode = "two_factor_invalid"
	auditErrInvalidToken       AuditErrorCode = "invalid_token"
	auditErrInvalidRefresh     AuditErrorCode = "invalid_refresh"
	auditErrNotFound           AuditErrorCode = "not_found"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrAlreadyVerified    AuditErrorCode = "already_verified"
	auditErrThrottled          AuditErrorCode = "throttled"
	auditErrPasswordReuse      AuditErrorCode = "password_reuse"
	auditErrValidation         AuditErrorCode = "validation"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return auditErrAccountLocked
	case errors.Is(err, ErrAccountNotActive):
		return auditErrAccountNotActive
	case errors.Is(err, ErrInvalidTwoFactorCode),
		errors.Is(err, ErrTwoFactorAlreadyEnabled),
		errors.Is(err, ErrTwoFactorNotEnabled):
		return auditErrTwoFactorInvalid
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrInvalidRefreshToken):
		return auditErrInvalidRefresh
	case errors.Is(err, ErrNotFound):
		return auditErrNotFound
	case errors.Is(err, ErrDuplicateKey):
		return auditErrDuplicate
	case errors.Is(err, ErrAlreadyVerified):
		return auditErrAlreadyVerified
	case errors.Is(err, ErrEmailThrottled):
		return auditErrThrottled
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrValidation):
		return auditErrValidation
	default:
		return auditErrInternal
	}
}
