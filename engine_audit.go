package goPairAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/goPairAuth/internal/audit"
)

const (
	auditEventRegisterSuccess       = "register_success"
	auditEventRegisterFailure       = "register_failure"
	auditEventLoginSuccess          = "login_success"
	auditEventLoginFailure          = "login_failure"
	auditEventLoginRateLimited      = "login_rate_limited"
	auditEventRefreshSuccess        = "refresh_success"
	auditEventRefreshInvalid        = "refresh_invalid"
	auditEventRefreshReplay         = "refresh_replay_detected"
	auditEventLogoutSession         = "logout_session"
	auditEventLogoutAll             = "logout_all"
	auditEventPasswordChangeSuccess = "password_change_success"
	auditEventPasswordChangeFailure = "password_change_failure"
	auditEventPasswordRehashed      = "password_rehashed"
)

// AuditErrorCode is the stable error label recorded in AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrDuplicate      AuditErrorCode = "duplicate"
	auditErrUserNotFound   AuditErrorCode = "user_not_found"
	auditErrBadCredentials AuditErrorCode = "bad_credentials"
	auditErrInvalidToken   AuditErrorCode = "invalid_token"
	auditErrRateLimited    AuditErrorCode = "rate_limited"
	auditErrPasswordReuse  AuditErrorCode = "password_reuse"
	auditErrInvalidRequest AuditErrorCode = "invalid_request"
	auditErrUnavailable    AuditErrorCode = "backend_unavailable"
	auditErrInternal       AuditErrorCode = "internal_error"
)

type auditRecord struct {
	eventType string
	success   bool
	username  string
	userID    string
	tokenID   string
	err       error
	metadata  map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, rec auditRecord) {
	if e == nil || e.audit == nil {
		return
	}

	event := audit.Event{
		Timestamp: e.clock.Now().UTC(),
		EventType: rec.eventType,
		Username:  rec.username,
		UserID:    rec.userID,
		TokenID:   rec.tokenID,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   rec.success,
		Metadata:  rec.metadata,
	}
	if code := auditErrorCode(rec.err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrAlreadyExists):
		return auditErrDuplicate
	case errors.Is(err, ErrNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrBadCredentials):
		return auditErrBadCredentials
	case errors.Is(err, ErrInvalidToken):
		return auditErrInvalidToken
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrPasswordReuse):
		return auditErrPasswordReuse
	case errors.Is(err, ErrInvalidRequest):
		return auditErrInvalidRequest
	case errors.Is(err, ErrRegistryUnavailable),
		errors.Is(err, ErrUserStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
