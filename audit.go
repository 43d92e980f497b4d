package authsession

import (
	"context"

	internalaudit "github.com/adminkit/authsession/internal/audit"
)

// Audit event types emitted by the engine.
const (
	AuditLoginSuccess          = "login_success"
	AuditLoginFailure          = "login_failure"
	AuditTwoFactorRequired     = "two_factor_required"
	AuditTwoFactorSuccess      = "two_factor_success"
	AuditTwoFactorFailure      = "two_factor_failure"
	AuditRefreshSuccess        = "refresh_success"
	AuditRefreshFailure        = "refresh_failure"
	AuditLogout                = "logout"
	AuditSessionRecovered      = "session_recovered"
	AuditSessionRecoveryFailed = "session_recovery_failed"
	AuditSilentRedirect        = "silent_redirect"
)

type auditDispatcher struct {
	inner *internalaudit.Dispatcher
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	return &auditDispatcher{
		inner: internalaudit.NewDispatcher(internalaudit.Config{
			Enabled:    cfg.Enabled,
			BufferSize: cfg.BufferSize,
			DropIfFull: cfg.DropIfFull,
		}, sink),
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil {
		return
	}
	d.inner.Emit(ctx, event)
}

func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.inner.Close()
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.inner.Dropped()
}

// emitAudit fills the common envelope and hands the event to the dispatcher.
// Timestamps come from the engine clock so tests stay deterministic.
func (e *Engine) emitAudit(ctx context.Context, eventType string, success bool, errMsg string, meta map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	var userID, deviceID string
	e.mu.RLock()
	if e.session != nil {
		userID = e.session.User.ID
		deviceID = e.session.DeviceID
	}
	e.mu.RUnlock()

	e.audit.Emit(ctx, AuditEvent{
		Timestamp: e.clock(),
		EventType: eventType,
		UserID:    userID,
		DeviceID:  deviceID,
		Success:   success,
		Error:     errMsg,
		Metadata:  meta,
	})
}
