package authsession

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/adminkit/authsession/token"
)

// Refresh exchanges the refresh token for new session tokens and adopts them.
//
// A rejected refresh token invalidates the whole session: persisted state is
// purged and the silent-redirect hook fires. A transient transport failure
// leaves the session untouched so the caller can retry.
func (e *Engine) Refresh(ctx context.Context) (Session, error) {
	if err := e.ready(); err != nil {
		return Session{}, err
	}

	_, refresh, deviceID, _, ok := e.currentTokens()
	if !ok || refresh == "" {
		return Session{}, ErrNotAuthenticated
	}

	grant, err := e.auth.Refresh(ctx, refresh, deviceID)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, AuditRefreshFailure, false, err.Error(), nil)

		if errors.Is(err, ErrRefreshInvalid) || errors.Is(err, ErrSessionInvalid) {
			e.invalidateSession(ctx, "refresh rejected")
			return Session{}, fmt.Errorf("refresh: %w", err)
		}
		return Session{}, fmt.Errorf("refresh: %w", err)
	}

	if grant.AccessToken == "" {
		e.metricInc(MetricRefreshFailure)
		return Session{}, fmt.Errorf("refresh: %w", ErrSessionIncomplete)
	}
	if grant.RefreshToken == "" {
		// Servers that do not rotate refresh tokens return only the access
		// token; the current refresh token stays valid.
		grant.RefreshToken = refresh
	}

	sess, err := e.adoptSession(ctx, grant)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		return Session{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditRefreshSuccess, true, "", nil)
	return sess, nil
}

// RefreshIfExpiring refreshes only when the access token expires within the
// given window. Tokens without a readable expiry are left alone until the
// server rejects them.
func (e *Engine) RefreshIfExpiring(ctx context.Context, window time.Duration) (refreshed bool, err error) {
	if err := e.ready(); err != nil {
		return false, err
	}

	access, _, _, _, ok := e.currentTokens()
	if !ok {
		return false, ErrNotAuthenticated
	}

	remaining, readable := token.RemainingLifetime(access, e.clock())
	if !readable || remaining > window {
		return false, nil
	}

	if _, err := e.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}
