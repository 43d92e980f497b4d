package authsession

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/adminkit/authsession/internal/record"
	"github.com/adminkit/authsession/storage"
	"github.com/adminkit/authsession/token"
)

// Login authenticates with credentials. The outcome is either an adopted
// session or an open two-factor challenge to complete with
// [Engine.VerifyTwoFactor].
//
// Concurrent logins are safe: adoption is atomic, so the final session
// matches exactly one attempt, and a newer login supersedes any two-factor
// challenge an older one left open.
func (e *Engine) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	if err := e.ready(); err != nil {
		return LoginResult{}, err
	}

	reply, err := e.auth.Login(ctx, creds)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, err.Error(), nil)
		return LoginResult{}, fmt.Errorf("login: %w", err)
	}

	if reply.TwoFactorRequired {
		e.mu.Lock()
		e.challengeSeq++
		e.pending = &pendingChallenge{email: creds.Email, seq: e.challengeSeq}
		e.mu.Unlock()

		e.metricInc(MetricTwoFactorRequired)
		e.emitAudit(ctx, AuditTwoFactorRequired, true, "", nil)
		return LoginResult{Kind: LoginTwoFactorRequired}, nil
	}

	if reply.Grant == nil || reply.Grant.AccessToken == "" {
		e.metricInc(MetricLoginFailure)
		return LoginResult{}, fmt.Errorf("login: %w", ErrSessionIncomplete)
	}

	sess, err := e.adoptSession(ctx, *reply.Grant)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailure, false, err.Error(), nil)
		return LoginResult{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLoginSuccess, true, "", nil)
	return LoginResult{Kind: LoginAuthenticated, Session: &sess}, nil
}

// VerifyTwoFactor completes the challenge opened by the most recent Login.
// A challenge superseded by a newer login, or never opened, reports
// [ErrNoPendingChallenge]. A rejected code keeps the challenge open for
// another attempt.
func (e *Engine) VerifyTwoFactor(ctx context.Context, code string) (LoginResult, error) {
	if err := e.ready(); err != nil {
		return LoginResult{}, err
	}

	e.mu.RLock()
	pending := e.pending
	e.mu.RUnlock()
	if pending == nil {
		return LoginResult{}, ErrNoPendingChallenge
	}

	grant, err := e.auth.VerifyTwoFactor(ctx, pending.email, code)
	if err != nil {
		e.metricInc(MetricTwoFactorFailure)
		e.emitAudit(ctx, AuditTwoFactorFailure, false, err.Error(), nil)
		return LoginResult{}, fmt.Errorf("two-factor: %w", err)
	}

	// Only the challenge that initiated this verification may proceed;
	// a login that raced in between owns the pending slot now. The
	// challenge is not consumed yet: adoption clears it on success, and a
	// local failure after the server accepted the code keeps it open so
	// the caller can retry without restarting login.
	e.mu.RLock()
	owned := e.pending != nil && e.pending.seq == pending.seq
	e.mu.RUnlock()
	if !owned {
		return LoginResult{}, ErrNoPendingChallenge
	}

	sess, err := e.adoptSession(ctx, grant)
	if err != nil {
		e.metricInc(MetricTwoFactorFailure)
		return LoginResult{}, err
	}

	e.metricInc(MetricTwoFactorSuccess)
	e.emitAudit(ctx, AuditTwoFactorSuccess, true, "", nil)
	return LoginResult{Kind: LoginAuthenticated, Session: &sess}, nil
}

// adoptSession turns a token grant into the active session: device id,
// expiry introspection, persistence, and in-memory installation happen as
// one transition. The returned Session is the caller's copy.
func (e *Engine) adoptSession(ctx context.Context, grant TokenGrant) (Session, error) {
	deviceID, err := e.ensureDeviceID(ctx)
	if err != nil {
		return Session{}, err
	}

	sess := Session{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		DeviceID:     deviceID,
	}
	if exp, ok := token.ExpiresAt(grant.AccessToken); ok {
		sess.ExpiresAt = exp
	}

	profileKnown := grant.User != nil
	if profileKnown {
		sess.User = *grant.User
	}

	if err := e.persistSession(ctx, sess, profileKnown); err != nil {
		// A partial write must not outlive the failed adoption; half a
		// session on disk is worse than none.
		e.clearPersisted(ctx)
		return Session{}, err
	}

	e.mu.Lock()
	identityChanged := e.session != nil && profileKnown && e.session.User.ID != sess.User.ID
	if e.session != nil && !profileKnown {
		// Refresh grants without an inline profile keep the identity we
		// already resolved.
		sess.User = e.session.User
		profileKnown = sess.User.ID != ""
	}
	e.session = &sess
	e.pending = nil
	e.redirectFired = false
	e.mu.Unlock()

	if identityChanged {
		e.cache.Invalidate()
	}

	e.populateAsync(profileKnown)
	return sess, nil
}

// ensureDeviceID returns the persisted device id, minting and persisting a
// new one when none exists. The id identifies this installation to the
// refresh endpoint and stays stable for the life of the persisted session.
func (e *Engine) ensureDeviceID(ctx context.Context) (string, error) {
	existing, err := e.storage.Get(ctx, storage.KeyDeviceID)
	if err == nil && existing != "" {
		return existing, nil
	}
	if err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
		return "", fmt.Errorf("device id: %w", err)
	}

	id := uuid.NewString()
	if err := e.storage.Set(ctx, storage.KeyDeviceID, id); err != nil {
		return "", fmt.Errorf("device id: %w", err)
	}
	return id, nil
}

func (e *Engine) persistSession(ctx context.Context, sess Session, profileKnown bool) error {
	if err := e.storage.Set(ctx, storage.KeyAccessToken, sess.AccessToken); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if sess.RefreshToken != "" {
		if err := e.storage.Set(ctx, storage.KeyRefreshToken, sess.RefreshToken); err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}
	if !profileKnown {
		return nil
	}
	raw, err := record.EncodeUser(sess.User.toRecord())
	if err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	if err := e.storage.Set(ctx, storage.KeyUserData, raw); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// populateAsync finishes session setup off the login path: it resolves the
// profile when the grant did not inline one and warms the permission cache.
// Bounded by the populate timeout; failures degrade, they do not unwind the
// adopted session.
func (e *Engine) populateAsync(profileKnown bool) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.config.Session.PopulateTimeout)
		defer cancel()

		if !profileKnown {
			if err := e.resolveProfile(ctx); err != nil {
				e.logger.Warn().Err(err).Msg("failed to resolve profile after login")
				return
			}
		}

		_, _, _, userID, ok := e.currentTokens()
		if !ok || userID == "" {
			return
		}
		if _, err := e.cache.Refresh(ctx, userID, false); err != nil {
			e.logger.Warn().Err(err).Msg("permission warmup failed")
		}
	}()
}

// resolveProfile fetches the profile for the current access token and folds
// it into the session, unless a newer session replaced it meanwhile.
func (e *Engine) resolveProfile(ctx context.Context) error {
	access, _, _, _, ok := e.currentTokens()
	if !ok {
		return ErrNotAuthenticated
	}

	user, err := e.auth.WhoAmI(ctx, access)
	if err != nil {
		return err
	}

	e.mu.Lock()
	if e.session == nil || e.session.AccessToken != access {
		e.mu.Unlock()
		return nil
	}
	e.session.User = user
	sess := *e.session
	e.mu.Unlock()

	return e.persistSession(ctx, sess, true)
}
