package authsession

import (
	"context"
	"errors"
	"fmt"

	"github.com/adminkit/authsession/internal/record"
	"github.com/adminkit/authsession/permission"
	"github.com/adminkit/authsession/storage"
	"github.com/adminkit/authsession/token"
)

// Initialize recovers a persisted session, if any. Call once at startup;
// the call is idempotent and concurrent callers share one recovery pass.
//
// A complete, still-valid persisted session is restored without any network
// round trip. An expired access token is refreshed through the transport; a
// missing or corrupt profile is re-resolved through WhoAmI. A session the
// server rejects is purged and the silent-redirect hook fires once. Only
// transient failures (storage or transport outage) return an error, and they
// leave the engine uninitialized so a later call retries.
func (e *Engine) Initialize(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.initialized {
		e.mu.Unlock()
		return nil
	}
	if e.initDone != nil {
		ch := e.initDone
		e.mu.Unlock()
		select {
		case <-ch:
			e.mu.RLock()
			err := e.initErr
			e.mu.RUnlock()
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	ch := make(chan struct{})
	e.initDone = ch
	e.mu.Unlock()

	err := e.recoverSession(ctx)

	e.mu.Lock()
	e.initialized = err == nil
	e.initErr = err
	e.initDone = nil
	e.mu.Unlock()
	close(ch)

	return err
}

func (e *Engine) recoverSession(ctx context.Context) error {
	access, errAccess := e.storage.Get(ctx, storage.KeyAccessToken)
	if errAccess != nil && !errors.Is(errAccess, storage.ErrKeyNotFound) {
		return fmt.Errorf("initialize: %w", errAccess)
	}
	refresh, errRefresh := e.storage.Get(ctx, storage.KeyRefreshToken)
	if errRefresh != nil && !errors.Is(errRefresh, storage.ErrKeyNotFound) {
		return fmt.Errorf("initialize: %w", errRefresh)
	}

	if errAccess != nil && errRefresh != nil {
		// Nothing persisted; start unauthenticated.
		return nil
	}
	if errAccess != nil || errRefresh != nil || access == "" || refresh == "" {
		// Half a session is no session. Purge without firing the redirect:
		// there was never a valid session to lose.
		e.clearPersisted(ctx)
		e.metricInc(MetricSessionRecoveryFailed)
		e.emitAudit(ctx, AuditSessionRecoveryFailed, false, ErrSessionIncomplete.Error(), nil)
		return nil
	}

	user, userKnown := e.recoverProfile(ctx)

	grant := TokenGrant{AccessToken: access, RefreshToken: refresh}
	if userKnown {
		grant.User = &user
	}

	if exp, ok := token.ExpiresAt(access); ok && !exp.After(e.clock()) {
		deviceID, _ := e.storage.Get(ctx, storage.KeyDeviceID)
		fresh, err := e.auth.Refresh(ctx, refresh, deviceID)
		switch {
		case err == nil:
			grant.AccessToken = fresh.AccessToken
			if fresh.RefreshToken != "" {
				grant.RefreshToken = fresh.RefreshToken
			}
			if fresh.User != nil {
				grant.User = fresh.User
				user, userKnown = *fresh.User, true
			}
		case errors.Is(err, ErrRefreshInvalid) || errors.Is(err, ErrSessionInvalid):
			e.recoveryFailed(ctx, err)
			return nil
		default:
			return fmt.Errorf("initialize: %w", err)
		}
	}

	if !userKnown {
		resolved, err := e.auth.WhoAmI(ctx, grant.AccessToken)
		switch {
		case err == nil:
			user = resolved
			grant.User = &user
		case errors.Is(err, ErrSessionInvalid):
			e.recoveryFailed(ctx, err)
			return nil
		default:
			return fmt.Errorf("initialize: %w", err)
		}
	}

	// Hydrate before adoption so the post-adoption cache warmup finds a
	// fresh entry and skips the network entirely.
	e.hydratePermissions(ctx, user.ID)

	if _, err := e.adoptSession(ctx, grant); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	e.metricInc(MetricSessionRecovered)
	e.emitAudit(ctx, AuditSessionRecovered, true, "", nil)
	e.logger.Info().Str("user_id", user.ID).Msg("session recovered")
	return nil
}

// recoverProfile decodes the persisted profile. Corrupt records are purged
// and reported as unknown so recovery falls through to WhoAmI.
func (e *Engine) recoverProfile(ctx context.Context) (UserProfile, bool) {
	raw, err := e.storage.Get(ctx, storage.KeyUserData)
	if err != nil {
		return UserProfile{}, false
	}
	rec, err := record.DecodeUser(raw)
	if err != nil {
		e.metricInc(MetricSnapshotCorrupt)
		e.logger.Warn().Err(err).Msg("purging corrupt persisted profile")
		_ = e.storage.Remove(ctx, storage.KeyUserData)
		return UserProfile{}, false
	}
	return profileFromRecord(rec), true
}

// hydratePermissions loads the persisted permission snapshot into the cache.
// Snapshots for a different user or that fail to decode are purged.
func (e *Engine) hydratePermissions(ctx context.Context, userID string) {
	raw, err := e.storage.Get(ctx, storage.KeyUserPermissions)
	if err != nil {
		return
	}
	snap, err := record.DecodeSnapshot(raw)
	if err != nil {
		e.metricInc(MetricSnapshotCorrupt)
		e.logger.Warn().Err(err).Msg("purging corrupt permission snapshot")
		_ = e.storage.Remove(ctx, storage.KeyUserPermissions)
		return
	}
	if snap.UserID != userID {
		_ = e.storage.Remove(ctx, storage.KeyUserPermissions)
		return
	}

	set := permission.NewSet()
	for _, p := range snap.Permissions {
		set.Add(permission.Permission(p))
	}
	e.cache.Hydrate(userID, set, snap.SavedAt)
}

func (e *Engine) recoveryFailed(ctx context.Context, cause error) {
	e.metricInc(MetricSessionRecoveryFailed)
	e.emitAudit(ctx, AuditSessionRecoveryFailed, false, cause.Error(), nil)
	e.invalidateSession(ctx, "recovery rejected by server")
}

// Logout discards the session locally: in-memory state, the permission
// cache, and every persisted key. The silent-redirect hook does not fire;
// logout is the caller's own navigation.
func (e *Engine) Logout(ctx context.Context) error {
	if err := e.ready(); err != nil {
		return err
	}

	e.mu.Lock()
	var userID string
	had := e.session != nil
	if had {
		userID = e.session.User.ID
	}
	e.session = nil
	e.pending = nil
	e.redirectFired = false
	e.mu.Unlock()

	e.cache.Invalidate()
	e.clearPersisted(ctx)

	if had {
		e.metricInc(MetricLogout)
		e.emitAudit(ctx, AuditLogout, true, "", map[string]string{"user_id": userID})
		e.logger.Info().Str("user_id", userID).Msg("logged out")
	}
	return nil
}
