package authsession

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/adminkit/authsession/internal/record"
	"github.com/adminkit/authsession/permission"
	"github.com/adminkit/authsession/storage"
)

// Engine is the session and authorization resolution engine. Construct with
// [Builder]; the zero value is not usable.
//
// All exported methods are safe for concurrent use. State transitions
// (adoption, invalidation, logout) are atomic: readers observe either the
// whole previous session or the whole next one.
type Engine struct {
	config  Config
	storage storage.Adapter
	auth    AuthTransport
	perms   PermissionTransport
	logger  zerolog.Logger
	audit   *auditDispatcher
	metrics *Metrics
	cache   *permission.Cache

	// redirect is the invalid-session hook. Fired at most once per
	// invalidated session, never for explicit logout.
	redirect func()
	clock    func() time.Time

	mu            sync.RWMutex
	session       *Session
	pending       *pendingChallenge
	challengeSeq  uint64
	initialized   bool
	initDone      chan struct{}
	initErr       error
	redirectFired bool
	closed        bool
}

// pendingChallenge is an open two-factor step. seq ties it to the login that
// opened it; a newer login supersedes it.
type pendingChallenge struct {
	email string
	seq   uint64
}

// Close drains the audit dispatcher and marks the engine unusable.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) ready() error {
	if e == nil || e.storage == nil || e.auth == nil {
		return ErrEngineNotReady
	}
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return ErrEngineNotReady
	}
	return nil
}

// IsAuthenticated reports whether the engine currently holds a session.
func (e *Engine) IsAuthenticated() bool {
	if e == nil {
		return false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.session != nil
}

// CurrentUser returns a copy of the authenticated user's profile.
func (e *Engine) CurrentUser() (UserProfile, bool) {
	if e == nil {
		return UserProfile{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.session == nil {
		return UserProfile{}, false
	}
	return e.session.User, true
}

// CurrentSession returns a copy of the active session.
func (e *Engine) CurrentSession() (Session, bool) {
	if e == nil {
		return Session{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.session == nil {
		return Session{}, false
	}
	return *e.session, true
}

// AuditDropped reports audit events lost to dispatcher backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot deep-copies the engine's metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	e.metrics.Inc(id)
}

// currentTokens reads the credentials the transports need without exposing
// the session itself.
func (e *Engine) currentTokens() (access, refresh, deviceID, userID string, ok bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.session == nil {
		return "", "", "", "", false
	}
	s := e.session
	return s.AccessToken, s.RefreshToken, s.DeviceID, s.User.ID, true
}

// clearPersisted removes every session key. Missing keys are not errors;
// the goal is the absence of state, not a successful delete.
func (e *Engine) clearPersisted(ctx context.Context) {
	for _, key := range storage.SessionKeys {
		if err := e.storage.Remove(ctx, key); err != nil && !errors.Is(err, storage.ErrKeyNotFound) {
			e.logger.Warn().Err(err).Str("key", key).Msg("failed to clear persisted session key")
		}
	}
}

// invalidateSession drops in-memory and persisted session state and fires
// the silent-redirect hook once. Used when the server rejects the session;
// explicit logout goes through Logout instead.
func (e *Engine) invalidateSession(ctx context.Context, reason string) {
	e.mu.Lock()
	e.session = nil
	e.pending = nil
	fire := !e.redirectFired && e.redirect != nil
	e.redirectFired = true
	e.mu.Unlock()

	e.cache.Invalidate()
	e.clearPersisted(ctx)

	e.logger.Info().Str("reason", reason).Msg("session invalidated")
	if fire {
		e.metricInc(MetricSilentRedirect)
		e.emitAudit(ctx, AuditSilentRedirect, true, "", map[string]string{"reason": reason})
		e.redirect()
	}
}

// fetchPermissions is the cache's fetch hook. It resolves the current access
// token at call time so a refresh mid-flight still authenticates.
func (e *Engine) fetchPermissions(ctx context.Context) (permission.Set, error) {
	access, _, _, userID, ok := e.currentTokens()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	entries, err := e.perms.FetchMyPermissions(ctx, access)
	if err != nil {
		e.metricInc(MetricPermissionRefreshFailure)
		return nil, err
	}

	set := permission.NewSet()
	for _, entry := range entries {
		// Role-wide grants carry no user id; anything scoped to another
		// user is not ours to hold.
		if entry.UserID != "" && entry.UserID != userID {
			continue
		}
		p := permission.Permission(entry.Permission)
		if !p.Valid() {
			e.logger.Debug().Str("permission", entry.Permission).Msg("dropping unknown permission")
			continue
		}
		set.Add(p)
	}

	e.metricInc(MetricPermissionRefreshSuccess)
	return set, nil
}

// fallbackPermissions is the cache's degraded-mode hook.
func (e *Engine) fallbackPermissions() permission.Set {
	user, ok := e.CurrentUser()
	if !ok {
		return permission.NewSet()
	}
	e.metricInc(MetricFallbackServed)
	return permission.FallbackPermissions(user.Role())
}

// persistSnapshot is the cache's persistence hook. Best-effort: a failed
// write only costs the next cold start a network round trip.
func (e *Engine) persistSnapshot(userID string, set permission.Set) {
	ctx, cancel := context.WithTimeout(context.Background(), e.config.Session.PopulateTimeout)
	defer cancel()

	raw, err := record.EncodeSnapshot(record.PermissionSnapshot{
		UserID:      userID,
		Permissions: set.Strings(),
		SavedAt:     e.clock(),
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("failed to encode permission snapshot")
		return
	}
	if err := e.storage.Set(ctx, storage.KeyUserPermissions, raw); err != nil {
		e.logger.Warn().Err(err).Msg("failed to persist permission snapshot")
	}
}
