package authsession

import (
	"context"
	"fmt"

	"github.com/adminkit/authsession/permission"
)

// HasPermission reports whether the current user holds p. The read is
// synchronous and never touches the network: a cache miss fails closed,
// returns false, and triggers a background refresh so a near-future read
// can succeed. Hits on degraded data answer from the cache and schedule the
// same background refresh, so reads alone converge back to live data once
// the transport recovers.
func (e *Engine) HasPermission(p permission.Permission) bool {
	userID, ok := e.currentUserID()
	if !ok {
		return false
	}

	has, hit := e.cache.Has(userID, p)
	if !hit {
		e.metricInc(MetricPermissionCacheMiss)
		e.cache.TriggerRefresh(userID)
		return false
	}
	e.metricInc(MetricPermissionCacheHit)
	// No-op while the entry is fresh; a degraded entry starts its repair here.
	e.cache.TriggerRefresh(userID)
	return has
}

// HasAnyPermission reports whether the current user holds at least one of
// the given permissions. Same fail-closed semantics as [Engine.HasPermission].
func (e *Engine) HasAnyPermission(perms ...permission.Permission) bool {
	userID, ok := e.currentUserID()
	if !ok {
		return false
	}

	set, hit := e.cache.Get(userID)
	if !hit {
		e.metricInc(MetricPermissionCacheMiss)
		e.cache.TriggerRefresh(userID)
		return false
	}
	e.metricInc(MetricPermissionCacheHit)
	e.cache.TriggerRefresh(userID)

	for _, p := range perms {
		if set.Has(p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the current user holds every given
// permission. An empty argument list reports true for an authenticated user
// with any cached data.
func (e *Engine) HasAllPermissions(perms ...permission.Permission) bool {
	userID, ok := e.currentUserID()
	if !ok {
		return false
	}

	set, hit := e.cache.Get(userID)
	if !hit {
		e.metricInc(MetricPermissionCacheMiss)
		e.cache.TriggerRefresh(userID)
		return false
	}
	e.metricInc(MetricPermissionCacheHit)
	e.cache.TriggerRefresh(userID)

	for _, p := range perms {
		if !set.Has(p) {
			return false
		}
	}
	return true
}

// HasRole reports whether the current user's profile resolves to role.
// Role checks read the profile, not the permission cache, so they work even
// while permission data is still loading.
func (e *Engine) HasRole(role permission.Role) bool {
	user, ok := e.CurrentUser()
	if !ok {
		return false
	}
	return user.Role() == role
}

// Permissions returns a copy of the current user's cached permission set.
// ok is false when unauthenticated or when the cache holds no servable data.
func (e *Engine) Permissions() (permission.Set, bool) {
	userID, idOK := e.currentUserID()
	if !idOK {
		return nil, false
	}
	return e.cache.Get(userID)
}

// RefreshPermissions resolves the current user's permission set through the
// cache. With force the network is always consulted; without it a fresh
// cache entry short-circuits. The returned set is always servable, possibly
// role-derived fallback data, and err reports the underlying fetch failure.
func (e *Engine) RefreshPermissions(ctx context.Context, force bool) (permission.Set, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	userID, ok := e.currentUserID()
	if !ok {
		return nil, ErrNotAuthenticated
	}

	start := e.clock()
	set, err := e.cache.Refresh(ctx, userID, force)
	e.metrics.Observe(MetricPermissionRefreshLatency, e.clock().Sub(start))

	if err != nil {
		return set, fmt.Errorf("refresh permissions: %w", err)
	}
	return set, nil
}

func (e *Engine) currentUserID() (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.session == nil || e.session.User.ID == "" {
		return "", false
	}
	return e.session.User.ID, true
}
