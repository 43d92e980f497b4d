package permission

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// DefaultTTL is the freshness window for a cached permission set.
const DefaultTTL = 5 * time.Minute

// DefaultRefreshTimeout bounds a background refresh started by
// [Cache.TriggerRefresh].
const DefaultRefreshTimeout = 10 * time.Second

// FetchFunc loads the current user's permission set from the transport.
type FetchFunc func(ctx context.Context) (Set, error)

// FallbackFunc produces the role-derived permission set for the current
// profile. Called only when a refresh fails and no cached data exists.
type FallbackFunc func() Set

// PersistFunc snapshots a successfully refreshed set for cold-start
// hydration. Best-effort; implementations must not block on failure handling.
type PersistFunc func(userID string, set Set)

// Options configures a [Cache].
type Options struct {
	TTL            time.Duration
	RefreshTimeout time.Duration

	Fetch    FetchFunc
	Fallback FallbackFunc
	Persist  PersistFunc

	Clock  func() time.Time
	Logger zerolog.Logger

	// Circuit breaker around Fetch. A flapping permission endpoint trips
	// the breaker and refreshes fail fast into the fallback path.
	BreakerEnabled  bool
	BreakerFailures uint32
	BreakerOpenFor  time.Duration
}

type cacheEntry struct {
	set       Set
	userID    string
	timestamp time.Time
	ttl       time.Duration

	// degraded marks entries holding fallback or stale data. They are
	// served, but any refresh goes back to the network.
	degraded bool
}

type refreshCall struct {
	userID string
	done   chan struct{}
	set    Set
	err    error
}

// Cache is the TTL-bound, identity-keyed permission cache. It owns its entry
// exclusively: every read hands out a clone.
type Cache struct {
	opts    Options
	breaker *gobreaker.CircuitBreaker[Set]

	mu       sync.Mutex
	gen      uint64
	entry    *cacheEntry
	inflight *refreshCall
}

// NewCache creates a [Cache]. Fetch is mandatory; everything else has
// defaults ([DefaultTTL], [DefaultRefreshTimeout], time.Now, Nop logger).
func NewCache(opts Options) (*Cache, error) {
	if opts.Fetch == nil {
		return nil, errors.New("permission: fetch function required")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c := &Cache{opts: opts}
	if opts.BreakerEnabled {
		failures := opts.BreakerFailures
		if failures == 0 {
			failures = 3
		}
		openFor := opts.BreakerOpenFor
		if openFor <= 0 {
			openFor = 30 * time.Second
		}
		c.breaker = gobreaker.NewCircuitBreaker[Set](gobreaker.Settings{
			Name:        "permission-fetch",
			MaxRequests: 1,
			Timeout:     openFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
		})
	}
	return c, nil
}

func (c *Cache) now() time.Time {
	return c.opts.Clock()
}

func (c *Cache) fresh(e *cacheEntry) bool {
	return c.now().Sub(e.timestamp) < e.ttl
}

// Get returns a copy of the cached set for userID, or a miss when no entry
// exists, the entry belongs to a different user, or the entry has expired.
// Degraded entries (fallback data, stale survivors of a failed refresh) are
// served regardless of age; they are retried by the next refresh.
func (c *Cache) Get(userID string) (Set, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry
	if userID == "" || e == nil || e.userID != userID {
		return nil, false
	}
	if !e.degraded && !c.fresh(e) {
		return nil, false
	}
	return e.set.Clone(), true
}

// Has is the allocation-light membership probe used by the authorization
// facade. hit follows the same validity rules as [Cache.Get].
func (c *Cache) Has(userID string, p Permission) (has, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry
	if userID == "" || e == nil || e.userID != userID {
		return false, false
	}
	if !e.degraded && !c.fresh(e) {
		return false, false
	}
	return e.set.Has(p), true
}

// Refresh resolves the permission set for userID.
//
// Non-forced refreshes on a fresh entry return the cached data with no
// network call; this is the key performance contract. Otherwise one transport
// fetch runs; concurrent callers for the same user join the in-flight fetch
// instead of starting a duplicate. A successful fetch replaces the entry
// atomically and snapshots it through the persist hook. A failed fetch keeps
// last-known-good data (marked degraded), or installs the role fallback when
// nothing is cached; the returned set is always servable and err reports the
// underlying transport failure, if any.
func (c *Cache) Refresh(ctx context.Context, userID string, force bool) (Set, error) {
	if userID == "" {
		return nil, errors.New("permission: refresh without user identity")
	}

	c.mu.Lock()
	if !force {
		if e := c.entry; e != nil && e.userID == userID && !e.degraded && c.fresh(e) {
			set := e.set.Clone()
			c.mu.Unlock()
			return set, nil
		}
	}
	if call := c.inflight; call != nil && call.userID == userID {
		c.mu.Unlock()
		select {
		case <-call.done:
			return cloneResult(call)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	call := &refreshCall{userID: userID, done: make(chan struct{})}
	c.inflight = call
	gen := c.gen
	c.mu.Unlock()

	set, err := c.fetchThrough(ctx)
	c.complete(call, gen, userID, set, err)
	return cloneResult(call)
}

// TriggerRefresh starts a bounded background refresh unless the entry is
// already fresh or a refresh is in flight. Never blocks the caller.
func (c *Cache) TriggerRefresh(userID string) {
	if userID == "" {
		return
	}
	c.mu.Lock()
	if c.inflight != nil {
		c.mu.Unlock()
		return
	}
	if e := c.entry; e != nil && e.userID == userID && !e.degraded && c.fresh(e) {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.opts.RefreshTimeout)
		defer cancel()
		_, _ = c.Refresh(ctx, userID, false)
	}()
}

// Invalidate drops the entry entirely. Called on logout and whenever the
// authenticated user id changes; a fetch already in flight at that moment
// will not install its result.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
	c.gen++
}

// Hydrate installs a persisted snapshot, dated by savedAt so the normal TTL
// applies to it. No-op when live data already exists.
func (c *Cache) Hydrate(userID string, set Set, savedAt time.Time) {
	if userID == "" || set == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry != nil {
		return
	}
	c.entry = &cacheEntry{
		set:       set.Clone(),
		userID:    userID,
		timestamp: savedAt,
		ttl:       c.opts.TTL,
	}
}

func (c *Cache) fetchThrough(ctx context.Context) (Set, error) {
	if c.breaker == nil {
		return c.opts.Fetch(ctx)
	}
	return c.breaker.Execute(func() (Set, error) {
		return c.opts.Fetch(ctx)
	})
}

func (c *Cache) complete(call *refreshCall, gen uint64, userID string, set Set, err error) {
	defer close(call.done)

	// The fallback hook reads engine state behind its own lock; compute it
	// before taking c.mu to keep lock ordering one-way.
	var fallback Set
	if err != nil && c.opts.Fallback != nil {
		fallback = c.opts.Fallback()
	}

	now := c.now()
	c.mu.Lock()
	if c.inflight == call {
		c.inflight = nil
	}
	stale := c.gen != gen

	if err == nil {
		if set == nil {
			set = NewSet()
		}
		if !stale {
			c.entry = &cacheEntry{
				set:       set.Clone(),
				userID:    userID,
				timestamp: now,
				ttl:       c.opts.TTL,
			}
		}
		call.set = set
		c.mu.Unlock()
		if !stale && c.opts.Persist != nil {
			c.opts.Persist(userID, set.Clone())
		}
		return
	}

	if e := c.entry; e != nil && e.userID == userID {
		// Last-known-good survives the failure; marking it degraded keeps
		// it servable while forcing the next refresh back to the network.
		if !stale {
			e.degraded = true
		}
		call.set = e.set.Clone()
	} else {
		if fallback == nil {
			fallback = NewSet()
		}
		if !stale {
			c.entry = &cacheEntry{
				set:       fallback.Clone(),
				userID:    userID,
				timestamp: now,
				ttl:       c.opts.TTL,
				degraded:  true,
			}
		}
		call.set = fallback
	}
	call.err = err
	c.mu.Unlock()

	c.opts.Logger.Warn().
		Err(err).
		Str("user_id", userID).
		Msg("permission refresh failed, serving degraded data")
}

func cloneResult(call *refreshCall) (Set, error) {
	if call.set == nil {
		return nil, call.err
	}
	return call.set.Clone(), call.err
}
