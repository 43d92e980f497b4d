package permission

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type cacheClock struct {
	mu  sync.Mutex
	now time.Time
}

func newCacheClock() *cacheClock {
	return &cacheClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *cacheClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *cacheClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	opts.Logger = zerolog.Nop()
	c, err := NewCache(opts)
	if err != nil {
		t.Fatalf("NewCache failed: %v", err)
	}
	return c
}

func TestRefreshCachesWithinTTL(t *testing.T) {
	clock := newCacheClock()
	var calls atomic.Int32
	c := newTestCache(t, Options{
		Clock:  clock.Now,
		Logger: zerolog.Nop(),
		Fetch: func(context.Context) (Set, error) {
			calls.Add(1)
			return NewSet(CanViewUser), nil
		},
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		set, err := c.Refresh(ctx, "u-1", false)
		if err != nil {
			t.Fatalf("Refresh failed: %v", err)
		}
		if !set.Has(CanViewUser) {
			t.Fatal("expected fetched permission")
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected 1 fetch within TTL, got %d", calls.Load())
	}

	clock.Advance(DefaultTTL + time.Second)
	if _, err := c.Refresh(ctx, "u-1", false); err != nil {
		t.Fatalf("Refresh after expiry failed: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected refetch after expiry, got %d fetches", calls.Load())
	}
}

func TestForceRefreshAlwaysFetches(t *testing.T) {
	var calls atomic.Int32
	c := newTestCache(t, Options{
		Logger: zerolog.Nop(),
		Fetch: func(context.Context) (Set, error) {
			calls.Add(1)
			return NewSet(CanViewUser), nil
		},
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.Refresh(ctx, "u-1", true); err != nil {
			t.Fatalf("forced Refresh failed: %v", err)
		}
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 forced fetches, got %d", calls.Load())
	}
}

func TestGetMissesOnWrongUserAndExpiry(t *testing.T) {
	clock := newCacheClock()
	c := newTestCache(t, Options{
		Clock:  clock.Now,
		Logger: zerolog.Nop(),
		Fetch: func(context.Context) (Set, error) {
			return NewSet(CanViewUser), nil
		},
	})
	if _, err := c.Refresh(context.Background(), "u-1", false); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if _, hit := c.Get("u-1"); !hit {
		t.Fatal("expected hit for cached user")
	}
	if _, hit := c.Get("u-2"); hit {
		t.Fatal("expected miss for another user")
	}
	if _, hit := c.Get(""); hit {
		t.Fatal("expected miss for empty user id")
	}

	clock.Advance(DefaultTTL + time.Second)
	if _, hit := c.Get("u-1"); hit {
		t.Fatal("expected miss after expiry")
	}
}

func TestConcurrentRefreshCoalesces(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	c := newTestCache(t, Options{
		Logger: zerolog.Nop(),
		Fetch: func(context.Context) (Set, error) {
			if calls.Add(1) == 1 {
				close(started)
			}
			<-release
			return NewSet(CanViewUser), nil
		},
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			set, err := c.Refresh(ctx, "u-1", false)
			if err != nil {
				t.Errorf("Refresh failed: %v", err)
				return
			}
			if !set.Has(CanViewUser) {
				t.Error("expected fetched permission")
			}
		}()
	}

	<-started
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected coalesced single fetch, got %d", got)
	}
}

func TestFailedRefreshKeepsLastKnownGoodDegraded(t *testing.T) {
	fail := atomic.Bool{}
	c := newTestCache(t, Options{
		Logger: zerolog.Nop(),
		Fetch: func(context.Context) (Set, error) {
			if fail.Load() {
				return nil, errors.New("endpoint down")
			}
			return NewSet(CanViewUser, CanViewBlog), nil
		},
	})
	ctx := context.Background()

	if _, err := c.Refresh(ctx, "u-1", false); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	fail.Store(true)
	set, err := c.Refresh(ctx, "u-1", true)
	if err == nil {
		t.Fatal("expected fetch error surfaced")
	}
	if !set.Has(CanViewBlog) {
		t.Fatal("expected last-known-good data on failure")
	}
	// Entry stays servable but degraded: reads hit, refreshes retry.
	if _, hit := c.Get("u-1"); !hit {
		t.Fatal("degraded entry must still serve")
	}

	fail.Store(false)
	if _, err := c.Refresh(ctx, "u-1", false); err != nil {
		t.Fatalf("recovery Refresh failed: %v", err)
	}
	if set, hit := c.Get("u-1"); !hit || !set.Has(CanViewUser) {
		t.Fatal("expected live data after recovery")
	}
}

func TestFailedRefreshWithEmptyCacheInstallsFallback(t *testing.T) {
	c := newTestCache(t, Options{
		Logger: zerolog.Nop(),
		Fetch: func(context.Context) (Set, error) {
			return nil, errors.New("endpoint down")
		},
		Fallback: func() Set {
			return NewSet(CanViewBlog)
		},
	})

	set, err := c.Refresh(context.Background(), "u-1", false)
	if err == nil {
		t.Fatal("expected fetch error surfaced")
	}
	if !set.Has(CanViewBlog) || set.Len() != 1 {
		t.Fatalf("expected fallback set, got %v", set.Strings())
	}
	if has, hit := c.Has("u-1", CanViewBlog); !hit || !has {
		t.Fatal("fallback entry must serve reads")
	}
}

func TestInvalidateDiscardsInFlightResult(t *testing.T) {
	release := make(chan struct{})
	c := newTestCache(t, Options{
		Logger: zerolog.Nop(),
		Fetch: func(context.Context) (Set, error) {
			<-release
			return NewSet(CanViewUser), nil
		},
	})
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = c.Refresh(ctx, "u-1", false)
	}()

	// Let the fetch start, then change identity underneath it.
	time.Sleep(10 * time.Millisecond)
	c.Invalidate()
	close(release)
	<-done

	if _, hit := c.Get("u-1"); hit {
		t.Fatal("fetch completed after Invalidate must not install its result")
	}
}

func TestHydrateRespectsTTLAndLiveData(t *testing.T) {
	clock := newCacheClock()
	c := newTestCache(t, Options{
		Clock:  clock.Now,
		Logger: zerolog.Nop(),
		Fetch: func(context.Context) (Set, error) {
			return NewSet(CanViewUser), nil
		},
	})

	c.Hydrate("u-1", NewSet(CanViewBlog), clock.Now().Add(-time.Minute))
	if set, hit := c.Get("u-1"); !hit || !set.Has(CanViewBlog) {
		t.Fatal("expected hydrated entry to serve")
	}

	// Hydration must not clobber live data.
	c.Hydrate("u-1", NewSet(CanManageBlog), clock.Now())
	if set, _ := c.Get("u-1"); set.Has(CanManageBlog) {
		t.Fatal("hydrate overwrote a live entry")
	}

	// A stale snapshot hydrates into an already-expired entry.
	c.Invalidate()
	c.Hydrate("u-1", NewSet(CanViewBlog), clock.Now().Add(-DefaultTTL-time.Minute))
	if _, hit := c.Get("u-1"); hit {
		t.Fatal("expired snapshot must not serve")
	}
}

func TestBreakerFailsFastAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestCache(t, Options{
		Logger:          zerolog.Nop(),
		BreakerEnabled:  true,
		BreakerFailures: 2,
		BreakerOpenFor:  time.Minute,
		Fetch: func(context.Context) (Set, error) {
			calls.Add(1)
			return nil, errors.New("endpoint down")
		},
		Fallback: func() Set { return NewSet(CanViewBlog) },
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := c.Refresh(ctx, "u-1", true); err == nil {
			t.Fatal("expected error while endpoint is down")
		}
	}
	// After the threshold the breaker short-circuits without calling fetch.
	if calls.Load() != 2 {
		t.Fatalf("expected 2 fetch attempts before the breaker opened, got %d", calls.Load())
	}
}

func TestRefreshRequiresUser(t *testing.T) {
	c := newTestCache(t, Options{
		Logger: zerolog.Nop(),
		Fetch: func(context.Context) (Set, error) {
			return NewSet(), nil
		},
	})
	if _, err := c.Refresh(context.Background(), "", false); err == nil {
		t.Fatal("expected error for empty user id")
	}
}
