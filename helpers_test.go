package authsession

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adminkit/authsession/storage"
)

type fakeAuth struct {
	mu sync.Mutex

	loginFn   func(creds Credentials) (LoginReply, error)
	verifyFn  func(email, code string) (TokenGrant, error)
	refreshFn func(refreshToken, deviceID string) (TokenGrant, error)
	whoamiFn  func(accessToken string) (UserProfile, error)

	loginCalls   int
	verifyCalls  int
	refreshCalls int
	whoamiCalls  int
}

func (f *fakeAuth) Login(_ context.Context, creds Credentials) (LoginReply, error) {
	f.mu.Lock()
	f.loginCalls++
	fn := f.loginFn
	f.mu.Unlock()
	if fn == nil {
		return LoginReply{}, ErrInvalidCredentials
	}
	return fn(creds)
}

func (f *fakeAuth) VerifyTwoFactor(_ context.Context, email, code string) (TokenGrant, error) {
	f.mu.Lock()
	f.verifyCalls++
	fn := f.verifyFn
	f.mu.Unlock()
	if fn == nil {
		return TokenGrant{}, ErrTwoFactorInvalid
	}
	return fn(email, code)
}

func (f *fakeAuth) Refresh(_ context.Context, refreshToken, deviceID string) (TokenGrant, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.mu.Unlock()
	if fn == nil {
		return TokenGrant{}, ErrRefreshInvalid
	}
	return fn(refreshToken, deviceID)
}

func (f *fakeAuth) WhoAmI(_ context.Context, accessToken string) (UserProfile, error) {
	f.mu.Lock()
	f.whoamiCalls++
	fn := f.whoamiFn
	f.mu.Unlock()
	if fn == nil {
		return UserProfile{}, ErrSessionInvalid
	}
	return fn(accessToken)
}

func (f *fakeAuth) calls() (login, verify, refresh, whoami int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.verifyCalls, f.refreshCalls, f.whoamiCalls
}

type fakePerms struct {
	mu      sync.Mutex
	fetchFn func(accessToken string) ([]PermissionEntry, error)
	calls   int
}

func (f *fakePerms) FetchMyPermissions(_ context.Context, accessToken string) ([]PermissionEntry, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fetchFn
	f.mu.Unlock()
	if fn == nil {
		return nil, ErrTransportUnavailable
	}
	return fn(accessToken)
}

func (f *fakePerms) fetchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// flakyStore delegates to a memory adapter but fails writes for selected
// keys, simulating a backend that dies mid-sequence.
type flakyStore struct {
	*storage.MemoryAdapter
	mu   sync.Mutex
	fail map[string]bool
}

func newFlakyStore(inner *storage.MemoryAdapter) *flakyStore {
	return &flakyStore{MemoryAdapter: inner, fail: make(map[string]bool)}
}

func (s *flakyStore) failKey(key string, fail bool) {
	s.mu.Lock()
	s.fail[key] = fail
	s.mu.Unlock()
}

func (s *flakyStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	fail := s.fail[key]
	s.mu.Unlock()
	if fail {
		return storage.ErrUnavailable
	}
	return s.MemoryAdapter.Set(ctx, key, value)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// testToken mints an HS256 token whose only meaningful claim is exp.
func testToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return signed
}

var testUser = UserProfile{
	ID:                 "u-1",
	Email:              "alice@example.com",
	FirstName:          "Alice",
	ProfessionalStatus: "teacher",
}

func testEntries() []PermissionEntry {
	return []PermissionEntry{
		{Permission: "can_view_user"},
		{Permission: "can_view_blog", UserID: "u-1"},
		{Permission: "can_manage_blog", UserID: "u-1"},
	}
}

type testEnv struct {
	engine *Engine
	auth   *fakeAuth
	perms  *fakePerms
	store  *storage.MemoryAdapter
	clock  *fakeClock
}

func grantFor(t *testing.T, clock *fakeClock, user *UserProfile) TokenGrant {
	t.Helper()
	return TokenGrant{
		AccessToken:  testToken(t, clock.Now().Add(time.Hour)),
		RefreshToken: "refresh-1",
		User:         user,
	}
}

func newTestEnv(t *testing.T, mutate func(*testEnv, *Builder)) *testEnv {
	t.Helper()

	env := &testEnv{
		auth:  &fakeAuth{},
		perms: &fakePerms{},
		store: storage.NewMemoryAdapter(),
		clock: newFakeClock(),
	}
	env.auth.loginFn = func(creds Credentials) (LoginReply, error) {
		if creds.Password != "correct-horse" {
			return LoginReply{}, ErrInvalidCredentials
		}
		user := testUser
		grant := grantFor(t, env.clock, &user)
		return LoginReply{Grant: &grant}, nil
	}
	env.perms.fetchFn = func(string) ([]PermissionEntry, error) {
		return testEntries(), nil
	}

	cfg := defaultConfig()
	cfg.Session.PopulateTimeout = 2 * time.Second
	cfg.Breaker.Enabled = false

	b := New().
		WithConfig(cfg).
		WithStorage(env.store).
		WithAuthTransport(env.auth).
		WithPermissionTransport(env.perms).
		WithClock(env.clock.Now)
	if mutate != nil {
		mutate(env, b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

// waitFor polls cond with a real-time deadline; background population is
// asynchronous even under the fake clock.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func mustLogin(t *testing.T, env *testEnv) {
	t.Helper()
	res, err := env.engine.Login(context.Background(), Credentials{Email: testUser.Email, Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Kind != LoginAuthenticated {
		t.Fatalf("expected authenticated login, got kind %d", res.Kind)
	}
}

func warmPermissions(t *testing.T, env *testEnv) {
	t.Helper()
	waitFor(t, func() bool {
		_, ok := env.engine.Permissions()
		return ok
	}, "permission cache warmup")
}
