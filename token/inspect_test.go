package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func TestExpiresAtReadsExpClaim(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := mint(t, jwt.MapClaims{"sub": "u-1", "exp": exp.Unix()})

	got, ok := ExpiresAt(raw)
	if !ok {
		t.Fatal("expected inspectable token")
	}
	if !got.Equal(exp) {
		t.Fatalf("ExpiresAt = %v, want %v", got, exp)
	}
}

func TestExpiresAtWithoutExpClaim(t *testing.T) {
	raw := mint(t, jwt.MapClaims{"sub": "u-1"})
	if _, ok := ExpiresAt(raw); ok {
		t.Fatal("token without exp must report not-ok")
	}
}

func TestExpiresAtOpaqueToken(t *testing.T) {
	for _, raw := range []string{"", "not-a-jwt", "a.b", "a.b.c"} {
		if _, ok := ExpiresAt(raw); ok {
			t.Fatalf("opaque token %q must report not-ok", raw)
		}
	}
}

func TestRemainingLifetime(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	raw := mint(t, jwt.MapClaims{"exp": now.Add(30 * time.Minute).Unix()})

	d, ok := RemainingLifetime(raw, now)
	if !ok || d != 30*time.Minute {
		t.Fatalf("RemainingLifetime = (%v, %v), want (30m, true)", d, ok)
	}

	// Expired tokens are inspectable with zero remaining lifetime.
	d, ok = RemainingLifetime(raw, now.Add(time.Hour))
	if !ok || d != 0 {
		t.Fatalf("expired token = (%v, %v), want (0, true)", d, ok)
	}

	if _, ok := RemainingLifetime("opaque", now); ok {
		t.Fatal("opaque token must report not-ok")
	}
}
