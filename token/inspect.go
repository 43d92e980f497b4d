package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ExpiresAt extracts the expiry claim from a raw JWT without verifying the
// signature. ok is false when the token does not parse, carries no exp claim,
// or carries a malformed one. A false result means the caller cannot schedule
// by expiry and should treat the token as valid until the server rejects it.
func ExpiresAt(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// RemainingLifetime reports how long the token stays valid relative to now.
// Expired or uninspectable tokens report zero with ok carrying the same
// meaning as in [ExpiresAt].
func RemainingLifetime(raw string, now time.Time) (time.Duration, bool) {
	exp, ok := ExpiresAt(raw)
	if !ok {
		return 0, false
	}
	if !exp.After(now) {
		return 0, true
	}
	return exp.Sub(now), true
}
