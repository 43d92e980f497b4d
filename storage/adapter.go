package storage

import (
	"context"
	"errors"
)

// Persisted key namespace. Stable across versions for cross-version session
// survival; renaming any of these keys strands previously persisted sessions.
const (
	KeyAccessToken     = "access_token"
	KeyRefreshToken    = "refresh_token"
	KeyDeviceID        = "device_id"
	KeyUserData        = "user_data"
	KeyUserPermissions = "user_permissions"
)

// SessionKeys lists every key the engine persists for one session, in the
// order they are cleared on logout.
var SessionKeys = []string{
	KeyAccessToken,
	KeyRefreshToken,
	KeyDeviceID,
	KeyUserData,
	KeyUserPermissions,
}

// ErrKeyNotFound is returned by [Adapter.Get] when the key has no value.
var ErrKeyNotFound = errors.New("storage: key not found")

// ErrUnavailable wraps backend I/O failures (connection refused, disk error).
var ErrUnavailable = errors.New("storage: backend unavailable")

// Adapter is the engine's only persistence dependency besides the network
// transports. Implementations must treat values as opaque strings and must
// return [ErrKeyNotFound] (not an empty value) for missing keys.
type Adapter interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
