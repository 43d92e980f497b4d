package authsession

import "errors"

var (
	// ErrEngineNotReady is returned when an operation runs before Build
	// completed or after Close.
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrInvalidCredentials is returned by transports when the server
	// rejects the identifier/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNoPendingChallenge is returned by VerifyTwoFactor when no login
	// left a two-factor challenge open, or a newer login superseded it.
	ErrNoPendingChallenge = errors.New("no pending two-factor challenge")
	// ErrTwoFactorInvalid is returned by transports when the server rejects
	// a two-factor code.
	ErrTwoFactorInvalid = errors.New("invalid two-factor code")
	// ErrNotAuthenticated is returned by operations that require an active
	// session when none exists.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionInvalid is returned by transports when the server no longer
	// recognizes the session's tokens.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrSessionIncomplete marks persisted or transport state that is
	// missing required parts and cannot form a session.
	ErrSessionIncomplete = errors.New("session state incomplete")
	// ErrRefreshInvalid is returned by transports when the refresh token is
	// rejected. The engine treats the whole session as invalid.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrTransportUnavailable marks transient transport failures. Session
	// state is preserved so the operation can be retried.
	ErrTransportUnavailable = errors.New("transport unavailable")
)
