package authsession

import (
	"context"
	"io"
	"time"

	internalaudit "github.com/adminkit/authsession/internal/audit"
	"github.com/adminkit/authsession/internal/record"
	"github.com/adminkit/authsession/permission"
)

// Credentials is the identifier/password pair passed to [Engine.Login].
type Credentials struct {
	Email    string
	Password string
}

// UserProfile is the authenticated user's identity as the engine knows it.
type UserProfile struct {
	ID                 string
	Email              string
	FirstName          string
	LastName           string
	ProfessionalStatus string
}

// Role resolves the profile's coarse role from its professional status.
func (u UserProfile) Role() permission.Role {
	return permission.ResolveRole(u.ProfessionalStatus)
}

func (u UserProfile) toRecord() record.User {
	return record.User{
		ID:                 u.ID,
		Email:              u.Email,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		ProfessionalStatus: u.ProfessionalStatus,
	}
}

func profileFromRecord(r record.User) UserProfile {
	return UserProfile{
		ID:                 r.ID,
		Email:              r.Email,
		FirstName:          r.FirstName,
		LastName:           r.LastName,
		ProfessionalStatus: r.ProfessionalStatus,
	}
}

// Session is the engine's authenticated state. All fields change together
// during adoption; callers receive copies.
type Session struct {
	AccessToken  string
	RefreshToken string
	DeviceID     string
	// ExpiresAt is the access token's expiry when the token exposes one;
	// zero means the token is opaque and treated as valid until rejected.
	ExpiresAt time.Time
	User      UserProfile
}

// TokenGrant is the token material a transport returns from login, two-factor
// verification, or refresh. User may be nil when the server does not inline
// the profile; the engine resolves it through [AuthTransport.WhoAmI].
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
}

// LoginReply is the transport-level outcome of a credential login.
type LoginReply struct {
	TwoFactorRequired bool
	Grant             *TokenGrant
}

// LoginKind discriminates the outcome of [Engine.Login].
type LoginKind uint8

const (
	// LoginAuthenticated means a session was adopted and Session is set.
	LoginAuthenticated LoginKind = iota
	// LoginTwoFactorRequired means the server demands a second factor;
	// complete with [Engine.VerifyTwoFactor].
	LoginTwoFactorRequired
)

// LoginResult is returned by [Engine.Login] and [Engine.VerifyTwoFactor].
type LoginResult struct {
	Kind    LoginKind
	Session *Session
}

// PermissionEntry is one permission grant as reported by the server. UserID
// scopes user-specific grants; an empty UserID marks a role-wide grant.
type PermissionEntry struct {
	Permission string
	UserID     string
	RoleID     int
}

// AuthTransport is the server-side contract for session lifecycle calls.
// Implementations map wire-level rejections onto the package sentinels
// ([ErrInvalidCredentials], [ErrTwoFactorInvalid], [ErrRefreshInvalid],
// [ErrSessionInvalid]) and transient failures onto [ErrTransportUnavailable].
type AuthTransport interface {
	Login(ctx context.Context, creds Credentials) (LoginReply, error)
	VerifyTwoFactor(ctx context.Context, email, code string) (TokenGrant, error)
	Refresh(ctx context.Context, refreshToken, deviceID string) (TokenGrant, error)
	WhoAmI(ctx context.Context, accessToken string) (UserProfile, error)
}

// PermissionTransport fetches the calling user's permission grants.
type PermissionTransport interface {
	FetchMyPermissions(ctx context.Context, accessToken string) ([]PermissionEntry, error)
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}
