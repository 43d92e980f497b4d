// Package authsession implements a client-side session and authorization
// resolution engine: credential and two-factor login, token refresh, session
// persistence and recovery across restarts, and a permission cache that backs
// a synchronous authorization facade.
//
// # Design
//
// The [Engine] owns all session state. Transports ([AuthTransport],
// [PermissionTransport]) and the persistence layer ([storage.Adapter]) are
// injected through the [Builder]; the engine itself never constructs network
// clients or opens databases. Session adoption is atomic: tokens, device id,
// and profile change together or not at all, so concurrent logins resolve to
// exactly one winner.
//
// # Architecture boundaries
//
// The engine is a client of the authorization server, not a verifier. It
// never validates token signatures and never decides what a permission
// grants; it only resolves whether the current user holds one.
//
// # What this package must NOT do
//
//   - Grant access when permission data is unavailable. Authorization reads
//     fail closed and recover in the background.
//   - Invent identity. A session with no resolvable user profile is invalid
//     and is purged, not repaired.
//   - Block the authorization facade on network I/O.
package authsession
