// Package permission provides the closed permission enumeration, the static
// role-to-permission fallback table, and the TTL-bound cache that keeps the
// current user's resolved permission set consistent with identity changes.
//
// # Design
//
// Permissions are a closed string enumeration with a single canonical casing.
// The resolved set for the current user is owned exclusively by [Cache];
// callers always receive copies, never the cached set itself. Repeated reads
// within the TTL window must not trigger network calls, and concurrent misses
// coalesce onto one in-flight fetch.
//
// # Architecture boundaries
//
// This package never talks to a transport directly: the fetch, fallback, and
// snapshot hooks are injected by the root package. Role resolution is a pure
// function over profile attributes and performs no I/O.
//
// # What this package must NOT do
//
//   - Grant access on unknown input: unknown roles map to the empty set and
//     unknown permissions are never members of any set.
//   - Clear last-known-good data on a failed refresh.
//   - Share the cached set by reference with callers.
package permission
