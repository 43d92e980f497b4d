// Package storage provides the durable key-value persistence adapters used by
// the session engine to survive process restarts.
//
// # Design
//
// The engine reads and writes opaque string blobs under a small, stable key
// namespace (access_token, refresh_token, device_id, user_data,
// user_permissions). The namespace must not change between versions: a session
// persisted by an older build has to hydrate under a newer one.
//
// # Architecture boundaries
//
// This package owns nothing but byte persistence. It never inspects, decodes,
// or validates the values it stores; record encoding and validation live in
// internal/record, and all session semantics live in the root package.
package storage
