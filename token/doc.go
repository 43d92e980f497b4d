// Package token inspects access tokens without verifying them.
//
// The engine is a client of the authorization server, not a verifier: it
// never holds signing keys and must not pretend to validate signatures. The
// only claim it reads is the expiry, used to schedule refreshes. Everything
// else in the token is opaque.
package token
