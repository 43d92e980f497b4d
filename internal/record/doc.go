// Package record defines the wire shapes persisted by the engine and the
// codec that reads them back.
//
// Persisted state outlives process restarts and library upgrades, so decoding
// is strict: a record that does not parse or does not validate surfaces
// [ErrCorrupt], and the caller purges it rather than trusting partial data.
//
// # What this package must NOT do
//
//   - Touch storage. It only encodes and decodes values handed to it.
//   - Repair corrupt records. Detection is its whole contract.
package record
