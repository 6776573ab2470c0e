// Package session implements the per-user registry of live refresh-token ids.
//
// Each username maps to one Redis list. A token id is appended when a pair is
// issued, removed (first occurrence) when its refresh token is redeemed or its
// device logs out, and the whole list is dropped on logout-all. Access tokens are
// never recorded here.
//
// # Atomicity
//
// [Registry.Remove] is a single LREM with count 1, so among concurrent callers
// presenting the same id exactly one observes removed == true. Callers that must
// enforce one-time use (refresh rotation) rely on that result.
//
// # Architecture boundaries
//
// This package owns Redis key layout and list operations only. It does NOT parse
// tokens, look up users, or decide whether a missing id is an error.
//
// # What this package must NOT do
//
//   - Import goPairAuth or jwt (no upward imports).
//   - Cache registry state in process memory.
package session
