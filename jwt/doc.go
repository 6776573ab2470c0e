// Package jwt issues and verifies the signed access/refresh token pairs used by
// goPairAuth.
//
// Both halves of a pair share one random token id (the JWT "jti"). Access tokens
// carry the user id and roles; refresh tokens carry only the subject and the id.
// The "tokenType" claim discriminates the two and [Codec.Validate] rejects a token
// presented where the other type is expected.
//
// # Architecture boundaries
//
// This package is pure: no Redis, no user lookup, no logging. Every validation
// failure collapses into [ErrInvalidToken] so callers cannot build an oracle from
// the failure reason.
//
// # What this package must NOT do
//
//   - Import goPairAuth, session, or any storage package.
//   - Read the wall clock directly (use the configured [Clock]).
package jwt
