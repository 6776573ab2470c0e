// Package goPairAuth issues paired access/refresh JWTs and tracks live sessions
// in Redis.
//
// Every pair carries one token id. The id is appended to the user's session list
// when the pair is issued and removed when the refresh token is redeemed or the
// device logs out. A refresh token is therefore usable exactly once: the
// redemption that removes its id wins and every other attempt fails with
// [ErrInvalidToken].
//
// Access tokens are verified by signature and expiry alone. Logging out revokes
// the refresh side immediately; an access token keeps working until it expires.
//
// Build an [Engine] with [New]:
//
//	engine, err := goPairAuth.New().
//		WithConfig(cfg).
//		WithRedis(rdb).
//		WithUserStore(store).
//		Build()
//
// Engine methods are safe to call from multiple goroutines.
package goPairAuth
