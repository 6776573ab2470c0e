// Package rate implements the Redis-backed failed-login throttle.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - pal:  login failures per username
//   - pali: login failures per client IP
//
// # What this package must NOT do
//
//   - Decide credential validity (the engine reports failures here).
//   - Be imported outside the goPairAuth module.
package rate
