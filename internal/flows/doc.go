// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunRegister, RunLogin, RunRefresh, RunLogoutCurrent, ...)
// accepts a typed dependency struct and returns a result carrying a failure kind.
// The Engine maps failure kinds to its public sentinel errors, metrics, and audit
// events, which keeps this package free of root imports.
//
// # Architecture boundaries
//
// Flow functions coordinate the token codec, the session registry, and the user
// store through function fields and small interfaces. They do NOT own any of these
// resources; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import goPairAuth (to avoid import cycles).
//   - Perform I/O directly; all I/O is mediated through dependency fields.
package flows
