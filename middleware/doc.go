// Package middleware authenticates inbound HTTP requests from their access
// token.
//
// [Guard] reads the configured header (Authorization by default), validates
// the token with the Engine and re-resolves the user so the Identity carries
// current roles. It never reads the session registry. [RequireAuth] and
// [RequireRole] then reject with 401 or 403.
//
//	auth := middleware.NewAuthenticator(middleware.Config{}, engine, engine)
//	mux.Handle("/me", middleware.Guard(auth)(middleware.RequireAuth(me)))
package middleware
