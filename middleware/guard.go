package middleware

import (
	"context"
	"net/http"
	"strings"

	goPairAuth "github.com/MrEthical07/goPairAuth"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity Guard attached to ctx.
func IdentityFromContext(ctx context.Context) (goPairAuth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(goPairAuth.Identity)
	return id, ok
}

// WithIdentity attaches id to ctx.
func WithIdentity(ctx context.Context, id goPairAuth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// Guard authenticates every request and, on success, stores the Identity in
// the request context. Requests without a valid token pass through unchanged;
// use RequireAuth to reject them.
func Guard(a *Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a != nil {
				if value := r.Header.Get(a.HeaderName()); value != "" {
					if id, ok := a.Authenticate(r.Context(), value); ok {
						r = r.WithContext(WithIdentity(r.Context(), id))
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that Guard did not authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			writeBearerError(w, "missing or invalid access token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits an authenticated caller holding at least one of roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing or invalid access token")
				return
			}
			for _, role := range roles {
				if id.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("WWW-Authenticate",
				`Bearer error="insufficient_scope", scope="`+strings.Join(roles, " ")+`"`)
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

// RFC 6750 invalid_token response.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
