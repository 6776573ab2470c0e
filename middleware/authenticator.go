package middleware

import (
	"context"
	"strings"

	goPairAuth "github.com/MrEthical07/goPairAuth"
	"github.com/MrEthical07/goPairAuth/internal/logx"
	"github.com/MrEthical07/goPairAuth/jwt"
)

const (
	DefaultHeaderName = "Authorization"
	DefaultPrefix     = "Bearer"
)

// Config selects where the access token is read from.
type Config struct {
	HeaderName string
	Prefix     string
}

// Verifier checks an access token without any I/O.
type Verifier interface {
	ValidateAccess(token string) (*jwt.Claims, error)
}

// Resolver loads the live identity behind validated claims.
type Resolver interface {
	ResolveIdentity(ctx context.Context, claims *jwt.Claims) (goPairAuth.Identity, error)
}

// Authenticator turns a header value into an Identity. It never consults the
// session registry, so a logged-out access token stays usable until it expires.
type Authenticator struct {
	header   string
	prefix   string
	verifier Verifier
	resolver Resolver
}

// NewAuthenticator returns an Authenticator. *goPairAuth.Engine satisfies
// both Verifier and Resolver.
func NewAuthenticator(cfg Config, verifier Verifier, resolver Resolver) *Authenticator {
	if strings.TrimSpace(cfg.HeaderName) == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if strings.TrimSpace(cfg.Prefix) == "" {
		cfg.Prefix = DefaultPrefix
	}
	return &Authenticator{
		header:   cfg.HeaderName,
		prefix:   cfg.Prefix + " ",
		verifier: verifier,
		resolver: resolver,
	}
}

// HeaderName reports the header the Authenticator reads.
func (a *Authenticator) HeaderName() string { return a.header }

// Authenticate returns the identity for headerValue, which must be exactly
// "<prefix> <token>". Any failure yields false.
func (a *Authenticator) Authenticate(ctx context.Context, headerValue string) (goPairAuth.Identity, bool) {
	if a == nil || a.verifier == nil || a.resolver == nil {
		return goPairAuth.Identity{}, false
	}

	token, ok := a.Token(headerValue)
	if !ok {
		return goPairAuth.Identity{}, false
	}

	claims, err := a.verifier.ValidateAccess(token)
	if err != nil {
		return goPairAuth.Identity{}, false
	}

	id, err := a.resolver.ResolveIdentity(ctx, claims)
	if err != nil {
		logx.FromContext(ctx).Debug("access token subject not resolved",
			"username", claims.Subject, "err", err)
		return goPairAuth.Identity{}, false
	}
	return id, true
}

// Token extracts the raw token from a "<prefix> <token>" header value.
func (a *Authenticator) Token(value string) (string, bool) {
	if a == nil {
		return "", false
	}
	if !strings.HasPrefix(value, a.prefix) {
		return "", false
	}
	token := value[len(a.prefix):]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
