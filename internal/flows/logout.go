package flows

import (
	"context"

	"github.com/MrEthical07/goPairAuth/jwt"
)

// LogoutFailureKind classifies logout flow failures for root-level mapping.
type LogoutFailureKind int

const (
	LogoutFailureNone LogoutFailureKind = iota
	LogoutFailureInvalidToken
	LogoutFailureRegistry
)

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	ValidateAccess func(string) (*jwt.Claims, error)
	Registry       SessionRegistry
}

// LogoutResult reports the outcome of a logout.
type LogoutResult struct {
	Failure  LogoutFailureKind
	Err      error
	Username string
	TokenID  string
	// Removed is false when the device was already logged out.
	Removed bool
}

// RunLogoutCurrent revokes the session the access token belongs to. The access
// token itself stays cryptographically valid until it expires.
func RunLogoutCurrent(ctx context.Context, accessToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.ValidateAccess(accessToken)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureInvalidToken, Err: err}
	}

	removed, err := deps.Registry.Remove(ctx, claims.Subject, claims.TokenID)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureRegistry, Err: err, Username: claims.Subject, TokenID: claims.TokenID}
	}

	return LogoutResult{
		Failure:  LogoutFailureNone,
		Username: claims.Subject,
		TokenID:  claims.TokenID,
		Removed:  removed,
	}
}

// RunLogoutAll revokes every session of the access token's subject.
func RunLogoutAll(ctx context.Context, accessToken string, deps LogoutDeps) LogoutResult {
	claims, err := deps.ValidateAccess(accessToken)
	if err != nil {
		return LogoutResult{Failure: LogoutFailureInvalidToken, Err: err}
	}

	if err := deps.Registry.RemoveAll(ctx, claims.Subject); err != nil {
		return LogoutResult{Failure: LogoutFailureRegistry, Err: err, Username: claims.Subject, TokenID: claims.TokenID}
	}

	return LogoutResult{
		Failure:  LogoutFailureNone,
		Username: claims.Subject,
		TokenID:  claims.TokenID,
		Removed:  true,
	}
}
