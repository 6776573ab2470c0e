package goPairAuth

import (
	"errors"

	"github.com/MrEthical07/goPairAuth/jwt"
	"github.com/MrEthical07/goPairAuth/session"
)

var (
	// ErrAlreadyExists is returned by Register when the username is taken.
	ErrAlreadyExists = errors.New("user already exists")
	// ErrNotFound is returned when the named user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrBadCredentials is returned when a password does not match.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrInvalidToken covers every token rejection: malformed, forged, expired,
	// wrong type, or already redeemed. Callers cannot tell these apart.
	ErrInvalidToken = jwt.ErrInvalidToken
	// ErrRegistryUnavailable wraps session registry transport failures.
	ErrRegistryUnavailable = session.ErrRegistryUnavailable
	// ErrLoginRateLimited is returned while a username or IP is in login cooldown.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrPasswordReuse is returned when a new password equals the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrInvalidRequest is returned for empty usernames or passwords.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUserStoreUnavailable wraps user store failures other than not-found and conflicts.
	ErrUserStoreUnavailable = errors.New("user store unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
