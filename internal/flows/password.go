package flows

import (
	"context"

	"github.com/MrEthical07/goPairAuth/jwt"
)

// ChangePasswordFailureKind classifies change-password failures for root-level mapping.
type ChangePasswordFailureKind int

const (
	ChangePasswordFailureNone ChangePasswordFailureKind = iota
	ChangePasswordFailureInvalidToken
	ChangePasswordFailureNotFound
	ChangePasswordFailureLookup
	ChangePasswordFailureBadCredentials
	ChangePasswordFailureVerify
	ChangePasswordFailureReuse
	ChangePasswordFailureHash
	ChangePasswordFailureUpdate
	ChangePasswordFailureRegistry
)

// ChangePasswordResult reports the outcome of a password change.
type ChangePasswordResult struct {
	Failure  ChangePasswordFailureKind
	Err      error
	Username string
}

// ChangePasswordDeps captures change-password flow dependencies.
type ChangePasswordDeps struct {
	ValidateAccess     func(string) (*jwt.Claims, error)
	FindAccount        func(context.Context, string) (Account, error)
	IsNotFound         func(error) bool
	VerifyPassword     func(raw, encoded string) (bool, error)
	HashPassword       func(string) (string, error)
	UpdatePasswordHash func(ctx context.Context, username, hash string) error
	Registry           SessionRegistry
}

// RunChangePassword verifies the current password, stores a hash of the new one,
// and revokes every session so other devices must log in again.
func RunChangePassword(ctx context.Context, accessToken, oldPassword, newPassword string, deps ChangePasswordDeps) ChangePasswordResult {
	claims, err := deps.ValidateAccess(accessToken)
	if err != nil {
		return ChangePasswordResult{Failure: ChangePasswordFailureInvalidToken, Err: err}
	}
	username := claims.Subject

	account, err := deps.FindAccount(ctx, username)
	if err != nil {
		if deps.IsNotFound != nil && deps.IsNotFound(err) {
			return ChangePasswordResult{Failure: ChangePasswordFailureNotFound, Err: err, Username: username}
		}
		return ChangePasswordResult{Failure: ChangePasswordFailureLookup, Err: err, Username: username}
	}

	ok, err := deps.VerifyPassword(oldPassword, account.PasswordHash)
	if err != nil {
		return ChangePasswordResult{Failure: ChangePasswordFailureVerify, Err: err, Username: username}
	}
	if !ok {
		return ChangePasswordResult{Failure: ChangePasswordFailureBadCredentials, Username: username}
	}
	if oldPassword == newPassword {
		return ChangePasswordResult{Failure: ChangePasswordFailureReuse, Username: username}
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return ChangePasswordResult{Failure: ChangePasswordFailureHash, Err: err, Username: username}
	}
	if err := deps.UpdatePasswordHash(ctx, username, hash); err != nil {
		return ChangePasswordResult{Failure: ChangePasswordFailureUpdate, Err: err, Username: username}
	}

	if err := deps.Registry.RemoveAll(ctx, username); err != nil {
		return ChangePasswordResult{Failure: ChangePasswordFailureRegistry, Err: err, Username: username}
	}

	return ChangePasswordResult{Failure: ChangePasswordFailureNone, Username: username}
}
