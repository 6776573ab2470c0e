package flows

import (
	"context"

	"github.com/MrEthical07/goPairAuth/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureInvalidToken
	// RefreshFailureRedeemed means the token verified but its id was no longer
	// registered: already redeemed, logged out, or lost a concurrent race.
	RefreshFailureRedeemed
	RefreshFailureRevoke
	RefreshFailureNotFound
	RefreshFailureLookup
	RefreshFailureIssue
	RefreshFailureRegistry
)

// RefreshResult carries either the issued token pair or failure metadata.
type RefreshResult struct {
	Failure  RefreshFailureKind
	Err      error
	Username string
	OldID    string
	Account  Account
	Pair     jwt.Pair
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	ValidateRefresh func(string) (*jwt.Claims, error)
	Registry        SessionRegistry
	FindAccount     func(context.Context, string) (Account, error)
	IsNotFound      func(error) bool
	IssuePair       func(jwt.Subject) (jwt.Pair, error)
	// OnReplay is called when a verified refresh token is presented after its id
	// has already left the registry.
	OnReplay func(ctx context.Context, username, tokenID string)
}

// RunRefresh redeems a refresh token exactly once and rotates it into a new pair.
//
// Removal from the registry is the redemption. Only the caller whose removal
// actually deleted the id proceeds; every other presenter of the same token,
// concurrent or later, fails with RefreshFailureRedeemed.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	claims, err := deps.ValidateRefresh(refreshToken)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureInvalidToken, Err: err}
	}

	username, oldID := claims.Subject, claims.TokenID

	removed, err := deps.Registry.Remove(ctx, username, oldID)
	if err != nil {
		return RefreshResult{Failure: RefreshFailureRevoke, Err: err, Username: username, OldID: oldID}
	}
	if !removed {
		if deps.OnReplay != nil {
			deps.OnReplay(ctx, username, oldID)
		}
		return RefreshResult{Failure: RefreshFailureRedeemed, Username: username, OldID: oldID}
	}

	account, err := deps.FindAccount(ctx, username)
	if err != nil {
		if deps.IsNotFound != nil && deps.IsNotFound(err) {
			return RefreshResult{Failure: RefreshFailureNotFound, Err: err, Username: username, OldID: oldID}
		}
		return RefreshResult{Failure: RefreshFailureLookup, Err: err, Username: username, OldID: oldID}
	}

	pair, step, err := issueAndRegister(ctx, account, deps.IssuePair, deps.Registry)
	switch step {
	case issueSign:
		return RefreshResult{Failure: RefreshFailureIssue, Err: err, Username: username, OldID: oldID, Account: account}
	case issueRegister:
		return RefreshResult{Failure: RefreshFailureRegistry, Err: err, Username: username, OldID: oldID, Account: account}
	}

	return RefreshResult{
		Failure:  RefreshFailureNone,
		Username: username,
		OldID:    oldID,
		Account:  account,
		Pair:     pair,
	}
}
