package flows

import (
	"context"

	"github.com/MrEthical07/goPairAuth/jwt"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Register       RegisterDeps
	Login          LoginDeps
	Refresh        RefreshDeps
	Logout         LogoutDeps
	ChangePassword ChangePasswordDeps
}

// Account is the flow-local view of a stored user.
type Account struct {
	UserID       string
	Username     string
	PasswordHash string
	Roles        []string
}

// Subject converts an account into the identity a pair is issued for.
func (a Account) Subject() jwt.Subject {
	return jwt.Subject{
		Username: a.Username,
		UserID:   a.UserID,
		Roles:    a.Roles,
	}
}

// SessionRegistry is the subset of the session registry the flows mutate.
type SessionRegistry interface {
	Add(ctx context.Context, username, tokenID string) error
	Remove(ctx context.Context, username, tokenID string) (bool, error)
	RemoveAll(ctx context.Context, username string) error
}

// issueStep reports which half of issue-and-register failed.
type issueStep int

const (
	issueOK issueStep = iota
	issueSign
	issueRegister
)

func issueAndRegister(
	ctx context.Context,
	account Account,
	issue func(jwt.Subject) (jwt.Pair, error),
	registry SessionRegistry,
) (jwt.Pair, issueStep, error) {
	pair, err := issue(account.Subject())
	if err != nil {
		return jwt.Pair{}, issueSign, err
	}
	if err := registry.Add(ctx, account.Username, pair.TokenID); err != nil {
		return jwt.Pair{}, issueRegister, err
	}
	return pair, issueOK, nil
}
