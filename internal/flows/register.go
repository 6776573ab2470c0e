package flows

import (
	"context"

	"github.com/MrEthical07/goPairAuth/jwt"
)

// RegisterFailureKind classifies register flow failures for root-level mapping.
type RegisterFailureKind int

const (
	RegisterFailureNone RegisterFailureKind = iota
	RegisterFailureInvalid
	RegisterFailureExists
	RegisterFailureLookup
	RegisterFailureHash
	RegisterFailureCreate
	RegisterFailureIssue
	RegisterFailureRegistry
)

// RegisterInput is the raw account data supplied by the caller.
type RegisterInput struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

// RegisterResult carries either the created account and its first pair or
// failure metadata.
type RegisterResult struct {
	Failure RegisterFailureKind
	Err     error
	Account Account
	Pair    jwt.Pair
}

// RegisterDeps captures register flow dependencies.
type RegisterDeps struct {
	ExistsByUsername func(context.Context, string) (bool, error)
	HashPassword     func(string) (string, error)
	// CreateAccount persists the account. It must report a username conflict
	// detected by the store in a way IsConflict recognises.
	CreateAccount func(ctx context.Context, in RegisterInput, passwordHash string, roles []string) (Account, error)
	IsConflict    func(error) bool
	DefaultRoles  []string
	IssuePair     func(jwt.Subject) (jwt.Pair, error)
	Registry      SessionRegistry
}

// RunRegister creates an account with the configured default roles, issues its
// first pair, and records the pair's token id.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) RegisterResult {
	if in.Username == "" || in.Password == "" {
		return RegisterResult{Failure: RegisterFailureInvalid}
	}

	exists, err := deps.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureLookup, Err: err}
	}
	if exists {
		return RegisterResult{Failure: RegisterFailureExists}
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		return RegisterResult{Failure: RegisterFailureHash, Err: err}
	}

	roles := make([]string, len(deps.DefaultRoles))
	copy(roles, deps.DefaultRoles)

	account, err := deps.CreateAccount(ctx, in, hash, roles)
	if err != nil {
		// Two concurrent registrations can both pass the existence check; the
		// store's unique constraint decides.
		if deps.IsConflict != nil && deps.IsConflict(err) {
			return RegisterResult{Failure: RegisterFailureExists, Err: err}
		}
		return RegisterResult{Failure: RegisterFailureCreate, Err: err}
	}

	pair, step, err := issueAndRegister(ctx, account, deps.IssuePair, deps.Registry)
	switch step {
	case issueSign:
		return RegisterResult{Failure: RegisterFailureIssue, Err: err, Account: account}
	case issueRegister:
		return RegisterResult{Failure: RegisterFailureRegistry, Err: err, Account: account}
	}

	return RegisterResult{
		Failure: RegisterFailureNone,
		Account: account,
		Pair:    pair,
	}
}
