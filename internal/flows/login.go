package flows

import (
	"context"

	"github.com/MrEthical07/goPairAuth/jwt"
)

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureRateLimited
	LoginFailureThrottleUnavailable
	LoginFailureNotFound
	LoginFailureLookup
	LoginFailureBadCredentials
	LoginFailureVerify
	LoginFailureIssue
	LoginFailureRegistry
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Failure LoginFailureKind
	Err     error
	Account Account
	Pair    jwt.Pair
	// Rehashed is set when the stored hash was upgraded during this login.
	Rehashed bool
}

// LoginThrottle is the optional failed-login limiter.
type LoginThrottle interface {
	CheckLogin(ctx context.Context, username, ip string) error
	IncrementLogin(ctx context.Context, username, ip string) error
	ResetLogin(ctx context.Context, username string) error
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	ClientIP       func(context.Context) string
	Throttle       LoginThrottle
	IsRateLimited  func(error) bool
	FindAccount    func(context.Context, string) (Account, error)
	IsNotFound     func(error) bool
	VerifyPassword func(raw, encoded string) (bool, error)
	// Rehash upgrades a stale stored hash. It returns true when a new hash was
	// written. Failures are the callee's to log; login proceeds regardless.
	Rehash    func(ctx context.Context, account Account, raw string) bool
	IssuePair func(jwt.Subject) (jwt.Pair, error)
	Registry  SessionRegistry
	Warn      func(string, ...any)
}

// RunLogin authenticates username/password, issues a pair, and registers it.
func RunLogin(ctx context.Context, username, password string, deps LoginDeps) LoginResult {
	ip := ""
	if deps.ClientIP != nil {
		ip = deps.ClientIP(ctx)
	}

	if deps.Throttle != nil {
		if err := deps.Throttle.CheckLogin(ctx, username, ip); err != nil {
			if deps.IsRateLimited != nil && deps.IsRateLimited(err) {
				return LoginResult{Failure: LoginFailureRateLimited, Err: err}
			}
			return LoginResult{Failure: LoginFailureThrottleUnavailable, Err: err}
		}
	}

	account, err := deps.FindAccount(ctx, username)
	if err != nil {
		if deps.IsNotFound != nil && deps.IsNotFound(err) {
			recordLoginFailure(ctx, username, ip, deps)
			return LoginResult{Failure: LoginFailureNotFound, Err: err}
		}
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}

	ok, err := deps.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		return LoginResult{Failure: LoginFailureVerify, Err: err, Account: account}
	}
	if !ok {
		recordLoginFailure(ctx, username, ip, deps)
		return LoginResult{Failure: LoginFailureBadCredentials, Account: account}
	}

	if deps.Throttle != nil {
		if err := deps.Throttle.ResetLogin(ctx, username); err != nil && deps.Warn != nil {
			deps.Warn("login throttle reset failed", "error", err)
		}
	}

	rehashed := false
	if deps.Rehash != nil {
		rehashed = deps.Rehash(ctx, account, password)
	}

	pair, step, err := issueAndRegister(ctx, account, deps.IssuePair, deps.Registry)
	switch step {
	case issueSign:
		return LoginResult{Failure: LoginFailureIssue, Err: err, Account: account}
	case issueRegister:
		return LoginResult{Failure: LoginFailureRegistry, Err: err, Account: account}
	}

	return LoginResult{
		Failure:  LoginFailureNone,
		Account:  account,
		Pair:     pair,
		Rehashed: rehashed,
	}
}

func recordLoginFailure(ctx context.Context, username, ip string, deps LoginDeps) {
	if deps.Throttle == nil {
		return
	}
	if err := deps.Throttle.IncrementLogin(ctx, username, ip); err != nil && deps.Warn != nil {
		deps.Warn("login throttle increment failed", "error", err)
	}
}
