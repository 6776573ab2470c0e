package goPairAuth

import (
	"context"
	"time"

	"github.com/MrEthical07/goPairAuth/jwt"
)

// TokenPair is what a client holds after Register, Login, or Refresh. Both
// tokens share one token id.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// User is the persisted account. Username is the unique login handle and the
// subject of every token issued for the account.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated principal of a request. Roles are read from the
// user store at resolution time, not from the token.
type Identity struct {
	UserID   string
	Username string
	Roles    []string
	TokenID  string
}

// HasRole reports whether the identity holds role.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RegisterRequest carries the data needed to create an account.
type RegisterRequest struct {
	Username  string
	Password  string
	Email     string
	FirstName string
	LastName  string
}

// UserStore persists users.
//
// FindByUsername must return an error matching ErrNotFound for a missing user.
// Save inserts or updates by ID and must return an error matching
// ErrAlreadyExists when another user already owns the username.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Save(ctx context.Context, user User) (User, error)
}

// PasswordHasher hashes and verifies passwords. A mismatch is (false, nil).
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Verify(raw, encoded string) (bool, error)
}

// upgradeChecker is implemented by hashers that can tell when a stored hash
// should be replaced on the next successful login.
type upgradeChecker interface {
	NeedsUpgrade(encoded string) (bool, error)
}

// Clock supplies the current time to token issuance and validation.
type Clock = jwt.Clock
