package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType discriminates the two halves of a pair.
type TokenType string

const (
	// TokenAccess marks a short-lived token presented on every request.
	TokenAccess TokenType = "ACCESS"
	// TokenRefresh marks a long-lived token redeemable once for a new pair.
	TokenRefresh TokenType = "REFRESH"
)

func (t TokenType) valid() bool {
	return t == TokenAccess || t == TokenRefresh
}

// String returns the wire value of t.
func (t TokenType) String() string { return string(t) }

// AccessPayload holds the fields only access tokens carry.
type AccessPayload struct {
	UserID string
	Roles  []string
}

// Claims is the validated content of a token. Access is non-nil exactly when
// Type is TokenAccess.
type Claims struct {
	Type      TokenType
	Subject   string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Access    *AccessPayload
}

// wireClaims is the signed JSON body. Claim names match tokens issued by the
// previous deployment of this service.
type wireClaims struct {
	TokenType TokenType `json:"tokenType"`
	UserID    string    `json:"userId,omitempty"`
	Roles     []string  `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

func (w *wireClaims) toClaims() *Claims {
	c := &Claims{
		Type:    w.TokenType,
		Subject: w.Subject,
		TokenID: w.ID,
	}
	if w.IssuedAt != nil {
		c.IssuedAt = w.IssuedAt.Time
	}
	if w.ExpiresAt != nil {
		c.ExpiresAt = w.ExpiresAt.Time
	}
	if w.TokenType == TokenAccess {
		c.Access = &AccessPayload{
			UserID: w.UserID,
			Roles:  cloneRoles(w.Roles),
		}
	}
	return c
}
