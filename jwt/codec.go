package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned by [Codec.Validate] for every rejection: malformed
// input, bad signature, expiry, wrong token type, or missing identity claims.
var ErrInvalidToken = errors.New("invalid token")

// SigningMethod selects the algorithm used to sign both halves of a pair.
type SigningMethod string

const (
	// MethodHS256 signs with a shared HMAC secret held in Config.PrivateKey.
	MethodHS256 SigningMethod = "hs256"
	// MethodEd25519 signs with an Ed25519 private key and verifies with the public key.
	MethodEd25519 SigningMethod = "ed25519"
)

const maxLeeway = 2 * time.Minute

// Clock is the single source of "now" for issuance and expiry checks.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Config defines signing keys, lifetimes, and validation options for a [Codec].
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	// Leeway is the clock-skew allowance applied to exp, nbf and iat. Zero means
	// expiry is compared against the clock exactly.
	Leeway     time.Duration
	KeyID      string
	VerifyKeys map[string][]byte
	Clock      Clock
}

// Subject is the identity a pair is issued for.
type Subject struct {
	Username string
	UserID   string
	Roles    []string
}

// Pair is one freshly issued access/refresh pair.
type Pair struct {
	Access  string
	Refresh string
	// TokenID is the identifier shared by both halves; callers register it in the
	// session registry.
	TokenID   string
	ExpiresAt time.Time
}

// Codec creates and verifies typed token pairs. A Codec is safe for concurrent use.
type Codec struct {
	config Config
	method jwt.SigningMethod
	parser *jwt.Parser
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("ed25519 requires private key")
		}
		if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	for kid, key := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
		if cfg.SigningMethod == MethodEd25519 {
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	c := &Codec{config: cfg}
	c.method = c.getMethod()

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithTimeFunc(cfg.Clock.Now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		options = append(options, jwt.WithAudience(cfg.Audience))
	}
	c.parser = jwt.NewParser(options...)

	return c, nil
}

// AccessTTL reports the configured access-token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.config.AccessTTL }

// RefreshTTL reports the configured refresh-token lifetime.
func (c *Codec) RefreshTTL() time.Duration { return c.config.RefreshTTL }

// IssuePair mints an ACCESS and a REFRESH token sharing one new random token id.
func (c *Codec) IssuePair(sub Subject) (Pair, error) {
	if sub.Username == "" {
		return Pair{}, errors.New("subject username required")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return Pair{}, fmt.Errorf("generate token id: %w", err)
	}
	tokenID := id.String()
	now := c.config.Clock.Now()

	access, err := c.sign(wireClaims{
		TokenType:        TokenAccess,
		UserID:           sub.UserID,
		Roles:            cloneRoles(sub.Roles),
		RegisteredClaims: c.registered(sub.Username, tokenID, now, c.config.AccessTTL),
	})
	if err != nil {
		return Pair{}, err
	}

	refreshExp := now.Add(c.config.RefreshTTL)
	refresh, err := c.sign(wireClaims{
		TokenType:        TokenRefresh,
		RegisteredClaims: c.registered(sub.Username, tokenID, now, c.config.RefreshTTL),
	})
	if err != nil {
		return Pair{}, err
	}

	return Pair{
		Access:    access,
		Refresh:   refresh,
		TokenID:   tokenID,
		ExpiresAt: refreshExp,
	}, nil
}

// Validate verifies signature, expiry, and that the token is of the expected type.
// Any failure returns ErrInvalidToken and nothing else.
func (c *Codec) Validate(tokenStr string, expected TokenType) (*Claims, error) {
	if tokenStr == "" || !expected.valid() {
		return nil, ErrInvalidToken
	}

	wc := &wireClaims{}
	token, err := c.parser.ParseWithClaims(tokenStr, wc, c.keyFunc)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if wc.TokenType != expected || wc.Subject == "" || wc.ID == "" {
		return nil, ErrInvalidToken
	}

	return wc.toClaims(), nil
}

func (c *Codec) registered(subject, tokenID string, now time.Time, ttl time.Duration) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		ID:        tokenID,
		Issuer:    c.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if c.config.Audience != "" {
		rc.Audience = jwt.ClaimStrings{c.config.Audience}
	}
	return rc
}

func (c *Codec) sign(claims wireClaims) (string, error) {
	token := jwt.NewWithClaims(c.method, claims)
	if c.config.KeyID != "" {
		token.Header["kid"] = c.config.KeyID
	}

	key, err := c.getSignKey()
	if err != nil {
		return "", err
	}
	return token.SignedString(key)
}

func (c *Codec) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method.Alg() != c.method.Alg() {
		return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
	}

	if len(c.config.VerifyKeys) > 0 {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := c.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return c.keyBytesToVerifyKey(key)
	}

	if c.config.KeyID != "" {
		kid, _ := t.Header["kid"].(string)
		if kid != c.config.KeyID {
			return nil, errors.New("unknown kid")
		}
	}

	return c.getVerifyKey()
}

func (c *Codec) getMethod() jwt.SigningMethod {
	if c.config.SigningMethod == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (c *Codec) getSignKey() (interface{}, error) {
	if c.config.SigningMethod == MethodEd25519 {
		return parseEdPrivateKey(c.config.PrivateKey)
	}
	return c.config.PrivateKey, nil
}

func (c *Codec) getVerifyKey() (interface{}, error) {
	if c.config.SigningMethod != MethodEd25519 {
		return c.config.PrivateKey, nil
	}
	if len(c.config.PublicKey) > 0 {
		return parseEdPublicKey(c.config.PublicKey)
	}
	priv, err := parseEdPrivateKey(c.config.PrivateKey)
	if err != nil {
		return nil, err
	}
	return priv.Public(), nil
}

func (c *Codec) keyBytesToVerifyKey(key []byte) (interface{}, error) {
	if c.config.SigningMethod == MethodEd25519 {
		return parseEdPublicKey(key)
	}
	return key, nil
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}

func cloneRoles(roles []string) []string {
	if len(roles) == 0 {
		return nil
	}
	out := make([]string, len(roles))
	copy(out, roles)
	return out
}
