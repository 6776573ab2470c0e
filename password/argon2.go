package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DefaultMaxPasswordBytes is applied when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

const argon2Prefix = "$argon2id$"

// Cost floors. Hashes below them are rejected as malformed rather than verified.
var floor = Config{
	Memory:      8 * 1024,
	Time:        1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   16,
}

var (
	// ErrEmptyPassword is returned by Hash for a zero-length password.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned when a password exceeds the configured byte limit.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrMalformedHash is returned for an encoded hash that is not a usable
	// argon2id PHC string.
	ErrMalformedHash = errors.New("malformed argon2id hash")
)

// Config holds Argon2id cost parameters. Memory is in KiB.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// MaxPasswordBytes bounds hashing cost for hostile input. Zero means 1024.
	MaxPasswordBytes int
}

// DefaultConfig returns the parameters new deployments should start from.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < floor.Memory:
		return fmt.Errorf("password memory must be >= %d KB", floor.Memory)
	case c.Time < floor.Time:
		return fmt.Errorf("password time must be >= %d", floor.Time)
	case c.Parallelism < floor.Parallelism:
		return fmt.Errorf("password parallelism must be >= %d", floor.Parallelism)
	case c.SaltLength < floor.SaltLength:
		return fmt.Errorf("password salt length must be >= %d", floor.SaltLength)
	case c.KeyLength < floor.KeyLength:
		return fmt.Errorf("password key length must be >= %d", floor.KeyLength)
	case c.MaxPasswordBytes < 0:
		return errors.New("password max bytes must be >= 0")
	}
	return nil
}

// Argon2 hashes passwords into PHC strings and verifies them in constant time.
// Any non-empty password up to MaxPasswordBytes is accepted; length policy
// belongs to the caller.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg against the cost floors.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// phc is the decoded form of
// $argon2id$v=19$m=<memory>,t=<time>,p=<parallelism>$<salt>$<key>.
type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (p phc) String() string {
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version,
		p.memory, p.time, p.parallelism,
		base64.StdEncoding.EncodeToString(p.salt),
		base64.StdEncoding.EncodeToString(p.key),
	)
}

func (p phc) derive(password string) []byte {
	return argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.parallelism, uint32(len(p.key)))
}

// Hash returns a PHC-encoded Argon2id hash of password. Bytes are used exactly as
// provided, without Unicode normalization.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if err := a.checkLength(password); err != nil {
		return "", err
	}

	out := phc{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
		key:         make([]byte, a.config.KeyLength),
	}
	if _, err := io.ReadFull(rand.Reader, out.salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	out.key = out.derive(password)
	return out.String(), nil
}

// Verify reports whether password matches encodedHash. A malformed hash is an
// error matching ErrMalformedHash; a mismatch is (false, nil).
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if err := a.checkLength(password); err != nil {
		return false, err
	}
	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(stored.derive(password), stored.key) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker parameters
// than the current configuration, or with a different key length.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	stored, err := decodePHC(encodedHash)
	if err != nil {
		return false, err
	}
	weaker := stored.memory < a.config.Memory ||
		stored.time < a.config.Time ||
		stored.parallelism < a.config.Parallelism
	return weaker || uint32(len(stored.key)) != a.config.KeyLength, nil
}

// Handles reports whether encodedHash is an Argon2id PHC string.
func (a *Argon2) Handles(encodedHash string) bool {
	return strings.HasPrefix(encodedHash, argon2Prefix)
}

func (a *Argon2) checkLength(password string) error {
	if len(password) > a.config.MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedHash, reason)
}

// decodePHC parses encodedHash strictly: the numeric fields must re-encode to
// exactly the input, so signs, padding and trailing text are rejected.
func decodePHC(encodedHash string) (phc, error) {
	rest, ok := strings.CutPrefix(encodedHash, argon2Prefix)
	if !ok {
		return phc{}, malformed("not argon2id")
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return phc{}, malformed("expected 4 fields after the algorithm")
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil || fmt.Sprintf("v=%d", version) != fields[0] {
		return phc{}, malformed("bad version field")
	}
	if version != argon2.Version {
		return phc{}, malformed(fmt.Sprintf("unsupported version %d", version))
	}

	var out phc
	if _, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &out.memory, &out.time, &out.parallelism); err != nil ||
		fmt.Sprintf("m=%d,t=%d,p=%d", out.memory, out.time, out.parallelism) != fields[1] {
		return phc{}, malformed("bad parameter field")
	}
	if out.memory < floor.Memory || out.time < floor.Time || out.parallelism < floor.Parallelism {
		return phc{}, malformed("parameters below cost floor")
	}

	var err error
	if out.salt, err = base64.StdEncoding.DecodeString(fields[2]); err != nil || len(out.salt) < int(floor.SaltLength) {
		return phc{}, malformed("bad salt")
	}
	if out.key, err = base64.StdEncoding.DecodeString(fields[3]); err != nil || len(out.key) == 0 {
		return phc{}, malformed("bad key")
	}
	return out, nil
}
