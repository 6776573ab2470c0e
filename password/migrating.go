package password

import "errors"

// Scheme is one hashing algorithm that can recognise its own encoded output.
type Scheme interface {
	Hash(password string) (string, error)
	Verify(password, encodedHash string) (bool, error)
	NeedsUpgrade(encodedHash string) (bool, error)
	Handles(encodedHash string) bool
}

// Migrating hashes with a primary scheme and still verifies hashes written by
// legacy schemes. Any legacy hash reports NeedsUpgrade so callers rehash it after
// the next successful login.
type Migrating struct {
	primary Scheme
	legacy  []Scheme
}

// NewMigrating combines primary with zero or more legacy schemes.
func NewMigrating(primary Scheme, legacy ...Scheme) (*Migrating, error) {
	if primary == nil {
		return nil, errors.New("primary scheme required")
	}
	for _, l := range legacy {
		if l == nil {
			return nil, errors.New("nil legacy scheme")
		}
	}
	return &Migrating{primary: primary, legacy: legacy}, nil
}

// Hash always uses the primary scheme.
func (m *Migrating) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

// Verify dispatches to whichever scheme recognises encodedHash.
func (m *Migrating) Verify(password, encodedHash string) (bool, error) {
	s, err := m.schemeFor(encodedHash)
	if err != nil {
		return false, err
	}
	return s.Verify(password, encodedHash)
}

// NeedsUpgrade is true for every legacy hash and defers to the primary scheme otherwise.
func (m *Migrating) NeedsUpgrade(encodedHash string) (bool, error) {
	if m.primary.Handles(encodedHash) {
		return m.primary.NeedsUpgrade(encodedHash)
	}
	if _, err := m.schemeFor(encodedHash); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Migrating) schemeFor(encodedHash string) (Scheme, error) {
	if m.primary.Handles(encodedHash) {
		return m.primary, nil
	}
	for _, l := range m.legacy {
		if l.Handles(encodedHash) {
			return l, nil
		}
	}
	return nil, errors.New("unsupported algorithm")
}
