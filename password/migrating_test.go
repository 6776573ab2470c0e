package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func newMigratingHasher(t *testing.T) (*Migrating, *Argon2, *Bcrypt) {
	t.Helper()
	primary, err := NewArgon2(cheapConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	legacy, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	m, err := NewMigrating(primary, legacy)
	if err != nil {
		t.Fatalf("NewMigrating error: %v", err)
	}
	return m, primary, legacy
}

func TestBcryptHashAndVerify(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	hash, err := b.Hash("legacy-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !b.Handles(hash) {
		t.Fatalf("expected bcrypt prefix, got %s", hash)
	}

	ok, err := b.Verify("legacy-password", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, ok=%v err=%v", ok, err)
	}
	ok, err = b.Verify("wrong-password", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, ok=%v err=%v", ok, err)
	}
}

func TestBcryptRejectsOverlongPassword(t *testing.T) {
	b, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt error: %v", err)
	}
	if _, err := b.Hash(strings.Repeat("x", 73)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestBcryptNeedsUpgradeOnLowerCost(t *testing.T) {
	weak, _ := NewBcrypt(bcrypt.MinCost)
	strong, _ := NewBcrypt(bcrypt.MinCost + 1)

	hash, err := weak.Hash("legacy-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	up, err := strong.NeedsUpgrade(hash)
	if err != nil || !up {
		t.Fatalf("expected upgrade for lower cost, up=%v err=%v", up, err)
	}
}

func TestMigratingVerifiesLegacyAndFlagsUpgrade(t *testing.T) {
	m, _, legacy := newMigratingHasher(t)

	legacyHash, err := legacy.Hash("imported-password")
	if err != nil {
		t.Fatalf("legacy hash: %v", err)
	}

	ok, err := m.Verify("imported-password", legacyHash)
	if err != nil || !ok {
		t.Fatalf("expected legacy hash to verify, ok=%v err=%v", ok, err)
	}
	up, err := m.NeedsUpgrade(legacyHash)
	if err != nil || !up {
		t.Fatalf("expected legacy hash to need upgrade, up=%v err=%v", up, err)
	}
}

func TestMigratingHashesWithPrimary(t *testing.T) {
	m, primary, _ := newMigratingHasher(t)

	hash, err := m.Hash("fresh-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !primary.Handles(hash) {
		t.Fatalf("expected argon2id hash, got %s", hash)
	}
	up, err := m.NeedsUpgrade(hash)
	if err != nil || up {
		t.Fatalf("fresh primary hash should not need upgrade, up=%v err=%v", up, err)
	}
	ok, err := m.Verify("fresh-password", hash)
	if err != nil || !ok {
		t.Fatalf("expected primary hash to verify, ok=%v err=%v", ok, err)
	}
}

func TestMigratingUnknownAlgorithm(t *testing.T) {
	m, _, _ := newMigratingHasher(t)

	if _, err := m.Verify("pw", "{noop}plain"); err == nil {
		t.Fatal("expected unknown algorithm error")
	}
	if _, err := m.NeedsUpgrade("{noop}plain"); err == nil {
		t.Fatal("expected unknown algorithm error")
	}
}
