package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestWithSchemaRejectsBadIdentifiers(t *testing.T) {
	for _, bad := range []string{"", "1abc", "a-b", `x"; DROP TABLE users; --`} {
		if _, err := NewStore(nil, WithSchema(bad)); err == nil {
			t.Fatalf("expected error for schema %q", bad)
		}
	}
}

func TestNewStoreRequiresPool(t *testing.T) {
	if _, err := NewStore(nil); err == nil {
		t.Fatal("expected error for nil pool")
	}
}

func TestTableNameIsQuoted(t *testing.T) {
	s := &Store{schema: "pairauth"}
	if got := s.table(); got != `"pairauth"."users"` {
		t.Fatalf("unexpected table identifier %s", got)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if !isUniqueViolation(&pgconn.PgError{Code: "23505"}) {
		t.Fatal("23505 must be a unique violation")
	}
	if isUniqueViolation(&pgconn.PgError{Code: "23503"}) {
		t.Fatal("23503 is a foreign key violation")
	}
	if isUniqueViolation(errors.New("plain")) {
		t.Fatal("plain errors are not unique violations")
	}
}
