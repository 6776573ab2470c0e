// Package sqlite is a goPairAuth.UserStore backed by SQLite through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	goPairAuth "github.com/MrEthical07/goPairAuth"
	"github.com/MrEthical07/goPairAuth/internal/idx"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens dsn. A ":memory:" DSN is pinned to one connection so every
// query sees the same database.
func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectUser = `SELECT id, username, email, first_name, last_name, password_hash, roles, created_at, updated_at FROM users`

func (s *Store) FindByUsername(ctx context.Context, username string) (goPairAuth.User, error) {
	row := s.db.QueryRowContext(ctx, selectUser+` WHERE username = ?`, username)
	return scanUser(row)
}

func (s *Store) findByID(ctx context.Context, id string) (goPairAuth.User, error) {
	row := s.db.QueryRowContext(ctx, selectUser+` WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Save upserts u by ID. A username owned by another row yields
// goPairAuth.ErrAlreadyExists.
func (s *Store) Save(ctx context.Context, u goPairAuth.User) (goPairAuth.User, error) {
	now := s.now().UTC()
	if u.ID == "" {
		u.ID = idx.NewAt(now)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}

	roles, err := json.Marshal(nonNil(u.Roles))
	if err != nil {
		return goPairAuth.User{}, fmt.Errorf("encode roles: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO users (id, username, email, first_name, last_name, password_hash, roles, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    username      = excluded.username,
    email         = excluded.email,
    first_name    = excluded.first_name,
    last_name     = excluded.last_name,
    password_hash = excluded.password_hash,
    roles         = excluded.roles,
    updated_at    = excluded.updated_at`,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, string(roles),
		u.CreatedAt.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return goPairAuth.User{}, goPairAuth.ErrAlreadyExists
		}
		return goPairAuth.User{}, err
	}

	return s.findByID(ctx, u.ID)
}

// Delete removes the user with the given username.
func (s *Store) Delete(ctx context.Context, username string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE username = ?`, username)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (goPairAuth.User, error) {
	var (
		u                goPairAuth.User
		roles            string
		created, updated int64
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &roles, &created, &updated)
	if err != nil {
		return goPairAuth.User{}, mapNotFound(err)
	}
	if err := json.Unmarshal([]byte(roles), &u.Roles); err != nil {
		return goPairAuth.User{}, fmt.Errorf("decode roles for %s: %w", u.ID, err)
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	u.UpdatedAt = time.UnixMilli(updated).UTC()
	return u, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return goPairAuth.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
		return true
	}
	return false
}

func nonNil(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
