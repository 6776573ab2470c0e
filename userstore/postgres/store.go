// Package postgres is a goPairAuth.UserStore over PostgreSQL using a pgx pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	goPairAuth "github.com/MrEthical07/goPairAuth"
	"github.com/MrEthical07/goPairAuth/internal/idx"
)

// Store persists users in <schema>.users. The pool is owned by the caller and
// is not closed by the store.
type Store struct {
	pool   *pgxpool.Pool
	schema string
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store) error

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the schema holding the users table (default "pairauth").
func WithSchema(schema string) Option {
	return func(s *Store) error {
		schema = strings.TrimSpace(schema)
		if !identRe.MatchString(schema) {
			return fmt.Errorf("postgres: invalid schema identifier %q", schema)
		}
		s.schema = schema
		return nil
	}
}

func NewStore(pool *pgxpool.Pool, opts ...Option) (*Store, error) {
	s := &Store{pool: pool, schema: "pairauth", now: time.Now}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.pool == nil {
		return nil, errors.New("postgres: nil pool")
	}
	return s, nil
}

func (s *Store) table() string {
	return pgx.Identifier{s.schema, "users"}.Sanitize()
}

// Migrate creates the schema and users table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	schema := pgx.Identifier{s.schema}.Sanitize()
	stmts := []string{
		`CREATE SCHEMA IF NOT EXISTS ` + schema,
		`CREATE TABLE IF NOT EXISTS ` + s.table() + ` (
			id            TEXT        PRIMARY KEY,
			username      TEXT        NOT NULL,
			email         TEXT        NOT NULL DEFAULT '',
			first_name    TEXT        NOT NULL DEFAULT '',
			last_name     TEXT        NOT NULL DEFAULT '',
			password_hash TEXT        NOT NULL,
			roles         TEXT[]      NOT NULL DEFAULT '{}',
			created_at    TIMESTAMPTZ NOT NULL,
			updated_at    TIMESTAMPTZ NOT NULL,
			CONSTRAINT users_username_key UNIQUE (username)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate: %w", err)
		}
	}
	return nil
}

// Ping verifies a connection can be acquired.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) selectUser() string {
	return `SELECT id, username, email, first_name, last_name, password_hash, roles, created_at, updated_at FROM ` + s.table()
}

func (s *Store) FindByUsername(ctx context.Context, username string) (goPairAuth.User, error) {
	return scanUser(s.pool.QueryRow(ctx, s.selectUser()+` WHERE username = $1`, username))
}

func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+s.table()+` WHERE username = $1)`, username).Scan(&exists)
	return exists, err
}

// Save upserts u by ID and returns the stored row. A username held by a
// different ID yields goPairAuth.ErrAlreadyExists.
func (s *Store) Save(ctx context.Context, u goPairAuth.User) (goPairAuth.User, error) {
	now := s.now().UTC()
	if u.ID == "" {
		u.ID = idx.NewAt(now)
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}

	row := s.pool.QueryRow(ctx, `
INSERT INTO `+s.table()+` (id, username, email, first_name, last_name, password_hash, roles, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO UPDATE SET
    username      = EXCLUDED.username,
    email         = EXCLUDED.email,
    first_name    = EXCLUDED.first_name,
    last_name     = EXCLUDED.last_name,
    password_hash = EXCLUDED.password_hash,
    roles         = EXCLUDED.roles,
    updated_at    = EXCLUDED.updated_at
RETURNING id, username, email, first_name, last_name, password_hash, roles, created_at, updated_at`,
		u.ID, u.Username, u.Email, u.FirstName, u.LastName, u.PasswordHash, roles, u.CreatedAt, now,
	)

	saved, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return goPairAuth.User{}, goPairAuth.ErrAlreadyExists
		}
		return goPairAuth.User{}, err
	}
	return saved, nil
}

// Delete removes the user with the given username.
func (s *Store) Delete(ctx context.Context, username string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM `+s.table()+` WHERE username = $1`, username)
	return err
}

func scanUser(row pgx.Row) (goPairAuth.User, error) {
	var u goPairAuth.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return goPairAuth.User{}, goPairAuth.ErrNotFound
		}
		return goPairAuth.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
