// Package memory is a process-local goPairAuth.UserStore for tests and
// single-instance development servers.
package memory

import (
	"context"
	"sync"
	"time"

	goPairAuth "github.com/MrEthical07/goPairAuth"
	"github.com/MrEthical07/goPairAuth/internal/idx"
)

// Store keeps users in a map keyed by ID with a username index. It is safe
// for concurrent use.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]goPairAuth.User
	byUsername map[string]string
	now        func() time.Time
}

func New() *Store {
	return &Store{
		byID:       make(map[string]goPairAuth.User),
		byUsername: make(map[string]string),
		now:        time.Now,
	}
}

func (s *Store) FindByUsername(ctx context.Context, username string) (goPairAuth.User, error) {
	if err := ctx.Err(); err != nil {
		return goPairAuth.User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[username]
	if !ok {
		return goPairAuth.User{}, goPairAuth.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

func (s *Store) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byUsername[username]
	return ok, nil
}

// Save inserts u, or replaces the stored user with the same ID. An empty ID
// gets a new ULID.
func (s *Store) Save(ctx context.Context, u goPairAuth.User) (goPairAuth.User, error) {
	if err := ctx.Err(); err != nil {
		return goPairAuth.User{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if u.ID == "" {
		u.ID = idx.NewAt(now)
	}
	if owner, ok := s.byUsername[u.Username]; ok && owner != u.ID {
		return goPairAuth.User{}, goPairAuth.ErrAlreadyExists
	}

	if prev, ok := s.byID[u.ID]; ok {
		if prev.Username != u.Username {
			delete(s.byUsername, prev.Username)
		}
		if u.CreatedAt.IsZero() {
			u.CreatedAt = prev.CreatedAt
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	stored := clone(u)
	s.byID[u.ID] = stored
	s.byUsername[u.Username] = u.ID
	return clone(stored), nil
}

// Delete removes the user with the given username. Missing users are ignored.
func (s *Store) Delete(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byUsername[username]; ok {
		delete(s.byID, id)
		delete(s.byUsername, username)
	}
	return nil
}

// Len reports the number of stored users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func clone(u goPairAuth.User) goPairAuth.User {
	if u.Roles != nil {
		u.Roles = append([]string(nil), u.Roles...)
	}
	return u
}
