package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRegistryUnavailable wraps every Redis failure surfaced by [Registry].
var ErrRegistryUnavailable = errors.New("session registry unavailable")

// DefaultPrefix namespaces registry keys.
const DefaultPrefix = "pas:"

// DefaultReplayPrefix namespaces replay counters when Config.ReplayPrefix is blank.
const DefaultReplayPrefix = "par:"

// Config controls key layout and retention.
type Config struct {
	// Prefix is prepended to the username to form the list key.
	Prefix string
	// ReplayPrefix is prepended to the username to form the replay counter key.
	// It must not overlap Prefix; see Config.Validate.
	ReplayPrefix string
	// KeyTTL, when positive, is re-applied on every Add so lists of idle users
	// expire once their newest refresh token could no longer be redeemed.
	KeyTTL time.Duration
}

// Validate reports whether the list and replay namespaces can share a key.
// Usernames are arbitrary, so two prefixes are only safe when neither is a
// prefix of the other.
func (c Config) Validate() error {
	replay := c.replayPrefix()
	if strings.HasPrefix(c.Prefix, replay) || strings.HasPrefix(replay, c.Prefix) {
		return fmt.Errorf("session prefix %q and replay prefix %q overlap", c.Prefix, replay)
	}
	return nil
}

func (c Config) replayPrefix() string {
	if c.ReplayPrefix == "" {
		return DefaultReplayPrefix
	}
	return c.ReplayPrefix
}

// Registry is a Redis-backed map from username to an ordered list of live token ids.
type Registry struct {
	redis        redis.UniversalClient
	prefix       string
	replayPrefix string
	keyTTL       time.Duration
}

// NewRegistry returns a Registry over client. A blank prefix keeps raw usernames as keys.
func NewRegistry(client redis.UniversalClient, cfg Config) *Registry {
	return &Registry{
		redis:        client,
		prefix:       cfg.Prefix,
		replayPrefix: cfg.replayPrefix(),
		keyTTL:       cfg.KeyTTL,
	}
}

func (r *Registry) key(username string) string {
	return r.prefix + username
}

func (r *Registry) replayKey(username string) string {
	return r.replayPrefix + username
}

// Add appends tokenID to the end of the username's list.
func (r *Registry) Add(ctx context.Context, username, tokenID string) error {
	key := r.key(username)
	_, err := r.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, tokenID)
		if r.keyTTL > 0 {
			pipe.Expire(ctx, key, r.keyTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return nil
}

// Remove deletes the first occurrence of tokenID and reports whether one existed.
// A missing id is not an error.
func (r *Registry) Remove(ctx context.Context, username, tokenID string) (bool, error) {
	n, err := r.redis.LRem(ctx, r.key(username), 1, tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return n > 0, nil
}

// RemoveAll drops every live id for username. No-op when none exist.
func (r *Registry) RemoveAll(ctx context.Context, username string) error {
	if err := r.redis.Del(ctx, r.key(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return nil
}

// List returns the live ids for username in insertion order, or an empty slice.
func (r *Registry) List(ctx context.Context, username string) ([]string, error) {
	ids, err := r.redis.LRange(ctx, r.key(username), 0, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Count returns the number of live ids for username.
func (r *Registry) Count(ctx context.Context, username string) (int64, error) {
	n, err := r.redis.LLen(ctx, r.key(username)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return n, nil
}

// TrackReplay increments the replay counter for username and returns the new
// value. The counter expires ttl after the first replay in a window.
func (r *Registry) TrackReplay(ctx context.Context, username string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	key := r.replayKey(username)
	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	if count == 1 {
		if err := r.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return count, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
		}
	}
	return count, nil
}

// Ping measures a Redis round-trip.
func (r *Registry) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return time.Since(start), nil
}
