package port

import (
	"context"
	"time"
)

// Store is the Ephemeral State Store: a networked key-value cache with
// per-key TTL. Presence and typing state live here and nowhere else.
// Implementations must be concurrency-safe and every method is
// context-aware so callers can bound round trips.
//
// Values are strings to keep the port free of serialization concerns.
type Store interface {
	// Get returns ("", ErrMiss) when key is absent or expired.
	Get(ctx context.Context, key string) (string, error)

	// MGet fetches many keys in one round trip. Absent keys are omitted
	// from the result map.
	MGet(ctx context.Context, keys ...string) (map[string]string, error)

	// Set stores value at key with the provided TTL. Zero TTL means no expiration.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error

	// SetNX stores value at key only when key is absent and reports whether
	// it did.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)

	// Del removes keys and returns the number removed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// Expire re-stamps the TTL of an existing key. It reports false, without
	// creating anything, when key is absent.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IncrWithTTL atomically increments the counter at key (creating it at 1)
	// and stamps ttl on it.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// DecrOrDelete atomically decrements the counter at key. When the result
	// is <= 0 the counter and all companion keys are deleted and 0 is
	// returned; otherwise key and companions get ttl re-stamped.
	DecrOrDelete(ctx context.Context, key string, ttl time.Duration, companions ...string) (int64, error)

	// SAdd adds members to the set at key and stamps ttl on the set.
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error

	// SRem removes members from the set at key.
	SRem(ctx context.Context, key string, members ...string) error

	// SMembers lists the set at key; an absent set is empty.
	SMembers(ctx context.Context, key string) ([]string, error)

	// Scan lists keys matching a glob pattern. It is O(keyspace) and meant
	// for administrative reads, never for the request path.
	Scan(ctx context.Context, pattern string) ([]string, error)

	// Ping verifies connectivity with the cache backend.
	Ping(ctx context.Context) error

	// Close releases any resources held by the cache.
	Close() error
}

// ErrMiss is returned by adapters to signal a cache miss in a typed way.
var ErrMiss = errMiss{}

type errMiss struct{}

func (e errMiss) Error() string { return "cache: miss" }
