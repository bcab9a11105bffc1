package core

import (
	"context"
	"time"
)

// Store defines the command surface the mapping and query engine needs from
// the underlying key-value store. Implementations should support Redis or a
// compatible in-memory store.
//
// Every method maps to a single atomic server-side command. The *Store
// variants that take a ttl combine the store command with an expiry on the
// destination key; implementations must guarantee the expiry is applied even
// if the calling process dies right after the call returns.
type Store interface {
	// Get retrieves a scalar value. The second return value reports whether
	// the key existed.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a scalar value, overwriting any previous one.
	Set(ctx context.Context, key, value string) error

	// Del removes the given keys. Missing keys are ignored.
	Del(ctx context.Context, keys ...string) error

	// Exists checks if a key exists in the store.
	Exists(ctx context.Context, key string) (bool, error)

	// Incr atomically increments the integer value at key and returns the
	// new value. A missing key counts as 0.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire sets a time-to-live on an existing key.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// SAdd adds members to a set, returning the number actually added.
	SAdd(ctx context.Context, key string, members ...string) (int64, error)

	// SRem removes members from a set, returning the number removed.
	SRem(ctx context.Context, key string, members ...string) (int64, error)

	// SMembers returns all members of a set. Order is unspecified.
	SMembers(ctx context.Context, key string) ([]string, error)

	// SCard returns the cardinality of a set.
	SCard(ctx context.Context, key string) (int64, error)

	// SIsMember checks set membership.
	SIsMember(ctx context.Context, key, member string) (bool, error)

	// SPop removes and returns a random member of a set. The second return
	// value is false if the set was empty.
	SPop(ctx context.Context, key string) (string, bool, error)

	// SInterStore stores the intersection of the given sets at dest with the
	// given expiry, returning the cardinality of the result.
	SInterStore(ctx context.Context, dest string, ttl time.Duration, keys ...string) (int64, error)

	// SUnionStore stores the union of the given sets at dest with the given
	// expiry, returning the cardinality of the result.
	SUnionStore(ctx context.Context, dest string, ttl time.Duration, keys ...string) (int64, error)

	// ZAdd adds a member with the given score to a sorted set.
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRem removes members from a sorted set, returning the number removed.
	ZRem(ctx context.Context, key string, members ...string) (int64, error)

	// ZIncrBy increments the score of member, creating it at delta if absent.
	// Returns the new score.
	ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error)

	// ZCard returns the cardinality of a sorted set.
	ZCard(ctx context.Context, key string) (int64, error)

	// ZScore returns the score of a member. The second return value is false
	// if the member is absent.
	ZScore(ctx context.Context, key, member string) (float64, bool, error)

	// ZRange returns members of a sorted set by rank, ascending by score, or
	// descending when rev is set. Bounds follow Redis rank semantics (stop
	// -1 means the last element).
	ZRange(ctx context.Context, key string, start, stop int64, rev bool) ([]string, error)

	// ZRangeByScore returns members whose score lies within the given
	// bounds. Bounds use Redis score syntax: "-inf", "+inf", "(5" for an
	// exclusive bound, "5" for an inclusive one.
	ZRangeByScore(ctx context.Context, key, min, max string) ([]string, error)

	// ZRangeStoreByScore stores at dest, with the given expiry, the members
	// of src whose score lies within the given bounds, keeping their scores.
	// Returns the cardinality of the result.
	ZRangeStoreByScore(ctx context.Context, dest, src, min, max string, ttl time.Duration) (int64, error)

	// ZInterStore stores the weighted intersection of the given keys at dest
	// with the given expiry, returning the cardinality of the result. Plain
	// sets participate with member score 1 before weighting. weights may be
	// nil, meaning weight 1 for every input.
	ZInterStore(ctx context.Context, dest string, ttl time.Duration, keys []string, weights []float64) (int64, error)

	// HSet sets one entry of a hash.
	HSet(ctx context.Context, key, field, value string) error

	// HGet retrieves one entry of a hash. The second return value reports
	// whether the entry existed.
	HGet(ctx context.Context, key, field string) (string, bool, error)

	// HDel removes entries from a hash, returning the number removed.
	HDel(ctx context.Context, key string, fields ...string) (int64, error)

	// HGetAll returns all entries of a hash.
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	// HLen returns the number of entries in a hash.
	HLen(ctx context.Context, key string) (int64, error)

	// LPush prepends values to a list, returning the new length.
	LPush(ctx context.Context, key string, values ...string) (int64, error)

	// RPush appends values to a list, returning the new length.
	RPush(ctx context.Context, key string, values ...string) (int64, error)

	// LPop removes and returns the first element of a list. The second
	// return value is false if the list was empty.
	LPop(ctx context.Context, key string) (string, bool, error)

	// RPop removes and returns the last element of a list. The second return
	// value is false if the list was empty.
	RPop(ctx context.Context, key string) (string, bool, error)

	// LRange returns list elements between the given ranks, inclusive.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// LLen returns the length of a list.
	LLen(ctx context.Context, key string) (int64, error)

	// LRem removes occurrences of value from a list following Redis LREM
	// count semantics, returning the number removed.
	LRem(ctx context.Context, key string, count int64, value string) (int64, error)

	// LSet overwrites the element at the given rank.
	LSet(ctx context.Context, key string, index int64, value string) error

	// LIndex returns the element at the given rank. The second return value
	// is false if the rank is out of range.
	LIndex(ctx context.Context, key string, index int64) (string, bool, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close closes the connection to the store and releases resources.
	Close() error
}
