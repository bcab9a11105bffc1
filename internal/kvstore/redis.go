package kvstore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rzpsarthak13/redimap/internal/core"
)

// RedisStore implements the core.Store interface using Redis.
type RedisStore struct {
	client *redis.Client
	closed bool
}

// NewRedisStore creates a new Redis store implementation.
func NewRedisStore(endpoints []string, password string, db int, poolSize int, minIdleConns int, dialTimeout, readTimeout, writeTimeout time.Duration) (*RedisStore, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("at least one endpoint is required")
	}

	// Single-node Redis only; the engine needs cross-key commands
	// (SINTERSTORE, ZRANGESTORE) that cluster mode cannot run server-side
	// across slots.
	opts := &redis.Options{
		Addr:         endpoints[0],
		Password:     password,
		DB:           db,
		PoolSize:     poolSize,
		MinIdleConns: minIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to connect to Redis: %v", core.ErrStoreUnavailable, err)
	}

	log.Printf("[REDIS] Connected to %s (db %d)", endpoints[0], db)

	return &RedisStore{
		client: client,
		closed: false,
	}, nil
}

// wrap converts a transport error into the engine's store-unavailable kind.
func wrap(op, key string, err error) error {
	return fmt.Errorf("%w: %s %s: %v", core.ErrStoreUnavailable, op, key, err)
}

// Get retrieves a scalar value by key.
func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("GET", key, err)
	}
	return val, true, nil
}

// Set stores a scalar value.
func (r *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return wrap("SET", key, err)
	}
	return nil
}

// Del removes the given keys.
func (r *RedisStore) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return wrap("DEL", keys[0], err)
	}
	return nil
}

// Exists checks if a key exists in the store.
func (r *RedisStore) Exists(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return false, wrap("EXISTS", key, err)
	}
	return count > 0, nil
}

// Incr atomically increments the integer value at key.
func (r *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	val, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, wrap("INCR", key, err)
	}
	return val, nil
}

// Expire sets a time-to-live on a key.
func (r *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
		return wrap("EXPIRE", key, err)
	}
	return nil
}

// SAdd adds members to a set.
func (r *RedisStore) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	added, err := r.client.SAdd(ctx, key, args...).Result()
	if err != nil {
		return 0, wrap("SADD", key, err)
	}
	return added, nil
}

// SRem removes members from a set.
func (r *RedisStore) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	removed, err := r.client.SRem(ctx, key, args...).Result()
	if err != nil {
		return 0, wrap("SREM", key, err)
	}
	return removed, nil
}

// SMembers returns all members of a set.
func (r *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, wrap("SMEMBERS", key, err)
	}
	return members, nil
}

// SCard returns the cardinality of a set.
func (r *RedisStore) SCard(ctx context.Context, key string) (int64, error) {
	card, err := r.client.SCard(ctx, key).Result()
	if err != nil {
		return 0, wrap("SCARD", key, err)
	}
	return card, nil
}

// SIsMember checks set membership.
func (r *RedisStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, wrap("SISMEMBER", key, err)
	}
	return ok, nil
}

// SPop removes and returns a random member of a set.
func (r *RedisStore) SPop(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.SPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("SPOP", key, err)
	}
	return val, true, nil
}

// SInterStore stores the intersection of the given sets at dest with the
// given expiry. The expiry rides in the same pipeline so a killed client
// cannot leave an immortal destination key behind.
func (r *RedisStore) SInterStore(ctx context.Context, dest string, ttl time.Duration, keys ...string) (int64, error) {
	pipe := r.client.TxPipeline()
	card := pipe.SInterStore(ctx, dest, keys...)
	if ttl > 0 {
		pipe.Expire(ctx, dest, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, wrap("SINTERSTORE", dest, err)
	}
	return card.Val(), nil
}

// SUnionStore stores the union of the given sets at dest with the given
// expiry.
func (r *RedisStore) SUnionStore(ctx context.Context, dest string, ttl time.Duration, keys ...string) (int64, error) {
	pipe := r.client.TxPipeline()
	card := pipe.SUnionStore(ctx, dest, keys...)
	if ttl > 0 {
		pipe.Expire(ctx, dest, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, wrap("SUNIONSTORE", dest, err)
	}
	return card.Val(), nil
}

// ZAdd adds a member with the given score to a sorted set.
func (r *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	if err := r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err(); err != nil {
		return wrap("ZADD", key, err)
	}
	return nil
}

// ZRem removes members from a sorted set.
func (r *RedisStore) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	removed, err := r.client.ZRem(ctx, key, args...).Result()
	if err != nil {
		return 0, wrap("ZREM", key, err)
	}
	return removed, nil
}

// ZIncrBy increments the score of a member.
func (r *RedisStore) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	score, err := r.client.ZIncrBy(ctx, key, delta, member).Result()
	if err != nil {
		return 0, wrap("ZINCRBY", key, err)
	}
	return score, nil
}

// ZCard returns the cardinality of a sorted set.
func (r *RedisStore) ZCard(ctx context.Context, key string) (int64, error) {
	card, err := r.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, wrap("ZCARD", key, err)
	}
	return card, nil
}

// ZScore returns the score of a member.
func (r *RedisStore) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := r.client.ZScore(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrap("ZSCORE", key, err)
	}
	return score, true, nil
}

// ZRange returns members of a sorted set by rank.
func (r *RedisStore) ZRange(ctx context.Context, key string, start, stop int64, rev bool) ([]string, error) {
	var cmd *redis.StringSliceCmd
	if rev {
		cmd = r.client.ZRevRange(ctx, key, start, stop)
	} else {
		cmd = r.client.ZRange(ctx, key, start, stop)
	}
	members, err := cmd.Result()
	if err != nil {
		return nil, wrap("ZRANGE", key, err)
	}
	return members, nil
}

// ZRangeByScore returns members whose score lies within the given bounds.
func (r *RedisStore) ZRangeByScore(ctx context.Context, key, min, max string) ([]string, error) {
	members, err := r.client.ZRangeByScore(ctx, key, &redis.ZRangeBy{Min: min, Max: max}).Result()
	if err != nil {
		return nil, wrap("ZRANGEBYSCORE", key, err)
	}
	return members, nil
}

// ZRangeStoreByScore stores the score-bounded slice of src at dest with the
// given expiry.
func (r *RedisStore) ZRangeStoreByScore(ctx context.Context, dest, src, min, max string, ttl time.Duration) (int64, error) {
	pipe := r.client.TxPipeline()
	card := pipe.ZRangeStore(ctx, dest, redis.ZRangeArgs{
		Key:     src,
		Start:   min,
		Stop:    max,
		ByScore: true,
	})
	if ttl > 0 {
		pipe.Expire(ctx, dest, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, wrap("ZRANGESTORE", dest, err)
	}
	return card.Val(), nil
}

// ZInterStore stores the weighted intersection of the given keys at dest
// with the given expiry. Plain sets participate with score 1.
func (r *RedisStore) ZInterStore(ctx context.Context, dest string, ttl time.Duration, keys []string, weights []float64) (int64, error) {
	zstore := &redis.ZStore{Keys: keys, Weights: weights}
	pipe := r.client.TxPipeline()
	card := pipe.ZInterStore(ctx, dest, zstore)
	if ttl > 0 {
		pipe.Expire(ctx, dest, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, wrap("ZINTERSTORE", dest, err)
	}
	return card.Val(), nil
}

// HSet sets one entry of a hash.
func (r *RedisStore) HSet(ctx context.Context, key, field, value string) error {
	if err := r.client.HSet(ctx, key, field, value).Err(); err != nil {
		return wrap("HSET", key, err)
	}
	return nil
}

// HGet retrieves one entry of a hash.
func (r *RedisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	val, err := r.client.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("HGET", key, err)
	}
	return val, true, nil
}

// HDel removes entries from a hash.
func (r *RedisStore) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	removed, err := r.client.HDel(ctx, key, fields...).Result()
	if err != nil {
		return 0, wrap("HDEL", key, err)
	}
	return removed, nil
}

// HGetAll returns all entries of a hash.
func (r *RedisStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	entries, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrap("HGETALL", key, err)
	}
	return entries, nil
}

// HLen returns the number of entries in a hash.
func (r *RedisStore) HLen(ctx context.Context, key string) (int64, error) {
	n, err := r.client.HLen(ctx, key).Result()
	if err != nil {
		return 0, wrap("HLEN", key, err)
	}
	return n, nil
}

// LPush prepends values to a list.
func (r *RedisStore) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	length, err := r.client.LPush(ctx, key, args...).Result()
	if err != nil {
		return 0, wrap("LPUSH", key, err)
	}
	return length, nil
}

// RPush appends values to a list.
func (r *RedisStore) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}
	length, err := r.client.RPush(ctx, key, args...).Result()
	if err != nil {
		return 0, wrap("RPUSH", key, err)
	}
	return length, nil
}

// LPop removes and returns the first element of a list.
func (r *RedisStore) LPop(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.LPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("LPOP", key, err)
	}
	return val, true, nil
}

// RPop removes and returns the last element of a list.
func (r *RedisStore) RPop(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.RPop(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("RPOP", key, err)
	}
	return val, true, nil
}

// LRange returns list elements between the given ranks.
func (r *RedisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrap("LRANGE", key, err)
	}
	return vals, nil
}

// LLen returns the length of a list.
func (r *RedisStore) LLen(ctx context.Context, key string) (int64, error) {
	length, err := r.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, wrap("LLEN", key, err)
	}
	return length, nil
}

// LRem removes occurrences of value from a list.
func (r *RedisStore) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	removed, err := r.client.LRem(ctx, key, count, value).Result()
	if err != nil {
		return 0, wrap("LREM", key, err)
	}
	return removed, nil
}

// LSet overwrites the element at the given rank.
func (r *RedisStore) LSet(ctx context.Context, key string, index int64, value string) error {
	if err := r.client.LSet(ctx, key, index, value).Err(); err != nil {
		return wrap("LSET", key, err)
	}
	return nil
}

// LIndex returns the element at the given rank.
func (r *RedisStore) LIndex(ctx context.Context, key string, index int64) (string, bool, error) {
	val, err := r.client.LIndex(ctx, key, index).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("LINDEX", key, err)
	}
	return val, true, nil
}

// Ping verifies the store is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return wrap("PING", "", err)
	}
	return nil
}

// Close closes the connection to the store.
func (r *RedisStore) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	log.Printf("[REDIS] Closing connection")
	return r.client.Close()
}

// RedisStoreFactory implements the StoreFactory interface for Redis.
type RedisStoreFactory struct{}

// Type returns the type identifier for this factory.
func (f *RedisStoreFactory) Type() string {
	return "redis"
}

// Validate validates the Redis-specific configuration.
func (f *RedisStoreFactory) Validate(config StoreConfig) error {
	if config.Type != "redis" {
		return fmt.Errorf("invalid type for Redis factory: %s", config.Type)
	}
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required for Redis")
	}
	if config.DB < 0 || config.DB > 15 {
		return fmt.Errorf("Redis DB must be between 0 and 15, got: %d", config.DB)
	}
	if config.PoolSize <= 0 {
		return fmt.Errorf("pool_size must be greater than 0, got: %d", config.PoolSize)
	}
	if config.MinIdleConns < 0 {
		return fmt.Errorf("min_idle_conns must be non-negative, got: %d", config.MinIdleConns)
	}
	if config.DialTimeout <= 0 {
		return fmt.Errorf("dial_timeout must be greater than 0, got: %d", config.DialTimeout)
	}
	if config.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be greater than 0, got: %d", config.ReadTimeout)
	}
	if config.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be greater than 0, got: %d", config.WriteTimeout)
	}
	return nil
}

// Create creates a new Redis store instance based on the provided configuration.
func (f *RedisStoreFactory) Create(config StoreConfig) (core.Store, error) {
	store, err := NewRedisStore(
		config.Endpoints,
		config.Password,
		config.DB,
		config.PoolSize,
		config.MinIdleConns,
		time.Duration(config.DialTimeout),
		time.Duration(config.ReadTimeout),
		time.Duration(config.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis store: %w", err)
	}
	return store, nil
}

// init auto-registers the Redis factory on package initialization.
func init() {
	RegisterFactory(&RedisStoreFactory{})
}
