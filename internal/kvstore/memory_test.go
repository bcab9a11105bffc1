package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryScalar(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", "v1"))
	value, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v1", value)

	require.NoError(t, store.Set(ctx, "k", "v2"))
	value, _, _ = store.Get(ctx, "k")
	assert.Equal(t, "v2", value)

	require.NoError(t, store.Del(ctx, "k"))
	_, ok, _ = store.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryIncr(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	n, err := store.Incr(ctx, "seq")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.Incr(ctx, "seq")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, store.Set(ctx, "text", "abc"))
	_, err = store.Incr(ctx, "text")
	assert.Error(t, err)
}

func TestMemorySetOps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	added, err := store.SAdd(ctx, "s", "a", "b", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)

	card, _ := store.SCard(ctx, "s")
	assert.Equal(t, int64(2), card)

	ok, _ := store.SIsMember(ctx, "s", "a")
	assert.True(t, ok)
	ok, _ = store.SIsMember(ctx, "s", "z")
	assert.False(t, ok)

	members, _ := store.SMembers(ctx, "s")
	assert.ElementsMatch(t, []string{"a", "b"}, members)

	removed, _ := store.SRem(ctx, "s", "a", "z")
	assert.Equal(t, int64(1), removed)

	// Removing the last member drops the key entirely, like Redis does.
	_, err = store.SRem(ctx, "s", "b")
	require.NoError(t, err)
	exists, _ := store.Exists(ctx, "s")
	assert.False(t, exists)
}

func TestMemorySInterStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.SAdd(ctx, "a", "1", "2", "3")
	store.SAdd(ctx, "b", "2", "3", "4")

	n, err := store.SInterStore(ctx, "dest", time.Minute, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	members, _ := store.SMembers(ctx, "dest")
	assert.ElementsMatch(t, []string{"2", "3"}, members)

	// Empty intersection deletes the destination.
	store.SAdd(ctx, "c", "9")
	n, err = store.SInterStore(ctx, "dest", time.Minute, "a", "c")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	exists, _ := store.Exists(ctx, "dest")
	assert.False(t, exists)
}

func TestMemorySUnionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.SAdd(ctx, "a", "1", "2")
	store.SAdd(ctx, "b", "2", "3")

	n, err := store.SUnionStore(ctx, "dest", time.Minute, "a", "b", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	members, _ := store.SMembers(ctx, "dest")
	assert.ElementsMatch(t, []string{"1", "2", "3"}, members)
}

func TestMemoryZSetOps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.ZAdd(ctx, "z", 3, "c"))
	require.NoError(t, store.ZAdd(ctx, "z", 1, "a"))
	require.NoError(t, store.ZAdd(ctx, "z", 2, "b"))

	card, _ := store.ZCard(ctx, "z")
	assert.Equal(t, int64(3), card)

	score, ok, _ := store.ZScore(ctx, "z", "b")
	require.True(t, ok)
	assert.Equal(t, 2.0, score)

	members, err := store.ZRange(ctx, "z", 0, -1, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, members)

	members, _ = store.ZRange(ctx, "z", 0, -1, true)
	assert.Equal(t, []string{"c", "b", "a"}, members)

	members, _ = store.ZRange(ctx, "z", 0, 1, false)
	assert.Equal(t, []string{"a", "b"}, members)

	removed, _ := store.ZRem(ctx, "z", "a", "missing")
	assert.Equal(t, int64(1), removed)
}

func TestMemoryZRangeByScoreBounds(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.ZAdd(ctx, "z", 10, "a")
	store.ZAdd(ctx, "z", 20, "b")
	store.ZAdd(ctx, "z", 30, "c")

	members, err := store.ZRangeByScore(ctx, "z", "10", "30")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, members)

	members, _ = store.ZRangeByScore(ctx, "z", "(10", "30")
	assert.Equal(t, []string{"b", "c"}, members)

	members, _ = store.ZRangeByScore(ctx, "z", "-inf", "(30")
	assert.Equal(t, []string{"a", "b"}, members)

	members, _ = store.ZRangeByScore(ctx, "z", "20", "+inf")
	assert.Equal(t, []string{"b", "c"}, members)
}

func TestMemoryZRangeStoreByScore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.ZAdd(ctx, "z", 10, "a")
	store.ZAdd(ctx, "z", 20, "b")
	store.ZAdd(ctx, "z", 30, "c")

	n, err := store.ZRangeStoreByScore(ctx, "dest", "z", "15", "+inf", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Scores survive the copy.
	score, ok, _ := store.ZScore(ctx, "dest", "b")
	require.True(t, ok)
	assert.Equal(t, 20.0, score)

	members, _ := store.ZRange(ctx, "dest", 0, -1, false)
	assert.Equal(t, []string{"b", "c"}, members)
}

func TestMemoryZInterStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// Mixing a plain set and a sorted set: set members weigh in at score 1.
	store.SAdd(ctx, "s", "a", "b")
	store.ZAdd(ctx, "z", 10, "b")
	store.ZAdd(ctx, "z", 20, "c")

	n, err := store.ZInterStore(ctx, "dest", time.Minute, []string{"s", "z"}, []float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	score, ok, _ := store.ZScore(ctx, "dest", "b")
	require.True(t, ok)
	assert.Equal(t, 10.0, score)

	// nil weights default to 1 everywhere.
	n, err = store.ZInterStore(ctx, "dest2", time.Minute, []string{"s", "z"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	score, _, _ = store.ZScore(ctx, "dest2", "b")
	assert.Equal(t, 11.0, score)
}

func TestMemoryHashOps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.HSet(ctx, "h", "f1", "v1"))
	require.NoError(t, store.HSet(ctx, "h", "f2", "v2"))

	value, ok, _ := store.HGet(ctx, "h", "f1")
	require.True(t, ok)
	assert.Equal(t, "v1", value)

	all, _ := store.HGetAll(ctx, "h")
	assert.Equal(t, map[string]string{"f1": "v1", "f2": "v2"}, all)

	n, _ := store.HLen(ctx, "h")
	assert.Equal(t, int64(2), n)

	removed, _ := store.HDel(ctx, "h", "f1", "missing")
	assert.Equal(t, int64(1), removed)
}

func TestMemoryListOps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	n, err := store.RPush(ctx, "l", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, _ = store.LPush(ctx, "l", "z")
	assert.Equal(t, int64(3), n)

	values, _ := store.LRange(ctx, "l", 0, -1)
	assert.Equal(t, []string{"z", "a", "b"}, values)

	value, ok, _ := store.LIndex(ctx, "l", 1)
	require.True(t, ok)
	assert.Equal(t, "a", value)

	require.NoError(t, store.LSet(ctx, "l", 1, "A"))
	value, _, _ = store.LIndex(ctx, "l", 1)
	assert.Equal(t, "A", value)

	value, ok, _ = store.LPop(ctx, "l")
	require.True(t, ok)
	assert.Equal(t, "z", value)

	value, ok, _ = store.RPop(ctx, "l")
	require.True(t, ok)
	assert.Equal(t, "b", value)
}

func TestMemoryLRem(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.RPush(ctx, "l", "a", "b", "a", "c", "a")

	// count 0 removes every occurrence.
	removed, _ := store.LRem(ctx, "l", 0, "a")
	assert.Equal(t, int64(3), removed)
	values, _ := store.LRange(ctx, "l", 0, -1)
	assert.Equal(t, []string{"b", "c"}, values)

	store.Del(ctx, "l")
	store.RPush(ctx, "l", "a", "b", "a", "c", "a")

	// positive count removes from the head.
	removed, _ = store.LRem(ctx, "l", 2, "a")
	assert.Equal(t, int64(2), removed)
	values, _ = store.LRange(ctx, "l", 0, -1)
	assert.Equal(t, []string{"b", "c", "a"}, values)

	store.Del(ctx, "l")
	store.RPush(ctx, "l", "a", "b", "a", "c", "a")

	// negative count removes from the tail.
	removed, _ = store.LRem(ctx, "l", -2, "a")
	assert.Equal(t, int64(2), removed)
	values, _ = store.LRange(ctx, "l", 0, -1)
	assert.Equal(t, []string{"a", "b", "c"}, values)
}

func TestMemoryWrongType(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", "v"))
	_, err := store.SAdd(ctx, "k", "a")
	assert.Error(t, err)
	_, err = store.LPush(ctx, "k", "a")
	assert.Error(t, err)
	err = store.HSet(ctx, "k", "f", "v")
	assert.Error(t, err)
}

func TestMemoryExpire(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", "v"))
	require.NoError(t, store.Expire(ctx, "k", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	_, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryExpiredAggregateInputs(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.SAdd(ctx, "live", "a", "b")
	require.NoError(t, err)
	_, err = store.SAdd(ctx, "gone", "a", "b")
	require.NoError(t, err)
	require.NoError(t, store.Expire(ctx, "gone", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	// An expired input counts as missing, so the intersection is empty.
	count, err := store.SInterStore(ctx, "dest", 0, "live", "gone")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
	ok, err := store.Exists(ctx, "dest")
	require.NoError(t, err)
	assert.False(t, ok)

	// Same for the union and the weighted zset intersection.
	count, err = store.SUnionStore(ctx, "dest", 0, "live", "gone")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	err = store.ZAdd(ctx, "zgone", 1, "a")
	require.NoError(t, err)
	require.NoError(t, store.Expire(ctx, "zgone", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	count, err = store.ZInterStore(ctx, "zdest", 0, []string{"live", "zgone"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestFactoryRegistration(t *testing.T) {
	assert.True(t, IsTypeRegistered("memory"))
	assert.True(t, IsTypeRegistered("redis"))

	store, err := Create(StoreConfig{Type: "memory"})
	require.NoError(t, err)
	require.NoError(t, store.Ping(context.Background()))
	require.NoError(t, store.Close())

	_, err = Create(StoreConfig{Type: "nope"})
	assert.Error(t, err)
}
