package kvstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rzpsarthak13/redimap/internal/core"
)

// MemoryStore is an in-memory implementation of core.Store with the same
// command semantics as the Redis implementation, including destination
// expiry. It is used by tests and by deployments that configure the
// "memory" store type.
type MemoryStore struct {
	mu     sync.Mutex
	data   map[string]*memEntry
	closed bool
}

type memEntry struct {
	scalar string
	set    map[string]struct{}
	zset   map[string]float64
	hash   map[string]string
	list   []string
	kind   string // "string", "set", "zset", "hash", "list"

	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*memEntry)}
}

func (m *MemoryStore) entry(key, kind string, create bool) (*memEntry, error) {
	e, ok := m.data[key]
	if ok && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.data, key)
		ok = false
	}
	if !ok {
		if !create {
			return nil, nil
		}
		e = &memEntry{kind: kind}
		switch kind {
		case "set":
			e.set = make(map[string]struct{})
		case "zset":
			e.zset = make(map[string]float64)
		case "hash":
			e.hash = make(map[string]string)
		}
		m.data[key] = e
	}
	if e.kind != kind {
		return nil, fmt.Errorf("WRONGTYPE key %s holds %s, want %s", key, e.kind, kind)
	}
	return e, nil
}

// dropIfEmpty removes container keys that became empty, matching Redis
// behaviour where empty aggregates do not exist.
func (m *MemoryStore) dropIfEmpty(key string) {
	e, ok := m.data[key]
	if !ok {
		return
	}
	switch e.kind {
	case "set":
		if len(e.set) == 0 {
			delete(m.data, key)
		}
	case "zset":
		if len(e.zset) == 0 {
			delete(m.data, key)
		}
	case "hash":
		if len(e.hash) == 0 {
			delete(m.data, key)
		}
	case "list":
		if len(e.list) == 0 {
			delete(m.data, key)
		}
	}
}

// Get retrieves a scalar value by key.
func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "string", false)
	if err != nil {
		return "", false, err
	}
	if e == nil {
		return "", false, nil
	}
	return e.scalar, true, nil
}

// Set stores a scalar value.
func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	m.data[key] = &memEntry{kind: "string", scalar: value}
	return nil
}

// Del removes the given keys.
func (m *MemoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// Exists checks if a key exists.
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if ok && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.data, key)
		ok = false
	}
	return ok, nil
}

// Incr atomically increments the integer value at key.
func (m *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "string", true)
	if err != nil {
		return 0, err
	}
	var current int64
	if e.scalar != "" {
		current, err = strconv.ParseInt(e.scalar, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %s is not an integer", key)
		}
	}
	current++
	e.scalar = strconv.FormatInt(current, 10)
	return current, nil
}

// Expire sets a time-to-live on an existing key.
func (m *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.data[key]; ok {
		e.expiresAt = time.Now().Add(ttl)
	}
	return nil
}

// SAdd adds members to a set.
func (m *MemoryStore) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "set", true)
	if err != nil {
		return 0, err
	}
	var added int64
	for _, member := range members {
		if _, ok := e.set[member]; !ok {
			e.set[member] = struct{}{}
			added++
		}
	}
	return added, nil
}

// SRem removes members from a set.
func (m *MemoryStore) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "set", false)
	if err != nil || e == nil {
		return 0, err
	}
	var removed int64
	for _, member := range members {
		if _, ok := e.set[member]; ok {
			delete(e.set, member)
			removed++
		}
	}
	m.dropIfEmpty(key)
	return removed, nil
}

// SMembers returns all members of a set.
func (m *MemoryStore) SMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "set", false)
	if err != nil || e == nil {
		return nil, err
	}
	members := make([]string, 0, len(e.set))
	for member := range e.set {
		members = append(members, member)
	}
	return members, nil
}

// SCard returns the cardinality of a set.
func (m *MemoryStore) SCard(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "set", false)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.set)), nil
}

// SIsMember checks set membership.
func (m *MemoryStore) SIsMember(ctx context.Context, key, member string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "set", false)
	if err != nil || e == nil {
		return false, err
	}
	_, ok := e.set[member]
	return ok, nil
}

// SPop removes and returns a random member of a set.
func (m *MemoryStore) SPop(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "set", false)
	if err != nil || e == nil {
		return "", false, err
	}
	for member := range e.set {
		delete(e.set, member)
		m.dropIfEmpty(key)
		return member, true, nil
	}
	return "", false, nil
}

func (m *MemoryStore) setMembers(key string) (map[string]struct{}, error) {
	e, ok := m.data[key]
	if ok && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.data, key)
		ok = false
	}
	if !ok {
		return map[string]struct{}{}, nil
	}
	switch e.kind {
	case "set":
		return e.set, nil
	case "zset":
		members := make(map[string]struct{}, len(e.zset))
		for member := range e.zset {
			members[member] = struct{}{}
		}
		return members, nil
	default:
		return nil, fmt.Errorf("WRONGTYPE key %s holds %s, want set", key, e.kind)
	}
}

func (m *MemoryStore) storeSet(dest string, members map[string]struct{}, ttl time.Duration) {
	delete(m.data, dest)
	if len(members) == 0 {
		return
	}
	e := &memEntry{kind: "set", set: members}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.data[dest] = e
}

// SInterStore stores the intersection of the given sets at dest.
func (m *MemoryStore) SInterStore(ctx context.Context, dest string, ttl time.Duration, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]struct{})
	for i, key := range keys {
		members, err := m.setMembers(key)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			for member := range members {
				result[member] = struct{}{}
			}
			continue
		}
		for member := range result {
			if _, ok := members[member]; !ok {
				delete(result, member)
			}
		}
	}
	card := int64(len(result))
	m.storeSet(dest, result, ttl)
	return card, nil
}

// SUnionStore stores the union of the given sets at dest.
func (m *MemoryStore) SUnionStore(ctx context.Context, dest string, ttl time.Duration, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]struct{})
	for _, key := range keys {
		members, err := m.setMembers(key)
		if err != nil {
			return 0, err
		}
		for member := range members {
			result[member] = struct{}{}
		}
	}
	card := int64(len(result))
	m.storeSet(dest, result, ttl)
	return card, nil
}

// ZAdd adds a member with the given score to a sorted set.
func (m *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "zset", true)
	if err != nil {
		return err
	}
	e.zset[member] = score
	return nil
}

// ZRem removes members from a sorted set.
func (m *MemoryStore) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "zset", false)
	if err != nil || e == nil {
		return 0, err
	}
	var removed int64
	for _, member := range members {
		if _, ok := e.zset[member]; ok {
			delete(e.zset, member)
			removed++
		}
	}
	m.dropIfEmpty(key)
	return removed, nil
}

// ZIncrBy increments the score of a member.
func (m *MemoryStore) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "zset", true)
	if err != nil {
		return 0, err
	}
	e.zset[member] += delta
	return e.zset[member], nil
}

// ZCard returns the cardinality of a sorted set.
func (m *MemoryStore) ZCard(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "zset", false)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.zset)), nil
}

// ZScore returns the score of a member.
func (m *MemoryStore) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "zset", false)
	if err != nil || e == nil {
		return 0, false, err
	}
	score, ok := e.zset[member]
	return score, ok, nil
}

// sortedMembers returns zset members ordered by (score, member), Redis order.
func sortedMembers(zset map[string]float64) []string {
	members := make([]string, 0, len(zset))
	for member := range zset {
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool {
		si, sj := zset[members[i]], zset[members[j]]
		if si != sj {
			return si < sj
		}
		return members[i] < members[j]
	})
	return members
}

// ZRange returns members of a sorted set by rank.
func (m *MemoryStore) ZRange(ctx context.Context, key string, start, stop int64, rev bool) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "zset", false)
	if err != nil || e == nil {
		return nil, err
	}
	members := sortedMembers(e.zset)
	if rev {
		for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
			members[i], members[j] = members[j], members[i]
		}
	}
	n := int64(len(members))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if start >= n || stop < start {
		return nil, nil
	}
	if stop >= n {
		stop = n - 1
	}
	return members[start : stop+1], nil
}

// scoreBound parses a Redis score bound: "-inf", "+inf", "(x" (exclusive)
// or "x" (inclusive).
func scoreBound(bound string) (value float64, inclusive bool, err error) {
	inclusive = true
	if strings.HasPrefix(bound, "(") {
		inclusive = false
		bound = bound[1:]
	}
	switch strings.ToLower(bound) {
	case "-inf":
		return math.Inf(-1), inclusive, nil
	case "+inf", "inf":
		return math.Inf(1), inclusive, nil
	}
	value, err = strconv.ParseFloat(bound, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid score bound %q", bound)
	}
	return value, inclusive, nil
}

func inScoreRange(score float64, min, max string) (bool, error) {
	minVal, minIncl, err := scoreBound(min)
	if err != nil {
		return false, err
	}
	maxVal, maxIncl, err := scoreBound(max)
	if err != nil {
		return false, err
	}
	if minIncl {
		if score < minVal {
			return false, nil
		}
	} else if score <= minVal {
		return false, nil
	}
	if maxIncl {
		if score > maxVal {
			return false, nil
		}
	} else if score >= maxVal {
		return false, nil
	}
	return true, nil
}

// ZRangeByScore returns members within the given score bounds, ascending.
func (m *MemoryStore) ZRangeByScore(ctx context.Context, key, min, max string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "zset", false)
	if err != nil || e == nil {
		return nil, err
	}
	var result []string
	for _, member := range sortedMembers(e.zset) {
		ok, err := inScoreRange(e.zset[member], min, max)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, member)
		}
	}
	return result, nil
}

// ZRangeStoreByScore stores the score-bounded slice of src at dest.
func (m *MemoryStore) ZRangeStoreByScore(ctx context.Context, dest, src, min, max string, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(src, "zset", false)
	if err != nil {
		return 0, err
	}
	result := make(map[string]float64)
	if e != nil {
		for member, score := range e.zset {
			ok, err := inScoreRange(score, min, max)
			if err != nil {
				return 0, err
			}
			if ok {
				result[member] = score
			}
		}
	}
	delete(m.data, dest)
	card := int64(len(result))
	if card > 0 {
		ne := &memEntry{kind: "zset", zset: result}
		if ttl > 0 {
			ne.expiresAt = time.Now().Add(ttl)
		}
		m.data[dest] = ne
	}
	return card, nil
}

func (m *MemoryStore) scoredMembers(key string) (map[string]float64, error) {
	e, ok := m.data[key]
	if ok && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.data, key)
		ok = false
	}
	if !ok {
		return map[string]float64{}, nil
	}
	switch e.kind {
	case "zset":
		return e.zset, nil
	case "set":
		scored := make(map[string]float64, len(e.set))
		for member := range e.set {
			scored[member] = 1
		}
		return scored, nil
	default:
		return nil, fmt.Errorf("WRONGTYPE key %s holds %s, want zset", key, e.kind)
	}
}

// ZInterStore stores the weighted intersection of the given keys at dest.
func (m *MemoryStore) ZInterStore(ctx context.Context, dest string, ttl time.Duration, keys []string, weights []float64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make(map[string]float64)
	for i, key := range keys {
		weight := 1.0
		if weights != nil {
			weight = weights[i]
		}
		scored, err := m.scoredMembers(key)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			for member, score := range scored {
				result[member] = score * weight
			}
			continue
		}
		for member := range result {
			score, ok := scored[member]
			if !ok {
				delete(result, member)
				continue
			}
			result[member] += score * weight
		}
	}
	delete(m.data, dest)
	card := int64(len(result))
	if card > 0 {
		ne := &memEntry{kind: "zset", zset: result}
		if ttl > 0 {
			ne.expiresAt = time.Now().Add(ttl)
		}
		m.data[dest] = ne
	}
	return card, nil
}

// HSet sets one entry of a hash.
func (m *MemoryStore) HSet(ctx context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "hash", true)
	if err != nil {
		return err
	}
	e.hash[field] = value
	return nil
}

// HGet retrieves one entry of a hash.
func (m *MemoryStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "hash", false)
	if err != nil || e == nil {
		return "", false, err
	}
	val, ok := e.hash[field]
	return val, ok, nil
}

// HDel removes entries from a hash.
func (m *MemoryStore) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "hash", false)
	if err != nil || e == nil {
		return 0, err
	}
	var removed int64
	for _, field := range fields {
		if _, ok := e.hash[field]; ok {
			delete(e.hash, field)
			removed++
		}
	}
	m.dropIfEmpty(key)
	return removed, nil
}

// HGetAll returns all entries of a hash.
func (m *MemoryStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "hash", false)
	if err != nil || e == nil {
		return map[string]string{}, err
	}
	entries := make(map[string]string, len(e.hash))
	for field, value := range e.hash {
		entries[field] = value
	}
	return entries, nil
}

// HLen returns the number of entries in a hash.
func (m *MemoryStore) HLen(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "hash", false)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.hash)), nil
}

// LPush prepends values to a list.
func (m *MemoryStore) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "list", true)
	if err != nil {
		return 0, err
	}
	for _, v := range values {
		e.list = append([]string{v}, e.list...)
	}
	return int64(len(e.list)), nil
}

// RPush appends values to a list.
func (m *MemoryStore) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "list", true)
	if err != nil {
		return 0, err
	}
	e.list = append(e.list, values...)
	return int64(len(e.list)), nil
}

// LPop removes and returns the first element of a list.
func (m *MemoryStore) LPop(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "list", false)
	if err != nil || e == nil || len(e.list) == 0 {
		return "", false, err
	}
	val := e.list[0]
	e.list = e.list[1:]
	m.dropIfEmpty(key)
	return val, true, nil
}

// RPop removes and returns the last element of a list.
func (m *MemoryStore) RPop(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "list", false)
	if err != nil || e == nil || len(e.list) == 0 {
		return "", false, err
	}
	val := e.list[len(e.list)-1]
	e.list = e.list[:len(e.list)-1]
	m.dropIfEmpty(key)
	return val, true, nil
}

// LRange returns list elements between the given ranks.
func (m *MemoryStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "list", false)
	if err != nil || e == nil {
		return nil, err
	}
	n := int64(len(e.list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if start >= n || stop < start {
		return nil, nil
	}
	if stop >= n {
		stop = n - 1
	}
	out := make([]string, stop-start+1)
	copy(out, e.list[start:stop+1])
	return out, nil
}

// LLen returns the length of a list.
func (m *MemoryStore) LLen(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "list", false)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.list)), nil
}

// LRem removes occurrences of value from a list with Redis count semantics.
func (m *MemoryStore) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "list", false)
	if err != nil || e == nil {
		return 0, err
	}
	var removed int64
	limit := count
	if limit < 0 {
		limit = -limit
	}
	keep := make([]string, 0, len(e.list))
	if count >= 0 {
		for _, v := range e.list {
			if v == value && (count == 0 || removed < limit) {
				removed++
				continue
			}
			keep = append(keep, v)
		}
	} else {
		for i := len(e.list) - 1; i >= 0; i-- {
			v := e.list[i]
			if v == value && removed < limit {
				removed++
				continue
			}
			keep = append([]string{v}, keep...)
		}
	}
	e.list = keep
	m.dropIfEmpty(key)
	return removed, nil
}

// LSet overwrites the element at the given rank.
func (m *MemoryStore) LSet(ctx context.Context, key string, index int64, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "list", false)
	if err != nil {
		return err
	}
	if e == nil {
		return fmt.Errorf("no such key %s", key)
	}
	n := int64(len(e.list))
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return fmt.Errorf("index out of range for %s", key)
	}
	e.list[index] = value
	return nil
}

// LIndex returns the element at the given rank.
func (m *MemoryStore) LIndex(ctx context.Context, key string, index int64) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entry(key, "list", false)
	if err != nil || e == nil {
		return "", false, err
	}
	n := int64(len(e.list))
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return "", false, nil
	}
	return e.list[index], true, nil
}

// Ping verifies the store is usable.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return core.ErrStoreUnavailable
	}
	return nil
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// MemoryStoreFactory implements the StoreFactory interface for the in-memory
// store.
type MemoryStoreFactory struct{}

// Type returns the type identifier for this factory.
func (f *MemoryStoreFactory) Type() string {
	return "memory"
}

// Validate validates the memory-specific configuration.
func (f *MemoryStoreFactory) Validate(config StoreConfig) error {
	if config.Type != "memory" {
		return fmt.Errorf("invalid type for memory factory: %s", config.Type)
	}
	return nil
}

// Create creates a new in-memory store instance.
func (f *MemoryStoreFactory) Create(config StoreConfig) (core.Store, error) {
	return NewMemoryStore(), nil
}

// init auto-registers the memory factory on package initialization.
func init() {
	RegisterFactory(&MemoryStoreFactory{})
}
