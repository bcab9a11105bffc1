// Package query implements the lazy collection engine. A Collection is an
// unexecuted filter specification over one model; nothing touches the store
// until the results are actually consumed, and every consumption re-resolves
// from scratch against current store state.
package query

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/rzpsarthak13/redimap/internal/core"
	"github.com/rzpsarthak13/redimap/internal/keys"
	"github.com/rzpsarthak13/redimap/internal/model"
)

// clause is one parsed filter: field, operator and normalized values.
type clause struct {
	field  string
	op     core.Operator
	values []string
}

type sortSpec struct {
	field string
	desc  bool
}

type sliceSpec struct {
	offset int64
	limit  int64 // -1 means "to the end"
}

// Collection is a lazy, chainable filter/sort/slice specification. Chaining
// has value semantics: every call returns a new specification and the
// receiver stays usable, so two chains built from one base never share
// mutable state. An unexecuted Collection has no store-side footprint and
// can be discarded for free.
type Collection struct {
	def   *model.Definition
	store core.Store
	namer *keys.Namer
	ttl   time.Duration

	clauses  []clause
	pkGroups [][]string
	sorting  *sortSpec
	slicing  *sliceSpec
}

// New creates an unfiltered collection covering every instance of the model.
func New(store core.Store, namer *keys.Namer, def *model.Definition, tempTTL time.Duration) *Collection {
	return &Collection{def: def, store: store, namer: namer, ttl: tempTTL}
}

func (c *Collection) clone() *Collection {
	dup := &Collection{
		def:   c.def,
		store: c.store,
		namer: c.namer,
		ttl:   c.ttl,
	}
	dup.clauses = append([]clause(nil), c.clauses...)
	dup.pkGroups = make([][]string, len(c.pkGroups))
	for i, group := range c.pkGroups {
		dup.pkGroups[i] = append([]string(nil), group...)
	}
	if c.sorting != nil {
		s := *c.sorting
		dup.sorting = &s
	}
	if c.slicing != nil {
		s := *c.slicing
		dup.slicing = &s
	}
	return dup
}

// suffixOps maps filter key suffixes to operators: "age__gte" filters the
// age field with >=.
var suffixOps = map[string]core.Operator{
	"eq":  core.OpEq,
	"in":  core.OpIn,
	"gt":  core.OpGt,
	"gte": core.OpGte,
	"lt":  core.OpLt,
	"lte": core.OpLte,
}

func parseFilterKey(key string) (field string, op core.Operator) {
	op = core.OpEq
	if i := strings.LastIndex(key, "__"); i > 0 {
		if parsed, ok := suffixOps[key[i+2:]]; ok {
			return key[:i], parsed
		}
	}
	return key, op
}

// normalizeFilterValues turns a filter value into normalized strings. A
// slice value means "value is one of" and flips the operator to OpIn.
func normalizeFilterValues(value interface{}, op core.Operator) ([]string, core.Operator, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() != reflect.Uint8 {
		if op != core.OpEq && op != core.OpIn {
			return nil, op, fmt.Errorf("%w: operator %s does not accept multiple values", core.ErrValidation, op)
		}
		values := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			normalized, err := core.Normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, op, err
			}
			values[i] = normalized
		}
		return values, core.OpIn, nil
	}
	normalized, err := core.Normalize(value)
	if err != nil {
		return nil, op, err
	}
	if op == core.OpIn {
		return []string{normalized}, core.OpIn, nil
	}
	return []string{normalized}, op, nil
}

// Filter adds one clause and returns the extended specification. The key is
// a field name with an optional __eq/__in/__gt/__gte/__lt/__lte suffix.
// Clauses AND together; a slice value ORs within the clause. Filtering on a
// non-indexed field or with an operator the field's index cannot resolve is
// rejected here, not at execution. No store access happens.
func (c *Collection) Filter(key string, value interface{}) (*Collection, error) {
	field, op := parseFilterKey(key)

	values, op, err := normalizeFilterValues(value, op)
	if err != nil {
		return nil, err
	}

	if field == "pk" {
		if op != core.OpEq && op != core.OpIn {
			return nil, fmt.Errorf("%w: pk filters accept only exact values", core.ErrValidation)
		}
		// One call's values OR together like any other __in clause; separate
		// calls AND together like any other pair of clauses.
		dup := c.clone()
		dup.pkGroups = append(dup.pkGroups, values)
		return dup, nil
	}

	def, ok := c.def.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: model %q has no field %q", core.ErrValidation, c.def.Name, field)
	}
	if !def.Indexed {
		return nil, fmt.Errorf("%w: %s.%s", core.ErrUnindexedField, c.def.Name, field)
	}
	if !def.Strategy.Supports(op) {
		return nil, fmt.Errorf("%w: %s index on %s.%s cannot resolve operator %s", core.ErrValidation, def.Index, c.def.Name, field, op)
	}

	dup := c.clone()
	dup.clauses = append(dup.clauses, clause{field: field, op: op, values: values})
	return dup, nil
}

// Sort orders results by a range-indexed field, whose backing sorted set
// doubles as the sort source. Instances holding no value for the sort field
// are absent from that set and therefore from the sorted result.
func (c *Collection) Sort(field string, desc bool) (*Collection, error) {
	def, ok := c.def.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: model %q has no field %q", core.ErrValidation, c.def.Name, field)
	}
	if def.Strategy == nil {
		return nil, fmt.Errorf("%w: %s.%s", core.ErrUnindexedField, c.def.Name, field)
	}
	if _, ok := def.Strategy.SortKey(); !ok {
		return nil, fmt.Errorf("%w: sorting needs a range index on %s.%s", core.ErrValidation, c.def.Name, field)
	}
	dup := c.clone()
	dup.sorting = &sortSpec{field: field, desc: desc}
	return dup, nil
}

// Slice restricts results to limit members starting at offset. limit -1
// means all remaining members. The bounds are pushed into the store-level
// range command whenever the final resolved key is ordered.
func (c *Collection) Slice(offset, limit int64) *Collection {
	dup := c.clone()
	dup.slicing = &sliceSpec{offset: offset, limit: limit}
	return dup
}

// plan is the outcome of resolving all clauses against the store: the final
// key to read plus the temporary keys to delete afterwards.
type plan struct {
	final core.Resolved
	temps []string
	empty bool // resolution proved the result empty without a final key
	solo  string // non-empty when the result is exactly one pk, no final key
}

func (p *plan) track(r core.Resolved) {
	if r.Temp {
		p.temps = append(p.temps, r.Key)
	}
}

func (c *Collection) cleanup(ctx context.Context, p *plan) {
	if len(p.temps) > 0 {
		// Best effort: the keys carry a TTL for the crash case.
		_ = c.store.Del(ctx, p.temps...)
	}
}

// tempSeq allocates a unique temporary key for pk materialization.
func (c *Collection) tempKey(ctx context.Context) (string, error) {
	seq, err := c.store.Incr(ctx, c.namer.TempSeqKey())
	if err != nil {
		return "", fmt.Errorf("allocating temp key: %w", err)
	}
	return c.namer.TempKey(seq), nil
}

// resolve turns the accumulated specification into one final store key.
// One store round-trip per clause, plus one combination round-trip when
// more than one key came out of resolution.
func (c *Collection) resolve(ctx context.Context) (*plan, error) {
	p := &plan{}

	// Intersect the pk groups client-side: each group was one Filter call
	// whose values OR together, and the groups AND together. The surviving
	// candidates are then checked against the collection set so dead pks
	// never leak into results.
	var pkSet []string
	if len(c.pkGroups) > 0 {
		candidates := map[string]bool{}
		for _, pk := range c.pkGroups[0] {
			candidates[pk] = true
		}
		for _, group := range c.pkGroups[1:] {
			keep := map[string]bool{}
			for _, pk := range group {
				if candidates[pk] {
					keep[pk] = true
				}
			}
			candidates = keep
		}
		seen := map[string]bool{}
		for _, pk := range c.pkGroups[0] {
			if candidates[pk] && !seen[pk] {
				seen[pk] = true
				exists, err := c.store.SIsMember(ctx, c.namer.CollectionKey(c.def.Name), pk)
				if err != nil {
					return nil, err
				}
				if exists {
					pkSet = append(pkSet, pk)
				}
			}
		}
		if len(pkSet) == 0 {
			p.empty = true
			return p, nil
		}
		if len(pkSet) == 1 && len(c.clauses) == 0 && c.sorting == nil {
			p.solo = pkSet[0]
			return p, nil
		}
	}

	var resolved []core.Resolved
	for _, cl := range c.clauses {
		field, _ := c.def.Field(cl.field)
		r, err := field.Strategy.Resolve(ctx, cl.op, cl.values)
		if err != nil {
			c.cleanup(ctx, p)
			return nil, err
		}
		p.track(r)
		resolved = append(resolved, r)
	}

	if len(pkSet) > 0 {
		// Materialize the surviving pks as a set so they can join the
		// server-side intersection, or stand alone as the final key.
		key, err := c.tempKey(ctx)
		if err != nil {
			c.cleanup(ctx, p)
			return nil, err
		}
		if _, err := c.store.SAdd(ctx, key, pkSet...); err != nil {
			c.cleanup(ctx, p)
			return nil, err
		}
		if c.ttl > 0 {
			_ = c.store.Expire(ctx, key, c.ttl)
		}
		r := core.Resolved{Key: key, Kind: core.KeySet, Temp: true}
		p.track(r)
		resolved = append(resolved, r)
	}

	if c.sorting != nil {
		return c.combineSorted(ctx, p, resolved)
	}

	switch len(resolved) {
	case 0:
		p.final = core.Resolved{Key: c.namer.CollectionKey(c.def.Name), Kind: core.KeySet}
		return p, nil
	case 1:
		p.final = resolved[0]
		return p, nil
	}

	inputKeys := make([]string, len(resolved))
	allSets := true
	for i, r := range resolved {
		inputKeys[i] = r.Key
		if r.Kind != core.KeySet {
			allSets = false
		}
	}
	dest, err := c.tempKey(ctx)
	if err != nil {
		c.cleanup(ctx, p)
		return nil, err
	}
	if allSets {
		if _, err := c.store.SInterStore(ctx, dest, c.ttl, inputKeys...); err != nil {
			c.cleanup(ctx, p)
			return nil, err
		}
		p.final = core.Resolved{Key: dest, Kind: core.KeySet, Temp: true}
	} else {
		if _, err := c.store.ZInterStore(ctx, dest, c.ttl, inputKeys, nil); err != nil {
			c.cleanup(ctx, p)
			return nil, err
		}
		p.final = core.Resolved{Key: dest, Kind: core.KeyZSet, Temp: true}
	}
	p.track(p.final)
	return p, nil
}

// combineSorted folds the sort field's index into the intersection with
// weight 1 while every filter key gets weight 0, so the destination's
// scores are exactly the sort field's scores.
func (c *Collection) combineSorted(ctx context.Context, p *plan, resolved []core.Resolved) (*plan, error) {
	field, _ := c.def.Field(c.sorting.field)
	sortKey, _ := field.Strategy.SortKey()

	if len(resolved) == 0 {
		// Unfiltered sorted read comes straight off the index.
		p.final = core.Resolved{Key: sortKey, Kind: core.KeyZSet}
		return p, nil
	}

	inputKeys := make([]string, 0, len(resolved)+1)
	weights := make([]float64, 0, len(resolved)+1)
	for _, r := range resolved {
		inputKeys = append(inputKeys, r.Key)
		weights = append(weights, 0)
	}
	inputKeys = append(inputKeys, sortKey)
	weights = append(weights, 1)

	dest, err := c.tempKey(ctx)
	if err != nil {
		c.cleanup(ctx, p)
		return nil, err
	}
	if _, err := c.store.ZInterStore(ctx, dest, c.ttl, inputKeys, weights); err != nil {
		c.cleanup(ctx, p)
		return nil, err
	}
	p.final = core.Resolved{Key: dest, Kind: core.KeyZSet, Temp: true}
	p.track(p.final)
	return p, nil
}

// MemberIDs executes the specification and returns the matching pks. With a
// sort the order follows the sort field; otherwise order is store-native
// and unspecified.
func (c *Collection) MemberIDs(ctx context.Context) ([]string, error) {
	p, err := c.resolve(ctx)
	if err != nil {
		return nil, err
	}
	defer c.cleanup(ctx, p)

	if p.empty {
		return nil, nil
	}
	if p.solo != "" {
		if c.slicing != nil && (c.slicing.offset > 0 || c.slicing.limit == 0) {
			return nil, nil
		}
		return []string{p.solo}, nil
	}

	desc := c.sorting != nil && c.sorting.desc

	if p.final.Kind == core.KeyZSet {
		start, stop := int64(0), int64(-1)
		if c.slicing != nil {
			start = c.slicing.offset
			if c.slicing.limit >= 0 {
				stop = start + c.slicing.limit - 1
				if stop < start {
					return nil, nil
				}
			}
		}
		return c.store.ZRange(ctx, p.final.Key, start, stop, desc)
	}

	members, err := c.store.SMembers(ctx, p.final.Key)
	if err != nil {
		return nil, err
	}
	if c.slicing != nil {
		// Sets have no ranks; a stable order is needed for the slice to
		// mean anything, so slice over the lexicographic member order.
		sort.Strings(members)
		start := c.slicing.offset
		if start >= int64(len(members)) {
			return nil, nil
		}
		end := int64(len(members))
		if c.slicing.limit >= 0 && start+c.slicing.limit < end {
			end = start + c.slicing.limit
		}
		members = members[start:end]
	}
	return members, nil
}

// Count returns the cardinality of the resolved result using the store's
// cardinality command on the final key, without fetching members.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	p, err := c.resolve(ctx)
	if err != nil {
		return 0, err
	}
	defer c.cleanup(ctx, p)

	if p.empty {
		return 0, nil
	}
	if p.solo != "" {
		if c.slicing != nil && (c.slicing.offset > 0 || c.slicing.limit == 0) {
			return 0, nil
		}
		return 1, nil
	}

	var count int64
	if p.final.Kind == core.KeyZSet {
		count, err = c.store.ZCard(ctx, p.final.Key)
	} else {
		count, err = c.store.SCard(ctx, p.final.Key)
	}
	if err != nil {
		return 0, err
	}
	if c.slicing != nil {
		count -= c.slicing.offset
		if count < 0 {
			count = 0
		}
		if c.slicing.limit >= 0 && count > c.slicing.limit {
			count = c.slicing.limit
		}
	}
	return count, nil
}

// Exists reports whether at least one instance matches.
func (c *Collection) Exists(ctx context.Context) (bool, error) {
	count, err := c.Slice(0, 1).Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// First returns the first matching pk, with ok false when nothing matched.
func (c *Collection) First(ctx context.Context) (string, bool, error) {
	members, err := c.Slice(0, 1).MemberIDs(ctx)
	if err != nil {
		return "", false, err
	}
	if len(members) == 0 {
		return "", false, nil
	}
	return members[0], true, nil
}

// Each executes the specification and calls fn for every matching pk,
// stopping on the first error.
func (c *Collection) Each(ctx context.Context, fn func(pk string) error) error {
	members, err := c.MemberIDs(ctx)
	if err != nil {
		return err
	}
	for _, pk := range members {
		if err := fn(pk); err != nil {
			return err
		}
	}
	return nil
}

// Model returns the definition the collection ranges over.
func (c *Collection) Model() *model.Definition {
	return c.def
}
