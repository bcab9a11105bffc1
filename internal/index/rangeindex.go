package index

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rzpsarthak13/redimap/internal/core"
)

// Range indexes all values of one field in a single sorted set, members
// scored by the numeric projection of their value. Bound filters are
// materialized at query time as a score-restricted slice of that set; the
// same set doubles as the sort source for ordered collections, which is why
// the index is sorted-set backed rather than set backed.
type Range struct {
	deps
}

// Kind reports the index kind.
func (r *Range) Kind() core.IndexKind { return core.IndexRange }

// Supports reports whether the operator is a bound comparison or an exact
// score match.
func (r *Range) Supports(op core.Operator) bool {
	switch op {
	case core.OpEq, core.OpGt, core.OpGte, core.OpLt, core.OpLte:
		return true
	default:
		return false
	}
}

// Reindex moves pk between score positions. The member of the sorted set is
// the pk itself; removing and re-adding with the same score is a no-op for
// membership.
func (r *Range) Reindex(ctx context.Context, pk string, old, new []string) error {
	key := r.namer.RangeIndexKey(r.model, r.field)
	if len(old) > 0 && len(new) == 0 {
		if _, err := r.store.ZRem(ctx, key, pk); err != nil {
			return fmt.Errorf("deindexing %s.%s: %w", r.model, r.field, err)
		}
		return nil
	}
	for _, value := range new {
		score, err := core.Score(value)
		if err != nil {
			return err
		}
		if err := r.store.ZAdd(ctx, key, score, pk); err != nil {
			return fmt.Errorf("indexing %s.%s=%q: %w", r.model, r.field, value, err)
		}
	}
	return nil
}

// CheckUnique is a no-op: range indexes cannot carry uniqueness constraints.
func (r *Range) CheckUnique(ctx context.Context, pk, value string) error {
	return nil
}

// bounds converts an operator and bound value to Redis score range syntax.
func bounds(op core.Operator, value float64) (min, max string, err error) {
	formatted := strconv.FormatFloat(value, 'g', -1, 64)
	switch op {
	case core.OpEq:
		return formatted, formatted, nil
	case core.OpGt:
		return "(" + formatted, "+inf", nil
	case core.OpGte:
		return formatted, "+inf", nil
	case core.OpLt:
		return "-inf", "(" + formatted, nil
	case core.OpLte:
		return "-inf", formatted, nil
	default:
		return "", "", fmt.Errorf("%w: range index cannot resolve operator %s", core.ErrValidation, op)
	}
}

// Resolve materializes the score-bounded slice of the index into a fresh
// temporary sorted set. Range results are not a pre-existing key, so unlike
// equality resolution this always costs one store round-trip.
func (r *Range) Resolve(ctx context.Context, op core.Operator, values []string) (core.Resolved, error) {
	if !r.Supports(op) {
		return core.Resolved{}, fmt.Errorf("%w: range index on %s.%s cannot resolve operator %s", core.ErrValidation, r.model, r.field, op)
	}
	if len(values) != 1 {
		return core.Resolved{}, fmt.Errorf("%w: bound filter on %s.%s needs exactly one value, got %d", core.ErrValidation, r.model, r.field, len(values))
	}
	score, err := core.Score(values[0])
	if err != nil {
		return core.Resolved{}, err
	}
	min, max, err := bounds(op, score)
	if err != nil {
		return core.Resolved{}, err
	}
	dest, err := r.tempKey(ctx)
	if err != nil {
		return core.Resolved{}, err
	}
	src := r.namer.RangeIndexKey(r.model, r.field)
	if _, err := r.store.ZRangeStoreByScore(ctx, dest, src, min, max, r.tempTTL); err != nil {
		return core.Resolved{}, fmt.Errorf("resolving %s.%s bound filter: %w", r.model, r.field, err)
	}
	return core.Resolved{Key: dest, Kind: core.KeyZSet, Temp: true}, nil
}

// SortKey returns the backing sorted set, usable directly as a sort source.
func (r *Range) SortKey() (string, bool) {
	return r.namer.RangeIndexKey(r.model, r.field), true
}
