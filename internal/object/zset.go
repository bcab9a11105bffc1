package object

import (
	"context"
)

// SortedSetProxy is the typed accessor for a sorted-set field. The indexed
// terms are the members; scores only order them within the field.
type SortedSetProxy struct {
	fieldRef
}

// Add inserts or rescores a member, indexing it.
func (p *SortedSetProxy) Add(ctx context.Context, score float64, value interface{}) error {
	normalized, err := normalizeAll([]interface{}{value})
	if err != nil {
		return err
	}
	if err := p.checkUnique(ctx, normalized...); err != nil {
		return err
	}
	if err := p.inst.store.ZAdd(ctx, p.key, score, normalized[0]); err != nil {
		return err
	}
	return p.reindex(ctx, nil, normalized)
}

// Rem removes members, deindexing them first.
func (p *SortedSetProxy) Rem(ctx context.Context, values ...interface{}) (int64, error) {
	normalized, err := normalizeAll(values)
	if err != nil {
		return 0, err
	}
	if err := p.reindex(ctx, normalized, nil); err != nil {
		return 0, err
	}
	return p.inst.store.ZRem(ctx, p.key, normalized...)
}

// IncrBy adjusts a member's score. The member may be new to the field, so
// it is indexed.
func (p *SortedSetProxy) IncrBy(ctx context.Context, delta float64, value interface{}) (float64, error) {
	normalized, err := normalizeAll([]interface{}{value})
	if err != nil {
		return 0, err
	}
	score, err := p.inst.store.ZIncrBy(ctx, p.key, delta, normalized[0])
	if err != nil {
		return 0, err
	}
	if err := p.reindex(ctx, nil, normalized); err != nil {
		return score, err
	}
	return score, nil
}

// Members returns all members in score order.
func (p *SortedSetProxy) Members(ctx context.Context) ([]string, error) {
	return p.inst.store.ZRange(ctx, p.key, 0, -1, false)
}

// Card returns the number of members.
func (p *SortedSetProxy) Card(ctx context.Context) (int64, error) {
	return p.inst.store.ZCard(ctx, p.key)
}

// Score returns a member's score.
func (p *SortedSetProxy) Score(ctx context.Context, value interface{}) (float64, bool, error) {
	normalized, err := normalizeAll([]interface{}{value})
	if err != nil {
		return 0, false, err
	}
	return p.inst.store.ZScore(ctx, p.key, normalized[0])
}

// RangeByScore returns members within the given score bounds, ascending.
func (p *SortedSetProxy) RangeByScore(ctx context.Context, min, max string) ([]string, error) {
	return p.inst.store.ZRangeByScore(ctx, p.key, min, max)
}

// Delete removes the whole field, deindexing every stored member.
func (p *SortedSetProxy) Delete(ctx context.Context) error {
	return p.destroy(ctx)
}
