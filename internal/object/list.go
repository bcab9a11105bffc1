package object

import (
	"context"
)

// ListProxy is the typed accessor for a list field. Push, pop and positional
// writes reindex only the delta; bulk removal with a directional count has
// no knowable delta and falls back to a full deindex/reindex of the list.
type ListProxy struct {
	fieldRef
}

// LPush prepends values, indexing them.
func (p *ListProxy) LPush(ctx context.Context, values ...interface{}) (int64, error) {
	return p.push(ctx, values, p.inst.store.LPush)
}

// RPush appends values, indexing them.
func (p *ListProxy) RPush(ctx context.Context, values ...interface{}) (int64, error) {
	return p.push(ctx, values, p.inst.store.RPush)
}

func (p *ListProxy) push(ctx context.Context, values []interface{}, op func(context.Context, string, ...string) (int64, error)) (int64, error) {
	normalized, err := normalizeAll(values)
	if err != nil {
		return 0, err
	}
	if err := p.checkUnique(ctx, normalized...); err != nil {
		return 0, err
	}
	length, err := op(ctx, p.key, normalized...)
	if err != nil {
		return 0, err
	}
	if err := p.reindex(ctx, nil, normalized); err != nil {
		return length, err
	}
	return length, nil
}

// LPop removes and returns the first element, deindexing it.
func (p *ListProxy) LPop(ctx context.Context) (string, bool, error) {
	return p.pop(ctx, p.inst.store.LPop)
}

// RPop removes and returns the last element, deindexing it.
func (p *ListProxy) RPop(ctx context.Context) (string, bool, error) {
	return p.pop(ctx, p.inst.store.RPop)
}

func (p *ListProxy) pop(ctx context.Context, op func(context.Context, string) (string, bool, error)) (string, bool, error) {
	value, ok, err := op(ctx, p.key)
	if err != nil || !ok {
		return "", false, err
	}
	// Deindex only when no other copy of the value remains in the list.
	remaining, err := p.inst.store.LRange(ctx, p.key, 0, -1)
	if err != nil {
		return value, true, err
	}
	for _, v := range remaining {
		if v == value {
			return value, true, nil
		}
	}
	if err := p.reindex(ctx, []string{value}, nil); err != nil {
		return value, true, err
	}
	return value, true, nil
}

// Rem removes occurrences of value with Redis count semantics. count 0
// removes every occurrence, so the delta is exactly the value; any other
// count leaves an unknown number behind and forces the full fallback.
func (p *ListProxy) Rem(ctx context.Context, count int64, value interface{}) (int64, error) {
	normalized, err := normalizeAll([]interface{}{value})
	if err != nil {
		return 0, err
	}
	if count == 0 {
		if err := p.reindex(ctx, normalized, nil); err != nil {
			return 0, err
		}
		return p.inst.store.LRem(ctx, p.key, 0, normalized[0])
	}
	old, err := p.inst.store.LRange(ctx, p.key, 0, -1)
	if err != nil {
		return 0, err
	}
	if err := p.reindex(ctx, old, nil); err != nil {
		return 0, err
	}
	removed, err := p.inst.store.LRem(ctx, p.key, count, normalized[0])
	if err != nil {
		return removed, err
	}
	current, err := p.inst.store.LRange(ctx, p.key, 0, -1)
	if err != nil {
		return removed, err
	}
	if err := p.reindex(ctx, nil, current); err != nil {
		return removed, err
	}
	return removed, nil
}

// Set overwrites the element at the given rank, deindexing the previous one
// unless another copy of it remains elsewhere in the list.
func (p *ListProxy) Set(ctx context.Context, index int64, value interface{}) error {
	normalized, err := normalizeAll([]interface{}{value})
	if err != nil {
		return err
	}
	if err := p.checkUnique(ctx, normalized...); err != nil {
		return err
	}
	old, hadOld, err := p.inst.store.LIndex(ctx, p.key, index)
	if err != nil {
		return err
	}
	if err := p.inst.store.LSet(ctx, p.key, index, normalized[0]); err != nil {
		return err
	}
	var oldValues []string
	if hadOld && old != normalized[0] {
		remaining, err := p.inst.store.LRange(ctx, p.key, 0, -1)
		if err != nil {
			return err
		}
		held := false
		for _, v := range remaining {
			if v == old {
				held = true
				break
			}
		}
		if !held {
			oldValues = []string{old}
		}
	}
	return p.reindex(ctx, oldValues, normalized)
}

// Range returns elements between the given ranks, inclusive.
func (p *ListProxy) Range(ctx context.Context, start, stop int64) ([]string, error) {
	return p.inst.store.LRange(ctx, p.key, start, stop)
}

// Len returns the list length.
func (p *ListProxy) Len(ctx context.Context) (int64, error) {
	return p.inst.store.LLen(ctx, p.key)
}

// Index returns the element at the given rank.
func (p *ListProxy) Index(ctx context.Context, index int64) (string, bool, error) {
	return p.inst.store.LIndex(ctx, p.key, index)
}

// Delete removes the whole field, deindexing every stored value.
func (p *ListProxy) Delete(ctx context.Context) error {
	return p.destroy(ctx)
}
