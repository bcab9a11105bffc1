package object

import (
	"context"
)

// SetProxy is the typed accessor for a set field. Mutations reindex only the
// delta, not the whole field: the values passed to Add join the index, the
// values passed to Rem leave it.
type SetProxy struct {
	fieldRef
}

// Add inserts values into the set and indexes them.
func (p *SetProxy) Add(ctx context.Context, values ...interface{}) (int64, error) {
	normalized, err := normalizeAll(values)
	if err != nil {
		return 0, err
	}
	if err := p.checkUnique(ctx, normalized...); err != nil {
		return 0, err
	}
	added, err := p.inst.store.SAdd(ctx, p.key, normalized...)
	if err != nil {
		return 0, err
	}
	if err := p.reindex(ctx, nil, normalized); err != nil {
		return added, err
	}
	return added, nil
}

// Rem removes values from the set, deindexing them first.
func (p *SetProxy) Rem(ctx context.Context, values ...interface{}) (int64, error) {
	normalized, err := normalizeAll(values)
	if err != nil {
		return 0, err
	}
	if err := p.reindex(ctx, normalized, nil); err != nil {
		return 0, err
	}
	return p.inst.store.SRem(ctx, p.key, normalized...)
}

// Pop removes a random member, deindexing whatever the store returned.
func (p *SetProxy) Pop(ctx context.Context) (string, bool, error) {
	value, ok, err := p.inst.store.SPop(ctx, p.key)
	if err != nil || !ok {
		return "", false, err
	}
	if err := p.reindex(ctx, []string{value}, nil); err != nil {
		return value, true, err
	}
	return value, true, nil
}

// Members returns all values. Order is unspecified.
func (p *SetProxy) Members(ctx context.Context) ([]string, error) {
	return p.inst.store.SMembers(ctx, p.key)
}

// Card returns the number of values.
func (p *SetProxy) Card(ctx context.Context) (int64, error) {
	return p.inst.store.SCard(ctx, p.key)
}

// IsMember checks membership of one value.
func (p *SetProxy) IsMember(ctx context.Context, value interface{}) (bool, error) {
	normalized, err := normalizeAll([]interface{}{value})
	if err != nil {
		return false, err
	}
	return p.inst.store.SIsMember(ctx, p.key, normalized[0])
}

// Delete removes the whole field, deindexing every stored value.
func (p *SetProxy) Delete(ctx context.Context) error {
	return p.destroy(ctx)
}
