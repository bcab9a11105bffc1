package object

import (
	"context"
)

// HashProxy is the typed accessor for a hash field: a map of entry name to
// value stored in one hash key. The indexed terms are the hash values, so
// filtering finds instances holding the value under any entry.
type HashProxy struct {
	fieldRef
}

// HSet writes one entry, reindexing the entry's old value against the new.
// The old value is deindexed only when no other entry still holds it.
func (p *HashProxy) HSet(ctx context.Context, entry string, value interface{}) error {
	normalized, err := normalizeAll([]interface{}{value})
	if err != nil {
		return err
	}
	if err := p.checkUnique(ctx, normalized...); err != nil {
		return err
	}
	entries, err := p.inst.store.HGetAll(ctx, p.key)
	if err != nil {
		return err
	}
	if err := p.inst.store.HSet(ctx, p.key, entry, normalized[0]); err != nil {
		return err
	}
	var oldValues []string
	if old, hadOld := entries[entry]; hadOld && old != normalized[0] {
		held := false
		for name, v := range entries {
			if name != entry && v == old {
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

// HGet reads one entry.
func (p *HashProxy) HGet(ctx context.Context, entry string) (string, bool, error) {
	return p.inst.store.HGet(ctx, p.key, entry)
}

// HDel removes entries, deindexing the values they held. A value also held
// by a surviving entry keeps its index membership.
func (p *HashProxy) HDel(ctx context.Context, entries ...string) (int64, error) {
	all, err := p.inst.store.HGetAll(ctx, p.key)
	if err != nil {
		return 0, err
	}
	removed := map[string]bool{}
	for _, entry := range entries {
		removed[entry] = true
	}
	surviving := map[string]bool{}
	for name, value := range all {
		if !removed[name] {
			surviving[value] = true
		}
	}
	var oldValues []string
	seen := map[string]bool{}
	for _, entry := range entries {
		value, ok := all[entry]
		if ok && !surviving[value] && !seen[value] {
			seen[value] = true
			oldValues = append(oldValues, value)
		}
	}
	if err := p.reindex(ctx, oldValues, nil); err != nil {
		return 0, err
	}
	return p.inst.store.HDel(ctx, p.key, entries...)
}

// All returns every entry of the hash.
func (p *HashProxy) All(ctx context.Context) (map[string]string, error) {
	return p.inst.store.HGetAll(ctx, p.key)
}

// Len returns the number of entries.
func (p *HashProxy) Len(ctx context.Context) (int64, error) {
	return p.inst.store.HLen(ctx, p.key)
}

// Delete removes the whole field, deindexing every stored value.
func (p *HashProxy) Delete(ctx context.Context) error {
	return p.destroy(ctx)
}
