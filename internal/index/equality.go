package index

import (
	"context"
	"fmt"

	"github.com/rzpsarthak13/redimap/internal/core"
)

// Equality indexes one set of instance ids per exact field value. The entry
// for value V of field F is the set keyed model:F:V whose members are the
// pks whose stored value for F currently normalizes to V.
type Equality struct {
	deps
	unique bool
}

// Kind reports the index kind.
func (e *Equality) Kind() core.IndexKind { return core.IndexEquality }

// Supports reports whether the operator can be resolved by exact lookup.
func (e *Equality) Supports(op core.Operator) bool {
	return op == core.OpEq || op == core.OpIn
}

// Reindex removes pk from the entries of the old values and adds it to the
// entries of the new ones. SREM of an absent member and SADD of a present
// one are no-ops, so Reindex(old, old) leaves membership unchanged.
func (e *Equality) Reindex(ctx context.Context, pk string, old, new []string) error {
	for _, value := range old {
		key := e.namer.IndexKey(e.model, e.field, value)
		if _, err := e.store.SRem(ctx, key, pk); err != nil {
			return fmt.Errorf("deindexing %s.%s=%q: %w", e.model, e.field, value, err)
		}
	}
	for _, value := range new {
		key := e.namer.IndexKey(e.model, e.field, value)
		if _, err := e.store.SAdd(ctx, key, pk); err != nil {
			return fmt.Errorf("indexing %s.%s=%q: %w", e.model, e.field, value, err)
		}
	}
	return nil
}

// CheckUnique inspects the index entry for value before any write. If the
// entry holds a pk other than the writer's, the write must be aborted. The
// check-before-write ordering narrows but does not close the cross-process
// race window.
func (e *Equality) CheckUnique(ctx context.Context, pk, value string) error {
	if !e.unique {
		return nil
	}
	key := e.namer.IndexKey(e.model, e.field, value)
	members, err := e.store.SMembers(ctx, key)
	if err != nil {
		return fmt.Errorf("uniqueness check on %s.%s: %w", e.model, e.field, err)
	}
	for _, member := range members {
		if member != pk {
			return fmt.Errorf("%w: %s.%s=%q already held by instance %s", core.ErrUniqueness, e.model, e.field, value, member)
		}
	}
	return nil
}

// Resolve returns the pre-existing entry key for an exact match, touching the
// store only for OpIn, which unions the entry keys of all accepted values
// into an expiring temporary set.
func (e *Equality) Resolve(ctx context.Context, op core.Operator, values []string) (core.Resolved, error) {
	switch op {
	case core.OpEq:
		if len(values) != 1 {
			return core.Resolved{}, fmt.Errorf("%w: exact filter on %s.%s needs exactly one value, got %d", core.ErrValidation, e.model, e.field, len(values))
		}
		return core.Resolved{Key: e.namer.IndexKey(e.model, e.field, values[0]), Kind: core.KeySet}, nil
	case core.OpIn:
		if len(values) == 0 {
			return core.Resolved{}, fmt.Errorf("%w: empty value list for filter on %s.%s", core.ErrValidation, e.model, e.field)
		}
		if len(values) == 1 {
			return core.Resolved{Key: e.namer.IndexKey(e.model, e.field, values[0]), Kind: core.KeySet}, nil
		}
		entryKeys := make([]string, len(values))
		for i, value := range values {
			entryKeys[i] = e.namer.IndexKey(e.model, e.field, value)
		}
		dest, err := e.tempKey(ctx)
		if err != nil {
			return core.Resolved{}, err
		}
		if _, err := e.store.SUnionStore(ctx, dest, e.tempTTL, entryKeys...); err != nil {
			return core.Resolved{}, fmt.Errorf("resolving %s.%s in-filter: %w", e.model, e.field, err)
		}
		return core.Resolved{Key: dest, Kind: core.KeySet, Temp: true}, nil
	default:
		return core.Resolved{}, fmt.Errorf("%w: equality index on %s.%s cannot resolve operator %s", core.ErrValidation, e.model, e.field, op)
	}
}

// SortKey reports that equality indexes supply no ordering.
func (e *Equality) SortKey() (string, bool) { return "", false }
