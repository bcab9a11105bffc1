package object

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rzpsarthak13/redimap/internal/core"
)

// ScalarProxy is the typed accessor for a scalar field. Every mutating call
// runs the same sequence: validate, check uniqueness, read the old value,
// write, reindex old against new.
type ScalarProxy struct {
	fieldRef
}

// Get returns the current value. An absent key decodes to the zero value
// with ok false.
func (p *ScalarProxy) Get(ctx context.Context) (string, bool, error) {
	return p.inst.store.Get(ctx, p.key)
}

// Set validates the value, checks uniqueness, writes, then reindexes. The
// old value is read before the write; a crash between the write and the
// reindex leaves a bounded inconsistency repairable by a rebuild pass.
func (p *ScalarProxy) Set(ctx context.Context, value interface{}) error {
	normalized, err := core.Normalize(value)
	if err != nil {
		return err
	}
	if p.field.Index == core.IndexRange {
		// Reject non-numeric values before anything is written.
		if _, err := core.Score(normalized); err != nil {
			return err
		}
	}
	if err := p.checkUnique(ctx, normalized); err != nil {
		return err
	}
	old, hadOld, err := p.inst.store.Get(ctx, p.key)
	if err != nil {
		return err
	}
	if err := p.inst.store.Set(ctx, p.key, normalized); err != nil {
		return err
	}
	var oldValues []string
	if hadOld {
		oldValues = []string{old}
	}
	return p.reindex(ctx, oldValues, []string{normalized})
}

// Delete removes the key and deindexes the last stored value.
func (p *ScalarProxy) Delete(ctx context.Context) error {
	return p.destroy(ctx)
}

// Incr atomically increments the stored integer, keeping the index aligned
// with the new value. On a unique field the incremented value is checked
// before the write, under the same race window as Set.
func (p *ScalarProxy) Incr(ctx context.Context) (int64, error) {
	old, hadOld, err := p.inst.store.Get(ctx, p.key)
	if err != nil {
		return 0, err
	}
	if p.field.Unique {
		next := int64(1)
		if hadOld {
			parsed, err := strconv.ParseInt(old, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q is not an integer", core.ErrValidation, old)
			}
			next = parsed + 1
		}
		if err := p.checkUnique(ctx, strconv.FormatInt(next, 10)); err != nil {
			return 0, err
		}
	}
	val, err := p.inst.store.Incr(ctx, p.key)
	if err != nil {
		return 0, err
	}
	var oldValues []string
	if hadOld {
		oldValues = []string{old}
	}
	normalized, err := core.Normalize(val)
	if err != nil {
		return 0, err
	}
	if err := p.reindex(ctx, oldValues, []string{normalized}); err != nil {
		return 0, err
	}
	return val, nil
}

// Exists reports whether the key is present.
func (p *ScalarProxy) Exists(ctx context.Context) (bool, error) {
	return p.inst.store.Exists(ctx, p.key)
}
