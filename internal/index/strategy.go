// Package index implements the secondary index strategies. A strategy owns
// the index keys of one field of one model: it moves instance ids between
// index entries as the field's values change, and resolves filter clauses
// into store keys holding the matching ids.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/rzpsarthak13/redimap/internal/core"
	"github.com/rzpsarthak13/redimap/internal/keys"
)

// Strategy is the contract between field mutation and filter resolution.
//
// Reindex is the paired removal/addition performed on every committed field
// mutation: pk leaves the entries for the old values and joins the entries
// for the new ones. Calling it with old == new must leave membership
// unchanged. A nil slice means "no values on that side".
//
// Resolve turns one filter clause into the store key holding matching ids.
// Equality resolution is a pure key computation; range resolution
// materializes a temporary key at call time and marks it Temp so the query
// engine deletes it after the read.
type Strategy interface {
	// Kind reports the index kind this strategy implements.
	Kind() core.IndexKind

	// Supports reports whether the strategy can resolve the given operator.
	Supports(op core.Operator) bool

	// Reindex removes pk from the entries for old values and adds it to the
	// entries for new values. Values are already normalized.
	Reindex(ctx context.Context, pk string, old, new []string) error

	// CheckUnique returns ErrUniqueness if the value is already indexed for
	// an instance other than pk. Strategies without uniqueness support
	// return nil.
	CheckUnique(ctx context.Context, pk, value string) error

	// Resolve turns a filter clause into the key holding matching ids.
	Resolve(ctx context.Context, op core.Operator, values []string) (core.Resolved, error)

	// SortKey returns the key of the sorted set that doubles as a sort
	// source, and whether the strategy has one.
	SortKey() (string, bool)
}

// deps carries what every strategy needs: the store for index commands, the
// namer for key derivation, and temp-key allocation for materialized
// resolutions.
type deps struct {
	store   core.Store
	namer   *keys.Namer
	model   string
	field   string
	tempTTL time.Duration
}

// tempKey allocates a fresh temporary key. Uniqueness comes from an atomic
// counter in the shared store, so concurrent processes can never collide,
// and a key is never reused across two distinct resolutions.
func (d *deps) tempKey(ctx context.Context) (string, error) {
	seq, err := d.store.Incr(ctx, d.namer.TempSeqKey())
	if err != nil {
		return "", fmt.Errorf("allocating temp key: %w", err)
	}
	return d.namer.TempKey(seq), nil
}

// New builds the strategy for the given index kind.
func New(kind core.IndexKind, store core.Store, namer *keys.Namer, model, field string, unique bool, tempTTL time.Duration) (Strategy, error) {
	d := deps{store: store, namer: namer, model: model, field: field, tempTTL: tempTTL}
	switch kind {
	case core.IndexEquality:
		return &Equality{deps: d, unique: unique}, nil
	case core.IndexRange:
		if unique {
			return nil, fmt.Errorf("field %s.%s: uniqueness requires an equality index", model, field)
		}
		return &Range{deps: d}, nil
	default:
		return nil, fmt.Errorf("field %s.%s: unsupported index kind %s", model, field, kind)
	}
}
