// Package object implements instances and their field proxies. An instance
// is identity only: it caches nothing but its primary key, and every field
// access reads through to the store via a typed proxy that keeps the field's
// index in step with its value.
package object

import (
	"context"
	"fmt"
	"strconv"

	"github.com/rzpsarthak13/redimap/internal/core"
	"github.com/rzpsarthak13/redimap/internal/keys"
	"github.com/rzpsarthak13/redimap/internal/model"
)

// Instance is one stored object of a model.
type Instance struct {
	def   *model.Definition
	pk    string
	store core.Store
	namer *keys.Namer
}

// PK returns the primary key.
func (i *Instance) PK() string { return i.pk }

// Model returns the model name.
func (i *Instance) Model() string { return i.def.Name }

// New creates an instance with an auto-generated integer pk. The pk comes
// from an atomic increment, so concurrent creators never collide, and is
// registered in the model's collection set.
func New(ctx context.Context, store core.Store, namer *keys.Namer, def *model.Definition) (*Instance, error) {
	if !def.AutoPK {
		return nil, fmt.Errorf("%w: model %q does not auto-generate pks, use NewWithPK", core.ErrValidation, def.Name)
	}
	seq, err := store.Incr(ctx, namer.MaxPKKey(def.Name))
	if err != nil {
		return nil, fmt.Errorf("generating pk for %s: %w", def.Name, err)
	}
	pk := strconv.FormatInt(seq, 10)
	if _, err := store.SAdd(ctx, namer.CollectionKey(def.Name), pk); err != nil {
		return nil, fmt.Errorf("registering %s[%s]: %w", def.Name, pk, err)
	}
	return &Instance{def: def, pk: pk, store: store, namer: namer}, nil
}

// NewWithPK creates an instance under a caller-chosen pk. A pk already in
// the collection set is a uniqueness violation.
func NewWithPK(ctx context.Context, store core.Store, namer *keys.Namer, def *model.Definition, pk interface{}) (*Instance, error) {
	if def.AutoPK {
		return nil, fmt.Errorf("%w: model %q auto-generates pks, do not provide one", core.ErrValidation, def.Name)
	}
	normalized, err := core.Normalize(pk)
	if err != nil {
		return nil, err
	}
	if normalized == "" {
		return nil, fmt.Errorf("%w: empty pk for model %q", core.ErrValidation, def.Name)
	}
	collectionKey := namer.CollectionKey(def.Name)
	exists, err := store.SIsMember(ctx, collectionKey, normalized)
	if err != nil {
		return nil, fmt.Errorf("checking pk %s[%s]: %w", def.Name, normalized, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: pk %q already exists for model %q", core.ErrUniqueness, normalized, def.Name)
	}
	if _, err := store.SAdd(ctx, collectionKey, normalized); err != nil {
		return nil, fmt.Errorf("registering %s[%s]: %w", def.Name, normalized, err)
	}
	return &Instance{def: def, pk: normalized, store: store, namer: namer}, nil
}

// Load returns a handle to an existing instance, verifying it exists.
func Load(ctx context.Context, store core.Store, namer *keys.Namer, def *model.Definition, pk interface{}) (*Instance, error) {
	normalized, err := core.Normalize(pk)
	if err != nil {
		return nil, err
	}
	exists, err := store.SIsMember(ctx, namer.CollectionKey(def.Name), normalized)
	if err != nil {
		return nil, fmt.Errorf("checking pk %s[%s]: %w", def.Name, normalized, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s[%s]", core.ErrNotFound, def.Name, normalized)
	}
	return &Instance{def: def, pk: normalized, store: store, namer: namer}, nil
}

// Handle returns an instance handle without checking existence. Used when
// the pk is already known to be live, e.g. it just came out of a query.
func Handle(store core.Store, namer *keys.Namer, def *model.Definition, pk string) *Instance {
	return &Instance{def: def, pk: pk, store: store, namer: namer}
}

// Exists reports whether the pk is registered in the model's collection set.
func Exists(ctx context.Context, store core.Store, namer *keys.Namer, def *model.Definition, pk interface{}) (bool, error) {
	normalized, err := core.Normalize(pk)
	if err != nil {
		return false, err
	}
	return store.SIsMember(ctx, namer.CollectionKey(def.Name), normalized)
}

// Delete destroys the instance: every field key is removed and deindexed,
// then the pk leaves the collection set. After Delete the pk appears in no
// index entry of the model.
func (i *Instance) Delete(ctx context.Context) error {
	for _, name := range i.def.FieldNames() {
		field, _ := i.def.Field(name)
		ref := i.ref(field)
		if err := ref.destroy(ctx); err != nil {
			return err
		}
	}
	if _, err := i.store.SRem(ctx, i.namer.CollectionKey(i.def.Name), i.pk); err != nil {
		return fmt.Errorf("unregistering %s[%s]: %w", i.def.Name, i.pk, err)
	}
	return nil
}

// field resolves a field by name and checks its declared type.
func (i *Instance) field(name string, want core.FieldType) (*model.Field, error) {
	field, ok := i.def.Field(name)
	if !ok {
		return nil, fmt.Errorf("%w: model %q has no field %q", core.ErrValidation, i.def.Name, name)
	}
	if field.Type != want {
		return nil, fmt.Errorf("%w: field %s.%s is %s, not %s", core.ErrValidation, i.def.Name, name, field.Type, want)
	}
	return field, nil
}

func (i *Instance) ref(field *model.Field) fieldRef {
	return fieldRef{
		inst:  i,
		field: field,
		key:   i.namer.FieldKey(i.def.Name, i.pk, field.Name),
	}
}

// Scalar returns the proxy for a scalar field.
func (i *Instance) Scalar(name string) (*ScalarProxy, error) {
	field, err := i.field(name, core.FieldString)
	if err != nil {
		return nil, err
	}
	return &ScalarProxy{i.ref(field)}, nil
}

// Set returns the proxy for a set field.
func (i *Instance) Set(name string) (*SetProxy, error) {
	field, err := i.field(name, core.FieldSet)
	if err != nil {
		return nil, err
	}
	return &SetProxy{i.ref(field)}, nil
}

// List returns the proxy for a list field.
func (i *Instance) List(name string) (*ListProxy, error) {
	field, err := i.field(name, core.FieldList)
	if err != nil {
		return nil, err
	}
	return &ListProxy{i.ref(field)}, nil
}

// Hash returns the proxy for a hash field.
func (i *Instance) Hash(name string) (*HashProxy, error) {
	field, err := i.field(name, core.FieldHash)
	if err != nil {
		return nil, err
	}
	return &HashProxy{i.ref(field)}, nil
}

// SortedSet returns the proxy for a sorted-set field.
func (i *Instance) SortedSet(name string) (*SortedSetProxy, error) {
	field, err := i.field(name, core.FieldSortedSet)
	if err != nil {
		return nil, err
	}
	return &SortedSetProxy{i.ref(field)}, nil
}

// fieldRef binds one field of one instance: the derived key plus the index
// plumbing shared by every proxy type.
type fieldRef struct {
	inst  *Instance
	field *model.Field
	key   string
}

// reindex is the explicit index-maintenance step every mutating proxy call
// performs: pk leaves the entries for old values and joins the entries for
// new ones. No-op for unindexed fields.
func (f *fieldRef) reindex(ctx context.Context, old, new []string) error {
	if f.field.Strategy == nil {
		return nil
	}
	return f.field.Strategy.Reindex(ctx, f.inst.pk, old, new)
}

// checkUnique rejects a value already held by another instance, before any
// write happens.
func (f *fieldRef) checkUnique(ctx context.Context, values ...string) error {
	if f.field.Strategy == nil || !f.field.Unique {
		return nil
	}
	for _, value := range values {
		if err := f.field.Strategy.CheckUnique(ctx, f.inst.pk, value); err != nil {
			return err
		}
	}
	return nil
}

// normalizeAll converts a batch of application values.
func normalizeAll(values []interface{}) ([]string, error) {
	normalized := make([]string, len(values))
	for i, v := range values {
		n, err := core.Normalize(v)
		if err != nil {
			return nil, err
		}
		normalized[i] = n
	}
	return normalized, nil
}

// currentValues reads everything the field currently holds. Dispatches on
// the field type because the values live in different structures.
func (f *fieldRef) currentValues(ctx context.Context) ([]string, error) {
	switch f.field.Type {
	case core.FieldString:
		value, ok, err := f.inst.store.Get(ctx, f.key)
		if err != nil || !ok {
			return nil, err
		}
		return []string{value}, nil
	case core.FieldSet:
		return f.inst.store.SMembers(ctx, f.key)
	case core.FieldList:
		return f.inst.store.LRange(ctx, f.key, 0, -1)
	case core.FieldHash:
		entries, err := f.inst.store.HGetAll(ctx, f.key)
		if err != nil {
			return nil, err
		}
		var values []string
		for _, value := range entries {
			values = append(values, value)
		}
		return values, nil
	case core.FieldSortedSet:
		return f.inst.store.ZRange(ctx, f.key, 0, -1, false)
	}
	return nil, nil
}

// destroy removes the field key and deindexes whatever it held.
func (f *fieldRef) destroy(ctx context.Context) error {
	current, err := f.currentValues(ctx)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		if err := f.reindex(ctx, current, nil); err != nil {
			return err
		}
	}
	return f.inst.store.Del(ctx, f.key)
}

// Reindex re-adds the instance's pk to the index entries for every value
// its indexed fields currently hold. Existing entries are untouched, so it
// is safe to run against a live model to repair lost index memberships.
func (i *Instance) Reindex(ctx context.Context) error {
	for _, name := range i.def.FieldNames() {
		field, _ := i.def.Field(name)
		if field.Strategy == nil {
			continue
		}
		ref := i.ref(field)
		current, err := ref.currentValues(ctx)
		if err != nil {
			return err
		}
		if len(current) == 0 {
			continue
		}
		if err := ref.reindex(ctx, nil, current); err != nil {
			return err
		}
	}
	return nil
}
