package redimap

import (
	"context"
	"log"

	"github.com/rzpsarthak13/redimap/internal/model"
	"github.com/rzpsarthak13/redimap/internal/object"
)

// Model is the handle for one registered model. All instance constructors
// and collection queries hang off it.
type Model struct {
	def    *model.Definition
	client *Client
}

// Name returns the model name.
func (m *Model) Name() string {
	return m.def.Name
}

// FieldNames returns the declared field names in declaration order.
func (m *Model) FieldNames() []string {
	return m.def.FieldNames()
}

// New creates an instance with a store-assigned primary key. The model must
// be declared with AutoPK.
func (m *Model) New(ctx context.Context) (*Instance, error) {
	inst, err := object.New(ctx, m.client.store, m.client.namer, m.def)
	if err != nil {
		return nil, err
	}
	return &Instance{inst: inst}, nil
}

// NewWithPK creates an instance under a caller-chosen primary key. It fails
// with ErrUniqueness if the key is already taken.
func (m *Model) NewWithPK(ctx context.Context, pk interface{}) (*Instance, error) {
	inst, err := object.NewWithPK(ctx, m.client.store, m.client.namer, m.def, pk)
	if err != nil {
		return nil, err
	}
	return &Instance{inst: inst}, nil
}

// Get returns the instance stored under pk, or ErrNotFound.
func (m *Model) Get(ctx context.Context, pk interface{}) (*Instance, error) {
	inst, err := object.Load(ctx, m.client.store, m.client.namer, m.def, pk)
	if err != nil {
		return nil, err
	}
	return &Instance{inst: inst}, nil
}

// Handle returns an instance handle without touching the store. Operations
// through the handle behave as if the instance exists.
func (m *Model) Handle(pk string) *Instance {
	return &Instance{inst: object.Handle(m.client.store, m.client.namer, m.def, pk)}
}

// Exists reports whether pk is a member of the model's collection.
func (m *Model) Exists(ctx context.Context, pk interface{}) (bool, error) {
	return object.Exists(ctx, m.client.store, m.client.namer, m.def, pk)
}

// Create makes a new auto-PK instance and sets the given scalar fields in
// one call. If any set fails the instance is deleted again, so a uniqueness
// violation on one field does not leave a half-written object behind.
func (m *Model) Create(ctx context.Context, values map[string]interface{}) (*Instance, error) {
	inst, err := m.New(ctx)
	if err != nil {
		return nil, err
	}
	for name, value := range values {
		field, err := inst.Scalar(name)
		if err == nil {
			err = field.Set(ctx, value)
		}
		if err != nil {
			if derr := inst.Delete(ctx); derr != nil {
				log.Printf("[MODEL] Rollback of %s:%s failed: %v", m.def.Name, inst.PK(), derr)
			}
			return nil, err
		}
	}
	return inst, nil
}

// Collection returns a query over all instances of the model.
func (m *Model) Collection() *Collection {
	return newCollection(m)
}

// Instance is one stored object of a model. Field access goes through the
// typed accessors; an accessor fails if the field is missing or of another
// type.
type Instance struct {
	inst *object.Instance
}

// PK returns the primary key.
func (i *Instance) PK() string {
	return i.inst.PK()
}

// Model returns the owning model's name.
func (i *Instance) Model() string {
	return i.inst.Model()
}

// Scalar returns the accessor for a scalar field.
func (i *Instance) Scalar(name string) (*ScalarField, error) {
	return i.inst.Scalar(name)
}

// Set returns the accessor for a set field.
func (i *Instance) Set(name string) (*SetField, error) {
	return i.inst.Set(name)
}

// List returns the accessor for a list field.
func (i *Instance) List(name string) (*ListField, error) {
	return i.inst.List(name)
}

// Hash returns the accessor for a hash field.
func (i *Instance) Hash(name string) (*HashField, error) {
	return i.inst.Hash(name)
}

// SortedSet returns the accessor for a sorted-set field.
func (i *Instance) SortedSet(name string) (*SortedSetField, error) {
	return i.inst.SortedSet(name)
}

// Delete removes the instance: every field key, every index entry it owns,
// and its collection membership.
func (i *Instance) Delete(ctx context.Context) error {
	return i.inst.Delete(ctx)
}
