package redimap

import (
	"context"

	"github.com/rzpsarthak13/redimap/internal/query"
)

// Collection is a lazy query over a model's instances. Filter, Sort and
// Slice return new values and never touch the store; only the terminal
// calls (MemberIDs, Count, Exists, First, Each, Instances) execute, and
// every execution resolves against the store's current state.
type Collection struct {
	model *Model
	inner *query.Collection
}

func newCollection(m *Model) *Collection {
	return &Collection{
		model: m,
		inner: query.New(m.client.store, m.client.namer, m.def, m.client.config.TempKeyTTL),
	}
}

// Filter narrows the collection to instances whose field matches value.
// The key is "field" for equality or "field__op" with op one of in, gt,
// gte, lt, lte. "pk" filters on the primary key itself. Filtering on a
// field with no suitable index fails with ErrUnindexedField.
func (c *Collection) Filter(key string, value interface{}) (*Collection, error) {
	inner, err := c.inner.Filter(key, value)
	if err != nil {
		return nil, err
	}
	return &Collection{model: c.model, inner: inner}, nil
}

// Sort orders results by a range-indexed field. Instances with no value
// for the field are dropped from the result.
func (c *Collection) Sort(field string, desc bool) (*Collection, error) {
	inner, err := c.inner.Sort(field, desc)
	if err != nil {
		return nil, err
	}
	return &Collection{model: c.model, inner: inner}, nil
}

// Slice keeps limit results starting at offset. limit -1 means everything
// from offset on.
func (c *Collection) Slice(offset, limit int64) *Collection {
	return &Collection{model: c.model, inner: c.inner.Slice(offset, limit)}
}

// MemberIDs executes the query and returns the matching primary keys.
func (c *Collection) MemberIDs(ctx context.Context) ([]string, error) {
	return c.inner.MemberIDs(ctx)
}

// Count executes the query and returns the number of matches.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	return c.inner.Count(ctx)
}

// Exists reports whether the query matches anything.
func (c *Collection) Exists(ctx context.Context) (bool, error) {
	return c.inner.Exists(ctx)
}

// First returns the first matching primary key, and false if there is none.
func (c *Collection) First(ctx context.Context) (string, bool, error) {
	return c.inner.First(ctx)
}

// Each executes the query and calls fn for every matching primary key,
// stopping at the first error.
func (c *Collection) Each(ctx context.Context, fn func(pk string) error) error {
	return c.inner.Each(ctx, fn)
}

// Instances executes the query and returns instance handles for the
// matches. The handles are not existence-checked again.
func (c *Collection) Instances(ctx context.Context) ([]*Instance, error) {
	ids, err := c.inner.MemberIDs(ctx)
	if err != nil {
		return nil, err
	}
	instances := make([]*Instance, 0, len(ids))
	for _, id := range ids {
		instances = append(instances, c.model.Handle(id))
	}
	return instances, nil
}
