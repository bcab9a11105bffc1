// Package model holds model schemas and the process-scoped registry mapping
// model names to field and index metadata.
package model

import (
	"fmt"

	"github.com/rzpsarthak13/redimap/internal/core"
	"github.com/rzpsarthak13/redimap/internal/index"
	"github.com/rzpsarthak13/redimap/internal/keys"
)

// FieldSpec declares one field of a model.
type FieldSpec struct {
	// Name is the field name, unique within the model.
	Name string

	// Type is the store-native structure the field is stored in.
	Type core.FieldType

	// Indexed enables filtering on this field.
	Indexed bool

	// Index selects the index strategy. Defaults to equality when the field
	// is indexed and no kind is given.
	Index core.IndexKind

	// Unique constrains the field to at most one instance per value.
	// Uniqueness implies an equality index.
	Unique bool
}

// Spec declares a model: a named, ordered set of fields. Specs are validated
// once at registration and immutable afterward.
type Spec struct {
	// Name identifies the model, unique within the registry.
	Name string

	// AutoPK makes primary keys auto-generated integers. When false the
	// caller provides the pk at creation.
	AutoPK bool

	// Fields is the ordered field list.
	Fields []FieldSpec
}

// normalize applies the spec's implications in place: unique implies an
// equality index, indexed without a kind defaults to equality.
func (s *Spec) normalize() {
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Unique {
			f.Indexed = true
			if f.Index == core.IndexNone {
				f.Index = core.IndexEquality
			}
		}
		if f.Indexed && f.Index == core.IndexNone {
			f.Index = core.IndexEquality
		}
		if !f.Indexed {
			f.Index = core.IndexNone
		}
	}
}

// validate rejects malformed specs before any strategy is built.
func (s *Spec) validate() error {
	if err := keys.ValidateName("model", s.Name); err != nil {
		return err
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("model %q declares no fields", s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if err := keys.ValidateName("field", f.Name); err != nil {
			return fmt.Errorf("model %q: %w", s.Name, err)
		}
		if f.Name == "pk" {
			return fmt.Errorf("model %q: field name \"pk\" is reserved", s.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("model %q: duplicate field %q", s.Name, f.Name)
		}
		seen[f.Name] = true
		if f.Unique && f.Index != core.IndexEquality {
			return fmt.Errorf("model %q field %q: uniqueness requires an equality index", s.Name, f.Name)
		}
		if f.Index == core.IndexRange && f.Type != core.FieldString {
			return fmt.Errorf("model %q field %q: range index requires a scalar field", s.Name, f.Name)
		}
	}
	return nil
}

// Field is the registered form of a field: its spec plus its bound index
// strategy (nil for unindexed fields).
type Field struct {
	FieldSpec
	Strategy index.Strategy
}

// Definition is the registered form of a model.
type Definition struct {
	Spec
	fields map[string]*Field
	order  []string
}

// Field looks a field up by name.
func (d *Definition) Field(name string) (*Field, bool) {
	f, ok := d.fields[name]
	return f, ok
}

// FieldNames returns the field names in declaration order.
func (d *Definition) FieldNames() []string {
	return d.order
}
