// Package keys derives every store key the engine uses. Derivation is pure
// and deterministic: the same logical entity always maps to the same key,
// and two distinct logical entities can never collide because name and value
// components are escaped before joining.
package keys

import (
	"fmt"
	"strconv"
	"strings"
)

// Delimiter separates key components.
const Delimiter = ":"

// Namer builds store keys for one deployment. An optional namespace prefixes
// every derived key so several deployments can share a store.
type Namer struct {
	namespace string
}

// NewNamer creates a Namer with the given namespace. An empty namespace is
// valid and produces unprefixed keys.
func NewNamer(namespace string) *Namer {
	return &Namer{namespace: namespace}
}

// escape makes a component delimiter-safe. '%' is escaped first so escaped
// output never collides with a literal component.
func escape(component string) string {
	component = strings.ReplaceAll(component, "%", "%25")
	return strings.ReplaceAll(component, Delimiter, "%3a")
}

func (n *Namer) join(components ...string) string {
	escaped := make([]string, 0, len(components)+1)
	if n.namespace != "" {
		escaped = append(escaped, escape(n.namespace))
	}
	for _, c := range components {
		escaped = append(escaped, escape(c))
	}
	return strings.Join(escaped, Delimiter)
}

// Each key family carries a fixed discriminator segment ("obj", "idx",
// "ridx") right after the model name. Family constants never appear at a
// position holding caller-supplied data, so no pk, field name, or value can
// make one family produce another family's key.

// FieldKey returns the key holding the value of one field of one instance.
func (n *Namer) FieldKey(model, pk, field string) string {
	return n.join(model, "obj", pk, field)
}

// IndexKey returns the key of the equality index entry for one field value:
// the set of pks whose field currently normalizes to that value.
func (n *Namer) IndexKey(model, field, value string) string {
	return n.join(model, "idx", field, value)
}

// RangeIndexKey returns the key of the sorted set backing a range index.
// One sorted set covers the whole field, members scored by the numeric
// projection of their value.
func (n *Namer) RangeIndexKey(model, field string) string {
	return n.join(model, "ridx", field)
}

// CollectionKey returns the key of the set holding every existing pk of the
// model.
func (n *Namer) CollectionKey(model string) string {
	return n.join(model, "collection")
}

// MaxPKKey returns the key of the auto-increment counter for the model.
func (n *Namer) MaxPKKey(model string) string {
	return n.join(model, "max_pk")
}

// TempSeqKey returns the key of the counter that makes temporary keys unique
// across processes sharing the store.
func (n *Namer) TempSeqKey() string {
	return n.join("tmp", "seq")
}

// TempKey returns the temporary key for the given sequence number. Sequence
// numbers come from an atomic increment of TempSeqKey, so a temporary key is
// never reused across two distinct query executions.
func (n *Namer) TempKey(seq int64) string {
	return n.join("tmp", strconv.FormatInt(seq, 10))
}

// ValidateName rejects names unusable as model or field names. Escaping
// makes any non-empty name collision-free, so only emptiness is rejected.
func ValidateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%s name cannot be empty", kind)
	}
	return nil
}
