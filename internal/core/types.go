package core

import (
	"fmt"
	"strconv"
)

// FieldType identifies the store-native structure a field is stored in.
type FieldType int

const (
	// FieldString is a scalar value stored in a plain key.
	FieldString FieldType = iota

	// FieldSet is an unordered set of values.
	FieldSet

	// FieldList is an ordered list of values.
	FieldList

	// FieldHash is a map of entry name to value.
	FieldHash

	// FieldSortedSet is a set of values ordered by score.
	FieldSortedSet
)

// String returns the lowercase name of the field type.
func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldSet:
		return "set"
	case FieldList:
		return "list"
	case FieldHash:
		return "hash"
	case FieldSortedSet:
		return "sortedset"
	default:
		return fmt.Sprintf("fieldtype(%d)", int(t))
	}
}

// IndexKind identifies the indexing strategy a field uses.
type IndexKind int

const (
	// IndexNone means the field carries no index and cannot be filtered on.
	IndexNone IndexKind = iota

	// IndexEquality maps each exact value to one set of instance ids.
	IndexEquality

	// IndexRange keeps instance ids in a sorted set scored by the numeric
	// projection of the value, supporting bound filters and sorting.
	IndexRange
)

// String returns the lowercase name of the index kind.
func (k IndexKind) String() string {
	switch k {
	case IndexNone:
		return "none"
	case IndexEquality:
		return "equality"
	case IndexRange:
		return "range"
	default:
		return fmt.Sprintf("indexkind(%d)", int(k))
	}
}

// Operator identifies a filter comparison.
type Operator int

const (
	// OpEq matches instances whose field value equals the filter value.
	OpEq Operator = iota

	// OpIn matches instances whose field value equals any of the filter
	// values (union semantics within one clause).
	OpIn

	// OpGt matches scores strictly greater than the bound.
	OpGt

	// OpGte matches scores greater than or equal to the bound.
	OpGte

	// OpLt matches scores strictly less than the bound.
	OpLt

	// OpLte matches scores less than or equal to the bound.
	OpLte
)

// String returns the filter suffix for the operator.
func (o Operator) String() string {
	switch o {
	case OpEq:
		return "eq"
	case OpIn:
		return "in"
	case OpGt:
		return "gt"
	case OpGte:
		return "gte"
	case OpLt:
		return "lt"
	case OpLte:
		return "lte"
	default:
		return fmt.Sprintf("operator(%d)", int(o))
	}
}

// KeyKind identifies the store structure behind a resolved filter key.
type KeyKind int

const (
	// KeySet means the resolved key is a plain set.
	KeySet KeyKind = iota

	// KeyZSet means the resolved key is a sorted set.
	KeyZSet
)

// Resolved is the outcome of resolving one filter clause: the store key
// holding the matching instance ids. Temp keys were materialized for this
// resolution only, carry an expiry, and must be deleted once the query that
// produced them has been read.
type Resolved struct {
	Key  string
	Kind KeyKind
	Temp bool
}

// Normalize converts an application value into the string representation the
// store holds. Supported kinds are strings, byte slices, booleans, the
// integer and float families, and fmt.Stringer. Anything else is a
// validation error.
func Normalize(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: unsupported value type %T", ErrValidation, value)
	}
}

// Score computes the numeric projection of a normalized value, used to score
// range index members. Non-numeric values cannot live in a range index.
func Score(normalized string) (float64, error) {
	score, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: value %q is not numeric, range index requires a numeric projection", ErrValidation, normalized)
	}
	return score, nil
}
