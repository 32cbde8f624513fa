package queryir

// Field names understood by every backend.
const (
	FieldObjectType    = "object_type"
	FieldObjectID      = "object_id"
	FieldObjectVersion = "object_version"
	FieldIsCurrent     = "is_current"
	FieldSubType       = "sub_type"
	FieldParentID      = "parent_id"
	FieldInTrash       = "in_trash"
)

// KnownFields lists the fields a predicate may reference.
var KnownFields = map[string]bool{
	FieldObjectType:    true,
	FieldObjectID:      true,
	FieldObjectVersion: true,
	FieldIsCurrent:     true,
	FieldSubType:       true,
	FieldParentID:      true,
	FieldInTrash:       true,
}

// Predicate represents a scope condition.
//
// Predicate types:
//   - Equals: field = value
//   - In: field IN (values...)
//   - PairIn: (field1, field2) IN ((a, b), ...)
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals matches rows whose field equals Value.
type Equals struct {
	Field string
	Value any
}

func (Equals) predicateNode() {}

// In matches rows whose field is one of Values. An empty In matches nothing.
type In struct {
	Field  string
	Values []any
}

func (In) predicateNode() {}

// PairIn matches rows whose (Fields[0], Fields[1]) tuple is one of Pairs.
// An empty PairIn matches nothing.
type PairIn struct {
	Fields [2]string
	Pairs  [][2]any
}

func (PairIn) predicateNode() {}

// And matches rows satisfying every predicate. An empty And matches all rows.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Int64s converts ids to the []any form used by In.
func Int64s(ids []int64) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// Strings converts values of any string kind to the []any form used by In.
func Strings[S ~string](values []S) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
