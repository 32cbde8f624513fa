package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_KnownFields(t *testing.T) {
	p := And{Predicates: []Predicate{
		Equals{Field: FieldObjectType, Value: "ENTITY"},
		In{Field: FieldSubType, Values: Strings([]string{"file"})},
		PairIn{Fields: [2]string{FieldObjectID, FieldObjectVersion}, Pairs: [][2]any{{int64(1), int64(2)}}},
	}}
	assert.NoError(t, Validate(p))
}

func TestValidate_Nil(t *testing.T) {
	assert.NoError(t, Validate(nil))
}

func TestValidate_UnknownField(t *testing.T) {
	err := Validate(And{Predicates: []Predicate{Equals{Field: "etag", Value: "x"}}})
	assert.ErrorContains(t, err, `unknown predicate field "etag"`)
	assert.ErrorContains(t, err, "and[0]")
}

func TestValidate_EmptyField(t *testing.T) {
	assert.Error(t, Validate(In{}))
}

func TestValidate_PairRepeatsField(t *testing.T) {
	err := Validate(PairIn{Fields: [2]string{FieldObjectID, FieldObjectID}})
	assert.ErrorContains(t, err, "repeats")
}

func TestInt64s(t *testing.T) {
	assert.Equal(t, []any{int64(1), int64(2)}, Int64s([]int64{1, 2}))
}

type letter string

func TestStrings(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, Strings([]letter{"a", "b"}))
}
