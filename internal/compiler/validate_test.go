package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicon/internal/ir"
)

func codes(errs ValidationErrors) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_Valid(t *testing.T) {
	defs := []IndexDefinition{
		{Name: "files", Kind: KindTable, ID: 2},
		{Name: "view", Kind: KindView, ID: 1, TableType: "entityview"},
		{Name: "mv", Kind: KindMaterializedView, ID: 3, DependsOn: []string{"files", "view"}},
	}
	assert.Empty(t, Validate(defs))
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		defs []IndexDefinition
		want []string
	}{
		{
			name: "unknown kind",
			defs: []IndexDefinition{{Name: "x", Kind: "index", ID: 1}},
			want: []string{ErrUnknownKind},
		},
		{
			name: "non-positive id",
			defs: []IndexDefinition{{Name: "x", Kind: KindTable, ID: 0}},
			want: []string{ErrInvalidID},
		},
		{
			name: "negative version",
			defs: []IndexDefinition{{Name: "x", Kind: KindTable, ID: 1, Version: ir.Int64(-1)}},
			want: []string{ErrInvalidVersion},
		},
		{
			name: "view without table type",
			defs: []IndexDefinition{{Name: "x", Kind: KindView, ID: 1}},
			want: []string{ErrInvalidTableType},
		},
		{
			name: "table with table type",
			defs: []IndexDefinition{{Name: "x", Kind: KindTable, ID: 1, TableType: "dataset"}},
			want: []string{ErrMisplacedAttribute},
		},
		{
			name: "duplicate name",
			defs: []IndexDefinition{
				{Name: "x", Kind: KindTable, ID: 1},
				{Name: "x", Kind: KindTable, ID: 2},
			},
			want: []string{ErrDuplicateName},
		},
		{
			name: "duplicate key",
			defs: []IndexDefinition{
				{Name: "x", Kind: KindTable, ID: 1},
				{Name: "y", Kind: KindTable, ID: 1},
			},
			want: []string{ErrDuplicateKey},
		},
		{
			name: "materialized view without dependencies",
			defs: []IndexDefinition{{Name: "x", Kind: KindMaterializedView, ID: 1}},
			want: []string{ErrNoDependencies},
		},
		{
			name: "dependencies on a table",
			defs: []IndexDefinition{
				{Name: "x", Kind: KindTable, ID: 1},
				{Name: "y", Kind: KindTable, ID: 2, DependsOn: []string{"x"}},
			},
			want: []string{ErrMisplacedAttribute},
		},
		{
			name: "unknown dependency",
			defs: []IndexDefinition{{Name: "x", Kind: KindMaterializedView, ID: 1, DependsOn: []string{"nope"}}},
			want: []string{ErrUnknownDependency},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.defs)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.want, codes(errs))
		})
	}
}

func TestValidate_CollectsAll(t *testing.T) {
	defs := []IndexDefinition{
		{Name: "x", Kind: "bogus", ID: -1},
		{Name: "y", Kind: KindView, ID: 2, TableType: "nope"},
	}
	errs := Validate(defs)
	assert.Equal(t, []string{ErrInvalidID, ErrUnknownKind, ErrInvalidTableType}, codes(errs))
	assert.Contains(t, errs.Error(), "[E101]")
}
