package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicon/internal/ir"
)

func TestSelector_Build(t *testing.T) {
	tests := []struct {
		name     string
		selector Selector
		wantKind Kind
	}{
		{"ids", Selector{SubTypes: []string{"file"}, IDs: []int64{1, 2}}, KindFlatIDs},
		{"containers", Selector{SubTypes: []string{"file"}, Containers: []int64{7}}, KindHierarchical},
		{"versions", Selector{ObjectType: "entity", SubTypes: []string{"file"}, Versions: []string{"1.3"}}, KindIDAndVersionList},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := tt.selector.Build(DefaultSplitThreshold)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, f.Kind())
			assert.Equal(t, ir.ObjectTypeEntity, f.ReplicationType())
		})
	}
}

func TestSelector_BuildSplitThreshold(t *testing.T) {
	f, err := Selector{SubTypes: []string{"file"}, Containers: []int64{1, 2, 3}}.Build(5)
	require.NoError(t, err)
	_, ok := f.TrySplit()
	assert.False(t, ok)
}

func TestSelector_BuildErrors(t *testing.T) {
	tests := []struct {
		name     string
		selector Selector
	}{
		{"no selector", Selector{SubTypes: []string{"file"}}},
		{"two selectors", Selector{SubTypes: []string{"file"}, IDs: []int64{1}, Containers: []int64{2}}},
		{"bad version", Selector{SubTypes: []string{"file"}, Versions: []string{"12"}}},
		{"unknown type", Selector{ObjectType: "widget", SubTypes: []string{"file"}, IDs: []int64{1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.selector.Build(DefaultSplitThreshold)
			assert.ErrorIs(t, err, ErrInvalidFilter)
		})
	}
}

func TestParseIDAndVersion(t *testing.T) {
	p, err := ParseIDAndVersion("12.3")
	require.NoError(t, err)
	assert.Equal(t, IDAndVersion{ID: 12, Version: 3}, p)
	assert.Equal(t, "12.3", p.String())

	for _, bad := range []string{"12", "a.3", "12.b", ""} {
		_, err := ParseIDAndVersion(bad)
		assert.ErrorIs(t, err, ErrInvalidFilter, bad)
	}
}
