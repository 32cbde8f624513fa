package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumns_UnsetContext(t *testing.T) {
	g, h := nested(t)
	_, err := g.ColumnNamesToAddToSelect(h[4], SQLContextUnset, false, false)
	assert.ErrorIs(t, err, ErrUnsetContext)
}

func TestColumns_Query(t *testing.T) {
	g, h := nested(t)

	cols, err := g.ColumnNamesToAddToSelect(h[4], SQLContextQuery, false, false)
	require.NoError(t, err)
	assert.Equal(t, []ColumnToAdd{
		{Dependency: NewKey(4), Expression: "ROW_ID", Alias: "ROW_ID"},
		{Dependency: NewKey(4), Expression: "ROW_VERSION", Alias: "ROW_VERSION"},
	}, cols)

	cols, err = g.ColumnNamesToAddToSelect(h[4], SQLContextQuery, true, false)
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.Equal(t, "ROW_ETAG", cols[2].Expression)

	cols, err = g.ColumnNamesToAddToSelect(h[4], SQLContextQuery, true, true)
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestColumns_BuildMaterializedView(t *testing.T) {
	g, h := nested(t)

	cols, err := g.ColumnNamesToAddToSelect(h[4], SQLContextBuild, false, false)
	require.NoError(t, err)
	assert.Equal(t, []ColumnToAdd{
		{Dependency: NewKey(1), Expression: "IFNULL(T1.ROW_BENEFACTOR, -1)", Alias: "ROW_BENEFACTOR_1"},
		{Dependency: NewKey(3), Expression: "IFNULL(T3.ROW_BENEFACTOR_1, -1)", Alias: "ROW_BENEFACTOR_1_3"},
	}, cols)
}

func TestColumns_BuildOrderedByDependency(t *testing.T) {
	g := NewGraph()
	v9, err := g.AddView(NewKey(9), TableTypeEntityView)
	require.NoError(t, err)
	v10, err := g.AddView(NewKey(10), TableTypeEntityView)
	require.NoError(t, err)
	mv, err := g.AddMaterializedView(NewKey(20), v10, v9)
	require.NoError(t, err)

	// Column name order would put "..._10" before "..._9".
	cols, err := g.ColumnNamesToAddToSelect(mv, SQLContextBuild, false, false)
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, NewKey(9), cols[0].Dependency)
	assert.Equal(t, NewKey(10), cols[1].Dependency)
}

func TestColumns_BuildAggregateWithView(t *testing.T) {
	g, h := nested(t)

	_, err := g.ColumnNamesToAddToSelect(h[3], SQLContextBuild, false, true)
	assert.ErrorIs(t, err, ErrAggregateWithViewDependency)

	_, err = g.ColumnNamesToAddToSelect(h[1], SQLContextBuild, false, true)
	assert.ErrorIs(t, err, ErrAggregateWithViewDependency)
}

func TestColumns_BuildAggregateOverTables(t *testing.T) {
	g := NewGraph()
	a, err := g.AddTable(NewKey(1))
	require.NoError(t, err)
	b, err := g.AddTable(NewKey(2))
	require.NoError(t, err)
	mv, err := g.AddMaterializedView(NewKey(3), a, b)
	require.NoError(t, err)

	cols, err := g.ColumnNamesToAddToSelect(mv, SQLContextBuild, false, true)
	require.NoError(t, err)
	assert.Empty(t, cols)

	cols, err = g.ColumnNamesToAddToSelect(mv, SQLContextBuild, false, false)
	require.NoError(t, err)
	assert.Empty(t, cols, "tables carry no benefactors")
}

func TestColumns_BuildView(t *testing.T) {
	g, h := nested(t)
	cols, err := g.ColumnNamesToAddToSelect(h[1], SQLContextBuild, false, false)
	require.NoError(t, err)
	assert.Equal(t, []ColumnToAdd{{Expression: "IFNULL(ROW_BENEFACTOR, -1)", Alias: "ROW_BENEFACTOR"}}, cols)
}
