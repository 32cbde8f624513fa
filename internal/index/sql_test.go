package index

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertGoldenSQL(t *testing.T, name, sql string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(sql))
}

func TestCreateOrUpdateIndexSQL_Golden(t *testing.T) {
	g, h := nested(t)

	sql, err := g.CreateOrUpdateIndexSQL(h[4])
	require.NoError(t, err)
	assertGoldenSQL(t, "nested_materialized_view", sql)

	sql, err = g.CreateOrUpdateIndexSQL(h[1])
	require.NoError(t, err)
	assertGoldenSQL(t, "entity_view", sql)

	tbl, err := g.AddTable(NewVersionedKey(2, 7))
	require.NoError(t, err)
	sql, err = g.CreateOrUpdateIndexSQL(tbl)
	require.NoError(t, err)
	assertGoldenSQL(t, "versioned_table", sql)
}

func TestCreateOrUpdateIndexSQL_Stable(t *testing.T) {
	g, h := nested(t)
	first, err := g.CreateOrUpdateIndexSQL(h[4])
	require.NoError(t, err)
	for range 10 {
		again, err := g.CreateOrUpdateIndexSQL(h[4])
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCreateOrUpdateIndexSQL_Cycle(t *testing.T) {
	g := NewGraph()
	a, err := g.AddMaterializedView(NewKey(1))
	require.NoError(t, err)
	require.NoError(t, g.SetDependencies(a, a))

	_, err = g.CreateOrUpdateIndexSQL(a)
	assert.ErrorIs(t, err, ErrCycle)
}
