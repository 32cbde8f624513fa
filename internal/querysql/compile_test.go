package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicon/internal/checksum"
	"github.com/roach88/replicon/internal/queryir"
)

func scope() queryir.Predicate {
	return queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: queryir.FieldObjectType, Value: "ENTITY"},
		queryir.In{Field: queryir.FieldParentID, Values: queryir.Int64s([]int64{7, 9})},
		queryir.Equals{Field: queryir.FieldIsCurrent, Value: true},
	}}
}

func TestCompilePredicate_Equals(t *testing.T) {
	sql, params, err := NewSQLCompiler().CompilePredicate(queryir.Equals{Field: queryir.FieldObjectID, Value: 5})
	require.NoError(t, err)
	assert.Equal(t, "object_id = ?", sql)
	assert.Equal(t, []any{int64(5)}, params)
}

func TestCompilePredicate_Nil(t *testing.T) {
	sql, params, err := NewSQLCompiler().CompilePredicate(nil)
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)
	assert.Empty(t, params)
}

func TestCompilePredicate_EmptyInMatchesNothing(t *testing.T) {
	sql, params, err := NewSQLCompiler().CompilePredicate(queryir.In{Field: queryir.FieldObjectID})
	require.NoError(t, err)
	assert.Equal(t, "1 = 0", sql)
	assert.Empty(t, params)
}

func TestCompilePredicate_And(t *testing.T) {
	sql, params, err := NewSQLCompiler().CompilePredicate(scope())
	require.NoError(t, err)
	assert.Equal(t, "object_type = ? AND parent_id IN (?, ?) AND is_current = ?", sql)
	assert.Equal(t, []any{"ENTITY", int64(7), int64(9), int64(1)}, params)
}

func TestCompilePredicate_NestedAndParenthesized(t *testing.T) {
	p := queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: queryir.FieldObjectType, Value: "ENTITY"},
		queryir.And{Predicates: []queryir.Predicate{
			queryir.Equals{Field: queryir.FieldIsCurrent, Value: false},
		}},
	}}
	sql, params, err := NewSQLCompiler().CompilePredicate(p)
	require.NoError(t, err)
	assert.Equal(t, "object_type = ? AND (is_current = ?)", sql)
	assert.Equal(t, []any{"ENTITY", int64(0)}, params)
}

func TestCompilePredicate_PairIn(t *testing.T) {
	p := queryir.PairIn{
		Fields: [2]string{queryir.FieldObjectID, queryir.FieldObjectVersion},
		Pairs:  [][2]any{{int64(1), int64(2)}, {int64(3), int64(4)}},
	}
	sql, params, err := NewSQLCompiler().CompilePredicate(p)
	require.NoError(t, err)
	assert.Equal(t, "(object_id, object_version) IN (VALUES (?, ?), (?, ?))", sql)
	assert.Equal(t, []any{int64(1), int64(2), int64(3), int64(4)}, params)
}

func TestCompilePredicate_RejectsUnknownField(t *testing.T) {
	_, _, err := NewSQLCompiler().CompilePredicate(queryir.Equals{Field: "name; DROP TABLE x", Value: 1})
	assert.Error(t, err)
}

func TestCompileChecksum_Objects(t *testing.T) {
	sql, args, err := NewSQLCompiler().CompileChecksum(ChecksumQuery{
		Table:  "objects",
		Salt:   42,
		Mode:   checksum.ModeObjects,
		Filter: scope(),
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT object_id, "+rowChecksumExpr+
		" FROM objects WHERE object_type = ? AND parent_id IN (?, ?) AND is_current = ?"+
		" ORDER BY object_id ASC", sql)
	assert.Equal(t, []any{"42", "ENTITY", int64(7), int64(9), int64(1)}, args)
}

func TestCompileChecksum_Containers(t *testing.T) {
	sql, args, err := NewSQLCompiler().CompileChecksum(ChecksumQuery{
		Table:  "replica_objects",
		Salt:   ^uint64(0),
		Mode:   checksum.ModeContainers,
		Filter: scope(),
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "SELECT parent_id, SUM(")
	assert.Contains(t, sql, "GROUP BY parent_id ORDER BY parent_id ASC")
	assert.Equal(t, "18446744073709551615", args[0], "salt keeps all 64 bits")
}

func TestCompileChecksum_RejectsBadMode(t *testing.T) {
	_, _, err := NewSQLCompiler().CompileChecksum(ChecksumQuery{Table: "objects"})
	assert.Error(t, err)
}

func TestCompileChecksum_RejectsBadTable(t *testing.T) {
	_, _, err := NewSQLCompiler().CompileChecksum(ChecksumQuery{Table: "objects; --", Mode: checksum.ModeObjects})
	assert.Error(t, err)
}

func TestCompileSelect(t *testing.T) {
	sql, params, err := NewSQLCompiler().CompileSelect("objects", []string{"object_id", "etag"},
		queryir.In{Field: queryir.FieldObjectID, Values: queryir.Int64s([]int64{3})})
	require.NoError(t, err)
	assert.Equal(t, "SELECT object_id, etag FROM objects WHERE object_id IN (?) ORDER BY object_id ASC, object_version ASC", sql)
	assert.Equal(t, []any{int64(3)}, params)

	_, _, err = NewSQLCompiler().CompileSelect("objects", nil, nil)
	assert.Error(t, err)
}

func TestCompileDelete(t *testing.T) {
	sql, params, err := NewSQLCompiler().CompileDelete("replica_objects",
		queryir.Equals{Field: queryir.FieldObjectType, Value: "ENTITY"})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM replica_objects WHERE object_type = ?", sql)
	assert.Equal(t, []any{"ENTITY"}, params)
}
