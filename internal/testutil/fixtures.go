package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/store"
)

// Stores is a truth store and a replica store in separate databases.
type Stores struct {
	Truth   *store.Store
	Replica *store.Store
}

// OpenStores opens a fresh truth and replica store under t.TempDir().
// Both are closed when the test ends.
func OpenStores(t testing.TB) Stores {
	t.Helper()
	dir := t.TempDir()
	truth, err := store.Open(filepath.Join(dir, "truth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { truth.Close() })

	replica, err := store.Open(filepath.Join(dir, "replica.db"))
	require.NoError(t, err)
	t.Cleanup(func() { replica.Close() })

	return Stores{Truth: truth, Replica: replica}
}

// File returns a current version-1 ENTITY file row under parent.
func File(id, parent int64, etag string) ir.ObjectRow {
	return ir.ObjectRow{
		ObjectType: ir.ObjectTypeEntity,
		ObjectID:   id,
		Version:    1,
		IsCurrent:  true,
		SubType:    "file",
		ParentID:   ir.Int64(parent),
		Etag:       etag,
		Name:       "file-" + etag,
	}
}

// PutTruth writes rows to the truth store.
func (s Stores) PutTruth(t testing.TB, rows ...ir.ObjectRow) {
	t.Helper()
	for _, row := range rows {
		require.NoError(t, s.Truth.Truth().Put(context.Background(), row), "put %s", row.Identity())
	}
}

// PutReplica writes rows straight into the replica store.
func (s Stores) PutReplica(t testing.TB, rows ...ir.ObjectRow) {
	t.Helper()
	err := s.Replica.Replica().Apply(context.Background(), func(tx *store.ReplicaTx) error {
		for _, row := range rows {
			if err := tx.Upsert(row); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

// ReplicaIDs returns the current replica object ids of objectType, ascending.
func (s Stores) ReplicaIDs(t testing.TB, objectType ir.ObjectType) []int64 {
	t.Helper()
	ids, err := s.Replica.Replica().IDs(context.Background(), objectType)
	require.NoError(t, err)
	return ids
}
