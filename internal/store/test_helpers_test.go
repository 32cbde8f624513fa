package store

import (
	"context"
	"hash/crc32"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/roach88/replicon/internal/checksum"
	"github.com/roach88/replicon/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// testRowChecksum is the checksum of createTestRow(id, parent, etag) under
// salt: every replicated column joined with the unit separator.
func testRowChecksum(salt string, parent int64, etag string) uint64 {
	fields := []string{salt, etag, "1", strconv.FormatInt(parent, 10), "-1", "file", "file-" + etag, "{}"}
	return uint64(crc32.ChecksumIEEE([]byte(strings.Join(fields, "\x1f"))))
}

// createTestRow creates a current ENTITY file row.
func createTestRow(id int64, parent int64, etag string) ir.ObjectRow {
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

// putTruth writes rows to the truth tables.
func putTruth(t *testing.T, s *Store, rows ...ir.ObjectRow) {
	t.Helper()
	for _, row := range rows {
		if err := s.Truth().Put(context.Background(), row); err != nil {
			t.Fatalf("Put(%s) failed: %v", row.Identity(), err)
		}
	}
}

// putReplica writes rows to the replica tables.
func putReplica(t *testing.T, s *Store, rows ...ir.ObjectRow) {
	t.Helper()
	err := s.Replica().Apply(context.Background(), func(tx *ReplicaTx) error {
		for _, row := range rows {
			if err := tx.Upsert(row); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("replica Apply failed: %v", err)
	}
}

// drain reads a stream to the end.
func drain(t *testing.T, s checksum.Stream) []ir.ChecksumEntry {
	t.Helper()
	defer s.Close()
	var out []ir.ChecksumEntry
	for s.Next() {
		out = append(out, s.Entry())
	}
	if err := s.Err(); err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	return out
}
