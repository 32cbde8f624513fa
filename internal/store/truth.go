package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/replicon/internal/checksum"
	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/queryir"
)

const truthTable = "objects"

// Truth reads and writes the authoritative object rows.
type Truth struct {
	s *Store
}

// Put inserts or replaces one object version. When the row is current, any
// other current version of the same object is demoted in the same
// transaction.
func (t *Truth) Put(ctx context.Context, row ir.ObjectRow) error {
	annotations, err := marshalAnnotations(row.Annotations)
	if err != nil {
		return fmt.Errorf("put %s: %w", row.Identity(), err)
	}

	tx, err := t.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put %s: begin: %w", row.Identity(), err)
	}
	defer tx.Rollback()

	if row.IsCurrent {
		_, err = tx.ExecContext(ctx, `
			UPDATE objects SET is_current = 0
			WHERE object_type = ? AND object_id = ? AND object_version <> ?
		`, string(row.ObjectType), row.ObjectID, row.Version)
		if err != nil {
			return fmt.Errorf("put %s: demote: %w", row.Identity(), err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO objects
		(object_type, object_id, object_version, is_current, sub_type,
		 parent_id, benefactor_id, etag, name, annotations, in_trash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(object_type, object_id, object_version) DO UPDATE SET
			is_current = excluded.is_current,
			sub_type = excluded.sub_type,
			parent_id = excluded.parent_id,
			benefactor_id = excluded.benefactor_id,
			etag = excluded.etag,
			name = excluded.name,
			annotations = excluded.annotations,
			in_trash = excluded.in_trash
	`,
		string(row.ObjectType),
		row.ObjectID,
		row.Version,
		boolInt(row.IsCurrent),
		string(row.SubType),
		nullInt64(row.ParentID),
		nullInt64(row.BenefactorID),
		row.Etag,
		row.Name,
		annotations,
		boolInt(row.InTrash),
	)
	if err != nil {
		return fmt.Errorf("put %s: %w", row.Identity(), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put %s: commit: %w", row.Identity(), err)
	}
	return nil
}

// Delete removes every version of an object.
func (t *Truth) Delete(ctx context.Context, objectType ir.ObjectType, id int64) error {
	query, args, err := t.s.compiler.CompileDelete(truthTable, queryir.And{Predicates: objectPredicates(objectType, id)})
	if err == nil {
		_, err = t.s.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("delete %s:%d: %w", objectType, id, err)
	}
	return nil
}

// SetTrash moves every version of an object into or out of the trash.
func (t *Truth) SetTrash(ctx context.Context, objectType ir.ObjectType, id int64, inTrash bool) error {
	res, err := t.s.db.ExecContext(ctx,
		`UPDATE objects SET in_trash = ? WHERE object_type = ? AND object_id = ?`,
		boolInt(inTrash), string(objectType), id)
	if err != nil {
		return fmt.Errorf("trash %s:%d: %w", objectType, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trash %s:%d: %w", objectType, id, ErrNotFound)
	}
	return nil
}

// Stream opens a checksum stream over the available truth rows in scope.
// The caller must Close the stream.
func (t *Truth) Stream(ctx context.Context, salt uint64, f filter.Filter, mode checksum.Mode) (checksum.Stream, error) {
	pred := queryir.And{Predicates: []queryir.Predicate{
		f.Predicate(),
		queryir.Equals{Field: queryir.FieldInTrash, Value: false},
	}}
	return t.s.stream(ctx, truthTable, salt, f, pred, mode)
}

// IsAvailable reports whether the object exists and is not in the trash.
func (t *Truth) IsAvailable(ctx context.Context, objectType ir.ObjectType, id int64) (bool, error) {
	var n int
	err := t.s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM objects
		WHERE object_type = ? AND object_id = ? AND is_current = 1 AND in_trash = 0
	`, string(objectType), id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is available %s:%d: %w", objectType, id, err)
	}
	return n > 0, nil
}

// Children returns the ids of the available current objects whose parent is
// parentID, ascending.
func (t *Truth) Children(ctx context.Context, objectType ir.ObjectType, parentID int64) ([]int64, error) {
	ids, err := t.s.selectIDs(ctx, truthTable, queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: queryir.FieldObjectType, Value: string(objectType)},
		queryir.Equals{Field: queryir.FieldParentID, Value: parentID},
		queryir.Equals{Field: queryir.FieldIsCurrent, Value: true},
		queryir.Equals{Field: queryir.FieldInTrash, Value: false},
	}})
	if err != nil {
		return nil, fmt.Errorf("children of %d: %w", parentID, err)
	}
	return ids, nil
}

// Get returns the row for an identity: the current row when Version is nil,
// otherwise that exact version. Trashed rows are returned with InTrash set.
func (t *Truth) Get(ctx context.Context, id ir.ObjectIdentity) (ir.ObjectRow, error) {
	query := `SELECT ` + objectColumns + `, in_trash FROM objects
		WHERE object_type = ? AND object_id = ? AND is_current = 1`
	args := []any{string(id.Type), id.ID}
	if id.Version != nil {
		query = `SELECT ` + objectColumns + `, in_trash FROM objects
			WHERE object_type = ? AND object_id = ? AND object_version = ?`
		args = append(args, *id.Version)
	}

	var inTrash int64
	row, err := scanObject(t.s.db.QueryRowContext(ctx, query, args...), &inTrash)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ObjectRow{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.ObjectRow{}, fmt.Errorf("get %s: %w", id, err)
	}
	row.InTrash = inTrash != 0
	return row, nil
}

// Rows returns the available rows for the given identities, ascending by id
// then version. Identities that are missing or in the trash are absent from
// the result.
func (t *Truth) Rows(ctx context.Context, ids []ir.ObjectIdentity) ([]ir.ObjectRow, error) {
	out := make([]ir.ObjectRow, 0, len(ids))
	for _, id := range ids {
		row, err := t.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if row.InTrash {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}
