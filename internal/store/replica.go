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
	"github.com/roach88/replicon/internal/querysql"
)

const replicaTable = "replica_objects"

// Replica reads and writes the replicated object rows.
type Replica struct {
	s *Store
}

// Stream opens a checksum stream over the replica rows in scope.
// The caller must Close the stream.
func (r *Replica) Stream(ctx context.Context, salt uint64, f filter.Filter, mode checksum.Mode) (checksum.Stream, error) {
	return r.s.stream(ctx, replicaTable, salt, f, f.Predicate(), mode)
}

// Get returns a replica row: the current row when Version is nil, otherwise
// that exact version.
func (r *Replica) Get(ctx context.Context, id ir.ObjectIdentity) (ir.ObjectRow, string, error) {
	query := `SELECT ` + objectColumns + `, search_content FROM replica_objects
		WHERE object_type = ? AND object_id = ? AND is_current = 1`
	args := []any{string(id.Type), id.ID}
	if id.Version != nil {
		query = `SELECT ` + objectColumns + `, search_content FROM replica_objects
			WHERE object_type = ? AND object_id = ? AND object_version = ?`
		args = append(args, *id.Version)
	}

	var content string
	row, err := scanObject(r.s.db.QueryRowContext(ctx, query, args...), &content)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ObjectRow{}, "", fmt.Errorf("replica get %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return ir.ObjectRow{}, "", fmt.Errorf("replica get %s: %w", id, err)
	}
	return row, content, nil
}

// IDs returns the ids of the current replica rows of a type, ascending.
func (r *Replica) IDs(ctx context.Context, objectType ir.ObjectType) ([]int64, error) {
	ids, err := r.s.selectIDs(ctx, replicaTable, queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: queryir.FieldObjectType, Value: string(objectType)},
		queryir.Equals{Field: queryir.FieldIsCurrent, Value: true},
	}})
	if err != nil {
		return nil, fmt.Errorf("replica ids %s: %w", objectType, err)
	}
	return ids, nil
}

// Count returns the number of replica rows of a type.
func (r *Replica) Count(ctx context.Context, objectType ir.ObjectType) (int, error) {
	var n int
	err := r.s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM replica_objects WHERE object_type = ?`, string(objectType)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("replica count: %w", err)
	}
	return n, nil
}

// EnsureIndex executes index DDL verbatim.
func (r *Replica) EnsureIndex(ctx context.Context, ddl string) error {
	if _, err := r.s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	return nil
}

// Apply runs fn inside one replica transaction. The transaction commits only
// if fn returns nil.
func (r *Replica) Apply(ctx context.Context, fn func(tx *ReplicaTx) error) error {
	tx, err := r.s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replica apply: begin: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&ReplicaTx{ctx: ctx, tx: tx, compiler: r.s.compiler}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replica apply: commit: %w", err)
	}
	return nil
}

// ReplicaTx is a replica write transaction.
type ReplicaTx struct {
	ctx      context.Context
	tx       *sql.Tx
	compiler *querysql.SQLCompiler
}

func (t *ReplicaTx) delete(preds ...queryir.Predicate) error {
	query, args, err := t.compiler.CompileDelete(replicaTable, queryir.And{Predicates: preds})
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx, query, args...)
	return err
}

// DeleteObject removes every version of an object.
func (t *ReplicaTx) DeleteObject(objectType ir.ObjectType, id int64) error {
	if err := t.delete(objectPredicates(objectType, id)...); err != nil {
		return fmt.Errorf("replica delete %s:%d: %w", objectType, id, err)
	}
	return nil
}

// DeleteCurrent removes the current row of an object.
func (t *ReplicaTx) DeleteCurrent(objectType ir.ObjectType, id int64) error {
	preds := append(objectPredicates(objectType, id), queryir.Equals{Field: queryir.FieldIsCurrent, Value: true})
	if err := t.delete(preds...); err != nil {
		return fmt.Errorf("replica delete current %s:%d: %w", objectType, id, err)
	}
	return nil
}

// DeleteVersion removes one version of an object.
func (t *ReplicaTx) DeleteVersion(objectType ir.ObjectType, id, version int64) error {
	preds := append(objectPredicates(objectType, id), queryir.Equals{Field: queryir.FieldObjectVersion, Value: version})
	if err := t.delete(preds...); err != nil {
		return fmt.Errorf("replica delete %s:%d.%d: %w", objectType, id, version, err)
	}
	return nil
}

// Upsert writes a row. A row that is already current stays current when a
// pinned copy of the same version is written.
func (t *ReplicaTx) Upsert(row ir.ObjectRow) error {
	annotations, err := marshalAnnotations(row.Annotations)
	if err != nil {
		return fmt.Errorf("replica upsert %s: %w", row.Identity(), err)
	}
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO replica_objects
		(object_type, object_id, object_version, is_current, sub_type,
		 parent_id, benefactor_id, etag, name, annotations, search_content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(object_type, object_id, object_version) DO UPDATE SET
			is_current = MAX(replica_objects.is_current, excluded.is_current),
			sub_type = excluded.sub_type,
			parent_id = excluded.parent_id,
			benefactor_id = excluded.benefactor_id,
			etag = excluded.etag,
			name = excluded.name,
			annotations = excluded.annotations,
			search_content = excluded.search_content
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
		searchContent(row),
	)
	if err != nil {
		return fmt.Errorf("replica upsert %s: %w", row.Identity(), err)
	}
	return nil
}
