package store

import (
	"database/sql"
	"fmt"

	"github.com/roach88/replicon/internal/checksum"
	"github.com/roach88/replicon/internal/ir"
)

// rowStream adapts (id, checksum) result rows to checksum.Stream.
type rowStream struct {
	rows  *sql.Rows
	entry ir.ChecksumEntry
	err   error
}

func newRowStream(rows *sql.Rows) checksum.Stream {
	return checksum.Ordered(&rowStream{rows: rows})
}

func (r *rowStream) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			r.err = fmt.Errorf("iterate checksums: %w", err)
		}
		return false
	}
	var id, sum int64
	if err := r.rows.Scan(&id, &sum); err != nil {
		r.err = fmt.Errorf("scan checksum: %w", err)
		return false
	}
	r.entry = ir.ChecksumEntry{ObjectID: id, Checksum: uint64(sum)}
	return true
}

func (r *rowStream) Entry() ir.ChecksumEntry { return r.entry }

func (r *rowStream) Err() error { return r.err }

func (r *rowStream) Close() error { return r.rows.Close() }

const objectColumns = `object_type, object_id, object_version, is_current, sub_type,
	parent_id, benefactor_id, etag, name, annotations`

type scanner interface {
	Scan(dest ...any) error
}

// scanObject scans objectColumns, followed by any extra columns, into an
// ObjectRow.
func scanObject(sc scanner, extra ...any) (ir.ObjectRow, error) {
	var row ir.ObjectRow
	var objectType, subType, annotations string
	var isCurrent int64
	var parentID, benefactorID sql.NullInt64

	dest := []any{&objectType, &row.ObjectID, &row.Version, &isCurrent, &subType,
		&parentID, &benefactorID, &row.Etag, &row.Name, &annotations}
	err := sc.Scan(append(dest, extra...)...)
	if err != nil {
		return ir.ObjectRow{}, fmt.Errorf("scan object: %w", err)
	}

	row.ObjectType = ir.ObjectType(objectType)
	row.SubType = ir.SubType(subType)
	row.IsCurrent = isCurrent != 0
	if parentID.Valid {
		row.ParentID = ir.Int64(parentID.Int64)
	}
	if benefactorID.Valid {
		row.BenefactorID = ir.Int64(benefactorID.Int64)
	}
	row.Annotations, err = unmarshalAnnotations(annotations)
	if err != nil {
		return ir.ObjectRow{}, err
	}
	return row, nil
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
