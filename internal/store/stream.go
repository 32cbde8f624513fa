package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/replicon/internal/checksum"
	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/queryir"
	"github.com/roach88/replicon/internal/querysql"
)

// ErrUnsupportedMode reports a checksum mode the filter cannot serve.
var ErrUnsupportedMode = errors.New("unsupported checksum mode")

// stream compiles and opens a checksum query over table. Container streams
// are only defined for hierarchical filters.
func (s *Store) stream(ctx context.Context, table string, salt uint64, f filter.Filter, pred queryir.Predicate, mode checksum.Mode) (checksum.Stream, error) {
	if mode == checksum.ModeContainers && f.Kind() != filter.KindHierarchical {
		return nil, fmt.Errorf("%w: %s over %s filter", ErrUnsupportedMode, mode, f.Kind())
	}
	query, args, err := s.compiler.CompileChecksum(querysql.ChecksumQuery{
		Table:  table,
		Salt:   salt,
		Mode:   mode,
		Filter: pred,
	})
	if err != nil {
		return nil, fmt.Errorf("stream %s %s: %w", table, f.ScopeKey(), err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("stream %s %s: %w", table, f.ScopeKey(), err)
	}
	return newRowStream(rows), nil
}

// selectIDs returns the object ids of the rows in table matching pred,
// ascending.
func (s *Store) selectIDs(ctx context.Context, table string, pred queryir.Predicate) ([]int64, error) {
	query, args, err := s.compiler.CompileSelect(table, []string{queryir.FieldObjectID}, pred)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// objectPredicates selects every version of one object.
func objectPredicates(objectType ir.ObjectType, id int64) []queryir.Predicate {
	return []queryir.Predicate{
		queryir.Equals{Field: queryir.FieldObjectType, Value: string(objectType)},
		queryir.Equals{Field: queryir.FieldObjectID, Value: id},
	}
}
