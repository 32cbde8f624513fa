package index

import (
	"fmt"
	"slices"
)

// SQLContext says what a SELECT is being generated for. The zero value is
// deliberately invalid.
type SQLContext int

const (
	SQLContextUnset SQLContext = iota
	SQLContextQuery
	SQLContextBuild
)

func (c SQLContext) String() string {
	switch c {
	case SQLContextQuery:
		return "query"
	case SQLContextBuild:
		return "build"
	default:
		return "unset"
	}
}

// ColumnToAdd is an extra select expression contributed by a dependency.
type ColumnToAdd struct {
	Dependency Key
	Expression string
	Alias      string
}

// ColumnNamesToAddToSelect returns the columns a SELECT over h must carry.
func (g *Graph) ColumnNamesToAddToSelect(h Handle, ctx SQLContext, includeEtag, isAggregate bool) ([]ColumnToAdd, error) {
	n, err := g.node(h)
	if err != nil {
		return nil, err
	}
	switch ctx {
	case SQLContextQuery:
		if isAggregate {
			return []ColumnToAdd{}, nil
		}
		cols := []ColumnToAdd{
			{Dependency: n.key, Expression: ColumnRowID, Alias: ColumnRowID},
			{Dependency: n.key, Expression: ColumnRowVersion, Alias: ColumnRowVersion},
		}
		if includeEtag {
			cols = append(cols, ColumnToAdd{Dependency: n.key, Expression: ColumnRowEtag, Alias: ColumnRowEtag})
		}
		return cols, nil

	case SQLContextBuild:
		if isAggregate {
			ok, err := g.allTables(h)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("%s: %w", n.key, ErrAggregateWithViewDependency)
			}
			return []ColumnToAdd{}, nil
		}
		benefactors, err := g.Benefactors(h)
		if err != nil {
			return nil, err
		}
		slices.SortStableFunc(benefactors, func(a, b BenefactorDescription) int {
			return a.Dependency.Compare(b.Dependency)
		})
		cols := make([]ColumnToAdd, 0, len(benefactors))
		for _, b := range benefactors {
			expr := fmt.Sprintf("IFNULL(%s, -1)", b.ColumnName)
			if n.kind == KindMaterializedView {
				expr = fmt.Sprintf("IFNULL(%s.%s, -1)", b.Dependency.TableName(), b.SourceColumn)
			}
			cols = append(cols, ColumnToAdd{Dependency: b.Dependency, Expression: expr, Alias: b.ColumnName})
		}
		return cols, nil

	default:
		return nil, fmt.Errorf("%w: got %d", ErrUnsetContext, ctx)
	}
}
