package index

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/roach88/replicon/internal/ir"
)

// Column names shared by every replica index table.
const (
	ColumnRowID            = "ROW_ID"
	ColumnRowVersion       = "ROW_VERSION"
	ColumnRowEtag          = "ROW_ETAG"
	ColumnRowSearchContent = "ROW_SEARCH_CONTENT"
	ColumnRowBenefactor    = "ROW_BENEFACTOR"
)

// BenefactorDescription is one access-control column of an index table.
type BenefactorDescription struct {
	// ColumnName is the column in this index's table.
	ColumnName string `json:"column_name"`
	// ObjectType is what the column's values point at.
	ObjectType ir.ObjectType `json:"object_type"`
	// Dependency is the direct dependency the value is copied from; it is
	// the zero Key for a view's own ROW_BENEFACTOR.
	Dependency Key `json:"dependency"`
	// SourceColumn is the column read from Dependency's table.
	SourceColumn string `json:"source_column,omitempty"`
}

// Benefactors returns the benefactor columns of h sorted by column name.
func (g *Graph) Benefactors(h Handle) ([]BenefactorDescription, error) {
	order, err := g.postOrder(h)
	if err != nil {
		return nil, err
	}
	memo := make(map[Handle][]BenefactorDescription, len(order))
	for _, n := range order {
		b, err := g.benefactorsOf(n, memo)
		if err != nil {
			return nil, err
		}
		memo[n] = b
	}
	return memo[h], nil
}

// benefactorsOf derives n's columns from its already-resolved dependencies.
func (g *Graph) benefactorsOf(n Handle, memo map[Handle][]BenefactorDescription) ([]BenefactorDescription, error) {
	nd := &g.nodes[n]
	switch nd.kind {
	case KindTable:
		return nil, nil
	case KindView:
		return []BenefactorDescription{{
			ColumnName: ColumnRowBenefactor,
			ObjectType: ValidTableTypes[nd.tableType],
		}}, nil
	case KindMaterializedView:
		var out []BenefactorDescription
		for _, d := range g.directDeps(n) {
			dk := g.nodes[d].key
			for _, b := range memo[d] {
				out = append(out, BenefactorDescription{
					ColumnName:   b.ColumnName + "_" + dk.Ident(),
					ObjectType:   b.ObjectType,
					Dependency:   dk,
					SourceColumn: b.ColumnName,
				})
			}
		}
		slices.SortFunc(out, func(a, b BenefactorDescription) int {
			return cmp.Compare(a.ColumnName, b.ColumnName)
		})
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedKind, nd.kind)
	}
}
