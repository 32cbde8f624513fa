package filter

import (
	"slices"

	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/queryir"
)

// FlatIDs covers the current version of an explicit set of objects.
type FlatIDs struct {
	base
	ids []int64
}

// NewFlatIDs builds a FlatIDs filter. Ids are sorted and de-duplicated.
func NewFlatIDs(objectType ir.ObjectType, subTypes []ir.SubType, ids []int64) (FlatIDs, error) {
	b, err := newBase(objectType, subTypes)
	if err != nil {
		return FlatIDs{}, err
	}
	return FlatIDs{base: b, ids: normalizeIDs(ids)}, nil
}

func (FlatIDs) sealed() {}

func (FlatIDs) Kind() Kind { return KindFlatIDs }

// IDs returns the object ids in ascending order.
func (f FlatIDs) IDs() []int64 { return slices.Clone(f.ids) }

func (f FlatIDs) IsEmpty() bool { return len(f.ids) == 0 }

func (f FlatIDs) Predicate() queryir.Predicate {
	preds := f.commonPredicates()
	preds = append(preds,
		queryir.In{Field: queryir.FieldObjectID, Values: queryir.Int64s(f.ids)},
		queryir.Equals{Field: queryir.FieldIsCurrent, Value: true},
	)
	return queryir.And{Predicates: preds}
}

// TrySplit never decomposes a flat id set.
func (f FlatIDs) TrySplit() ([]Filter, bool) { return nil, false }

func (f FlatIDs) ScopeKey() string {
	return f.keyPrefix("ids") + "/" + ir.ScopeHash(joinIDs(f.ids))[:16] + "/" + f.keyTypes()
}
