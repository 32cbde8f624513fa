package filter

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/queryir"
)

// IDAndVersion pins one version of an object.
type IDAndVersion struct {
	ID      int64 `json:"id"`
	Version int64 `json:"version"`
}

// IDAndVersionList covers explicit object versions. Each object id may
// appear only once, so that checksum streams stay keyed by object id.
type IDAndVersionList struct {
	base
	pairs []IDAndVersion
}

// NewIDAndVersionList builds an IDAndVersionList filter, sorted by id.
func NewIDAndVersionList(objectType ir.ObjectType, subTypes []ir.SubType, pairs []IDAndVersion) (IDAndVersionList, error) {
	b, err := newBase(objectType, subTypes)
	if err != nil {
		return IDAndVersionList{}, err
	}
	sorted := slices.Clone(pairs)
	slices.SortFunc(sorted, func(a, b IDAndVersion) int {
		if a.ID != b.ID {
			return cmp.Compare(a.ID, b.ID)
		}
		return cmp.Compare(a.Version, b.Version)
	})
	sorted = slices.Compact(sorted)
	for i := 1; i < len(sorted); i++ {
		if sorted[i].ID == sorted[i-1].ID {
			return IDAndVersionList{}, fmt.Errorf("%w: object %d listed with versions %d and %d",
				ErrInvalidFilter, sorted[i].ID, sorted[i-1].Version, sorted[i].Version)
		}
	}
	return IDAndVersionList{base: b, pairs: sorted}, nil
}

func (IDAndVersionList) sealed() {}

func (IDAndVersionList) Kind() Kind { return KindIDAndVersionList }

// Pairs returns the (id, version) pairs in ascending id order.
func (l IDAndVersionList) Pairs() []IDAndVersion { return slices.Clone(l.pairs) }

func (l IDAndVersionList) IsEmpty() bool { return len(l.pairs) == 0 }

func (l IDAndVersionList) Predicate() queryir.Predicate {
	pairs := make([][2]any, len(l.pairs))
	for i, p := range l.pairs {
		pairs[i] = [2]any{p.ID, p.Version}
	}
	preds := l.commonPredicates()
	preds = append(preds, queryir.PairIn{
		Fields: [2]string{queryir.FieldObjectID, queryir.FieldObjectVersion},
		Pairs:  pairs,
	})
	return queryir.And{Predicates: preds}
}

// TrySplit never decomposes an explicit version list.
func (l IDAndVersionList) TrySplit() ([]Filter, bool) { return nil, false }

func (l IDAndVersionList) ScopeKey() string {
	parts := make([]string, len(l.pairs))
	for i, p := range l.pairs {
		parts[i] = strconv.FormatInt(p.ID, 10) + "." + strconv.FormatInt(p.Version, 10)
	}
	return l.keyPrefix("versions") + "/" + ir.ScopeHash(strings.Join(parts, ","))[:16] + "/" + l.keyTypes()
}

// String renders the pair as id.version.
func (p IDAndVersion) String() string {
	return strconv.FormatInt(p.ID, 10) + "." + strconv.FormatInt(p.Version, 10)
}

// ParseIDAndVersion parses an id.version pair.
func ParseIDAndVersion(s string) (IDAndVersion, error) {
	idPart, verPart, ok := strings.Cut(s, ".")
	if !ok {
		return IDAndVersion{}, fmt.Errorf("%w: version %q: want id.version", ErrInvalidFilter, s)
	}
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return IDAndVersion{}, fmt.Errorf("%w: version %q: %v", ErrInvalidFilter, s, err)
	}
	ver, err := strconv.ParseInt(verPart, 10, 64)
	if err != nil {
		return IDAndVersion{}, fmt.Errorf("%w: version %q: %v", ErrInvalidFilter, s, err)
	}
	return IDAndVersion{ID: id, Version: ver}, nil
}
