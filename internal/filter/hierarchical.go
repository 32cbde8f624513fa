package filter

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/queryir"
)

// Hierarchical covers the current version of every object whose parent is
// one of a set of containers.
type Hierarchical struct {
	base
	containers     []int64
	splitThreshold int
}

// NewHierarchical builds a Hierarchical filter with DefaultSplitThreshold.
// Container ids are sorted and de-duplicated.
func NewHierarchical(objectType ir.ObjectType, subTypes []ir.SubType, containerIDs []int64) (Hierarchical, error) {
	b, err := newBase(objectType, subTypes)
	if err != nil {
		return Hierarchical{}, err
	}
	return Hierarchical{
		base:           b,
		containers:     normalizeIDs(containerIDs),
		splitThreshold: DefaultSplitThreshold,
	}, nil
}

func (Hierarchical) sealed() {}

func (Hierarchical) Kind() Kind { return KindHierarchical }

// WithSplitThreshold returns a copy that splits once it covers more than n
// containers.
func (h Hierarchical) WithSplitThreshold(n int) (Hierarchical, error) {
	if n < 1 {
		return Hierarchical{}, fmt.Errorf("%w: split threshold must be at least 1, got %d", ErrInvalidFilter, n)
	}
	h.splitThreshold = n
	return h, nil
}

// SplitThreshold returns the container count above which TrySplit splits.
func (h Hierarchical) SplitThreshold() int { return h.splitThreshold }

// ContainerIDs returns the container ids in ascending order.
func (h Hierarchical) ContainerIDs() []int64 { return slices.Clone(h.containers) }

func (h Hierarchical) IsEmpty() bool { return len(h.containers) == 0 }

func (h Hierarchical) Predicate() queryir.Predicate {
	preds := h.commonPredicates()
	preds = append(preds,
		queryir.In{Field: queryir.FieldParentID, Values: queryir.Int64s(h.containers)},
		queryir.Equals{Field: queryir.FieldIsCurrent, Value: true},
	)
	return queryir.And{Predicates: preds}
}

// TrySplit returns one filter per container when the filter covers more
// containers than its split threshold.
func (h Hierarchical) TrySplit() ([]Filter, bool) {
	if len(h.containers) <= h.splitThreshold {
		return nil, false
	}
	subs := make([]Filter, len(h.containers))
	for i, id := range h.containers {
		sub := h
		sub.containers = []int64{id}
		subs[i] = sub
	}
	return subs, true
}

// Container narrows the filter to a single container of the same type.
func (h Hierarchical) Container(id int64) Hierarchical {
	h.containers = []int64{id}
	return h
}

func (h Hierarchical) ScopeKey() string {
	if len(h.containers) == 1 {
		return h.keyPrefix("container") + "/" + strconv.FormatInt(h.containers[0], 10) + "/" + h.keyTypes()
	}
	return h.keyPrefix("containers") + "/" + ir.ScopeHash(joinIDs(h.containers))[:16] + "/" + h.keyTypes()
}
