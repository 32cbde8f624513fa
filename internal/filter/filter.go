package filter

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/queryir"
)

// DefaultSplitThreshold is the number of containers a Hierarchical filter
// may cover before TrySplit decomposes it. With the default of one, every
// container is reconciled and leased on its own.
const DefaultSplitThreshold = 1

var (
	// ErrEmptySubTypes reports a filter built without sub-types.
	ErrEmptySubTypes = errors.New("filter sub-types must not be empty")
	// ErrInvalidFilter reports any other malformed filter.
	ErrInvalidFilter = errors.New("invalid filter")
)

// Kind identifies a Filter variant.
type Kind string

const (
	KindFlatIDs          Kind = "flat_ids"
	KindHierarchical     Kind = "hierarchical"
	KindIDAndVersionList Kind = "id_and_version_list"
)

// Filter is implemented only by FlatIDs, Hierarchical and IDAndVersionList.
type Filter interface {
	Kind() Kind
	ReplicationType() ir.ObjectType
	SubTypes() []ir.SubType
	// IsEmpty reports whether the scope denotes zero objects.
	IsEmpty() bool
	// Predicate returns the opaque scope descriptor.
	Predicate() queryir.Predicate
	// TrySplit decomposes the filter into independently reconcilable
	// sub-filters, or returns false when it is already minimal.
	TrySplit() ([]Filter, bool)
	// ScopeKey returns a stable key naming the scope, used for leases.
	ScopeKey() string

	sealed()
}

// base holds the fields shared by all variants.
type base struct {
	objectType ir.ObjectType
	subTypes   []ir.SubType
}

func newBase(objectType ir.ObjectType, subTypes []ir.SubType) (base, error) {
	if !ir.ValidObjectTypes[objectType] {
		return base{}, fmt.Errorf("%w: unknown object type %q", ErrInvalidFilter, objectType)
	}
	if len(subTypes) == 0 {
		return base{}, ErrEmptySubTypes
	}
	sorted := slices.Clone(subTypes)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	for _, st := range sorted {
		if st == "" {
			return base{}, fmt.Errorf("%w: blank sub-type", ErrInvalidFilter)
		}
	}
	return base{objectType: objectType, subTypes: sorted}, nil
}

func (b base) ReplicationType() ir.ObjectType { return b.objectType }

func (b base) SubTypes() []ir.SubType { return slices.Clone(b.subTypes) }

// commonPredicates restricts to the object type and sub-types.
func (b base) commonPredicates() []queryir.Predicate {
	return []queryir.Predicate{
		queryir.Equals{Field: queryir.FieldObjectType, Value: string(b.objectType)},
		queryir.In{Field: queryir.FieldSubType, Values: queryir.Strings(b.subTypes)},
	}
}

// keyPrefix renders "<type>/<kind>" and keyTypes renders the sub-type set.
func (b base) keyPrefix(kind string) string {
	return string(b.objectType) + "/" + kind
}

func (b base) keyTypes() string {
	parts := make([]string, len(b.subTypes))
	for i, st := range b.subTypes {
		parts[i] = string(st)
	}
	return strings.Join(parts, ",")
}

// normalizeIDs sorts and de-duplicates ids.
func normalizeIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Describe renders a filter for logs.
func Describe(f Filter) string {
	switch v := f.(type) {
	case FlatIDs:
		return fmt.Sprintf("%s ids=%d subtypes=%s", v.objectType, len(v.ids), v.keyTypes())
	case Hierarchical:
		return fmt.Sprintf("%s containers=%s subtypes=%s", v.objectType, joinIDs(v.containers), v.keyTypes())
	case IDAndVersionList:
		return fmt.Sprintf("%s versions=%d subtypes=%s", v.objectType, len(v.pairs), v.keyTypes())
	default:
		return fmt.Sprintf("unknown filter %T", f)
	}
}
