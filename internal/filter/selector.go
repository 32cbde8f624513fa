package filter

import (
	"fmt"
	"strings"

	"github.com/roach88/replicon/internal/ir"
)

// Selector is the flat, user-facing description of a scope as given on the
// command line or in a scenario file. Exactly one of IDs, Containers and
// Versions must be set.
type Selector struct {
	ObjectType string   `yaml:"type,omitempty"`
	SubTypes   []string `yaml:"sub_types"`
	IDs        []int64  `yaml:"ids,omitempty"`
	Containers []int64  `yaml:"containers,omitempty"`
	Versions   []string `yaml:"versions,omitempty"` // id.version
}

// Build returns the filter the selector describes. The object type defaults
// to ENTITY. Hierarchical filters get splitThreshold.
func (s Selector) Build(splitThreshold int) (Filter, error) {
	objectType := ir.ObjectTypeEntity
	if s.ObjectType != "" {
		objectType = ir.ObjectType(strings.ToUpper(s.ObjectType))
	}
	subTypes := make([]ir.SubType, len(s.SubTypes))
	for i, st := range s.SubTypes {
		subTypes[i] = ir.SubType(st)
	}

	set := 0
	for _, n := range []int{len(s.IDs), len(s.Containers), len(s.Versions)} {
		if n > 0 {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: exactly one of ids, containers and versions is required", ErrInvalidFilter)
	}

	switch {
	case len(s.Containers) > 0:
		h, err := NewHierarchical(objectType, subTypes, s.Containers)
		if err != nil {
			return nil, err
		}
		return h.WithSplitThreshold(splitThreshold)

	case len(s.Versions) > 0:
		pairs := make([]IDAndVersion, len(s.Versions))
		for i, v := range s.Versions {
			p, err := ParseIDAndVersion(v)
			if err != nil {
				return nil, err
			}
			pairs[i] = p
		}
		return NewIDAndVersionList(objectType, subTypes, pairs)

	default:
		return NewFlatIDs(objectType, subTypes, s.IDs)
	}
}
