package filter

import (
	"fmt"

	"github.com/roach88/replicon/internal/ir"
)

// Envelope is the wire form of a Filter on the reconciliation queue.
type Envelope struct {
	Kind           Kind           `json:"kind"`
	ObjectType     ir.ObjectType  `json:"object_type"`
	SubTypes       []ir.SubType   `json:"sub_types"`
	IDs            []int64        `json:"ids,omitempty"`
	ContainerIDs   []int64        `json:"container_ids,omitempty"`
	SplitThreshold int            `json:"split_threshold,omitempty"`
	Versions       []IDAndVersion `json:"versions,omitempty"`
}

// ToEnvelope converts a filter to its wire form.
func ToEnvelope(f Filter) (Envelope, error) {
	switch v := f.(type) {
	case FlatIDs:
		return Envelope{Kind: KindFlatIDs, ObjectType: v.objectType, SubTypes: v.SubTypes(), IDs: v.IDs()}, nil
	case Hierarchical:
		return Envelope{
			Kind:           KindHierarchical,
			ObjectType:     v.objectType,
			SubTypes:       v.SubTypes(),
			ContainerIDs:   v.ContainerIDs(),
			SplitThreshold: v.splitThreshold,
		}, nil
	case IDAndVersionList:
		return Envelope{Kind: KindIDAndVersionList, ObjectType: v.objectType, SubTypes: v.SubTypes(), Versions: v.Pairs()}, nil
	default:
		return Envelope{}, fmt.Errorf("%w: unsupported filter type %T", ErrInvalidFilter, f)
	}
}

// FromEnvelope rebuilds a filter, re-running every constructor check.
func FromEnvelope(e Envelope) (Filter, error) {
	switch e.Kind {
	case KindFlatIDs:
		return NewFlatIDs(e.ObjectType, e.SubTypes, e.IDs)
	case KindHierarchical:
		h, err := NewHierarchical(e.ObjectType, e.SubTypes, e.ContainerIDs)
		if err != nil {
			return nil, err
		}
		if e.SplitThreshold == 0 {
			return h, nil
		}
		return h.WithSplitThreshold(e.SplitThreshold)
	case KindIDAndVersionList:
		return NewIDAndVersionList(e.ObjectType, e.SubTypes, e.Versions)
	default:
		return nil, fmt.Errorf("%w: unknown filter kind %q", ErrInvalidFilter, e.Kind)
	}
}
