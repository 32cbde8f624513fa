package index

import (
	"cmp"
	"fmt"
	"strconv"

	"github.com/roach88/replicon/internal/ir"
)

// Kind identifies an index description variant.
type Kind int

const (
	KindTable Kind = iota + 1
	KindView
	KindMaterializedView
)

func (k Kind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindView:
		return "view"
	case KindMaterializedView:
		return "materialized_view"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// TableType is the flavour of a view, which decides what its benefactor
// column points at.
type TableType string

const (
	TableTypeEntityView        TableType = "entityview"
	TableTypeDataset           TableType = "dataset"
	TableTypeDatasetCollection TableType = "datasetcollection"
	TableTypeSubmissionView    TableType = "submissionview"
)

// ValidTableTypes maps each view table type to its benefactor object type.
var ValidTableTypes = map[TableType]ir.ObjectType{
	TableTypeEntityView:        ir.ObjectTypeEntity,
	TableTypeDataset:           ir.ObjectTypeEntity,
	TableTypeDatasetCollection: ir.ObjectTypeEntity,
	TableTypeSubmissionView:    ir.ObjectTypeEvaluation,
}

// Key identifies an index description by id and optional version.
type Key struct {
	ID      int64
	Version *int64
}

// NewKey returns an unversioned key.
func NewKey(id int64) Key { return Key{ID: id} }

// NewVersionedKey returns a key pinned to a version.
func NewVersionedKey(id, version int64) Key { return Key{ID: id, Version: &version} }

// Compare orders keys by id, then unversioned before versioned, then version.
func (k Key) Compare(o Key) int {
	if c := cmp.Compare(k.ID, o.ID); c != 0 {
		return c
	}
	switch {
	case k.Version == nil && o.Version == nil:
		return 0
	case k.Version == nil:
		return -1
	case o.Version == nil:
		return 1
	default:
		return cmp.Compare(*k.Version, *o.Version)
	}
}

// Equal reports whether two keys name the same description.
func (k Key) Equal(o Key) bool { return k.Compare(o) == 0 }

// Ident renders the key for use inside column names: "12" or "12v3".
func (k Key) Ident() string {
	if k.Version == nil {
		return strconv.FormatInt(k.ID, 10)
	}
	return strconv.FormatInt(k.ID, 10) + "v" + strconv.FormatInt(*k.Version, 10)
}

// TableName renders the physical table name: "T12" or "T12_3".
func (k Key) TableName() string {
	if k.Version == nil {
		return "T" + strconv.FormatInt(k.ID, 10)
	}
	return "T" + strconv.FormatInt(k.ID, 10) + "_" + strconv.FormatInt(*k.Version, 10)
}

func (k Key) String() string {
	if k.Version == nil {
		return "syn" + strconv.FormatInt(k.ID, 10)
	}
	return "syn" + strconv.FormatInt(k.ID, 10) + "." + strconv.FormatInt(*k.Version, 10)
}

// mapKey is the comparable form of Key.
type mapKey struct {
	id        int64
	versioned bool
	version   int64
}

func (k Key) mapKey() mapKey {
	if k.Version == nil {
		return mapKey{id: k.ID}
	}
	return mapKey{id: k.ID, versioned: true, version: *k.Version}
}

// Handle addresses a description inside a Graph.
type Handle int

type node struct {
	kind      Kind
	key       Key
	tableType TableType
	deps      []Handle
}

// Graph is an arena of index descriptions.
// A Graph is not safe for concurrent mutation; resolved results are plain
// values and can be shared freely.
type Graph struct {
	nodes []node
	byKey map[mapKey]Handle
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{byKey: make(map[mapKey]Handle)}
}

// AddTable adds a table description.
func (g *Graph) AddTable(key Key) (Handle, error) {
	return g.add(node{kind: KindTable, key: key})
}

// AddView adds a view description of the given table type.
func (g *Graph) AddView(key Key, tableType TableType) (Handle, error) {
	if _, ok := ValidTableTypes[tableType]; !ok {
		return 0, fmt.Errorf("view %s: unknown table type %q", key, tableType)
	}
	return g.add(node{kind: KindView, key: key, tableType: tableType})
}

// AddMaterializedView adds a materialized view with the given dependencies.
// Dependencies may also be set later with SetDependencies, which is how
// definitions that reference each other out of order are loaded.
func (g *Graph) AddMaterializedView(key Key, deps ...Handle) (Handle, error) {
	h, err := g.add(node{kind: KindMaterializedView, key: key})
	if err != nil {
		return 0, err
	}
	if err := g.SetDependencies(h, deps...); err != nil {
		return 0, err
	}
	return h, nil
}

// SetDependencies replaces the dependency list of a materialized view.
// Cycles are not checked here; resolution reports them.
func (g *Graph) SetDependencies(h Handle, deps ...Handle) error {
	n, err := g.node(h)
	if err != nil {
		return err
	}
	if n.kind != KindMaterializedView {
		return fmt.Errorf("%w: %s is a %s", ErrNotMaterializedView, n.key, n.kind)
	}
	for _, d := range deps {
		if _, err := g.node(d); err != nil {
			return fmt.Errorf("dependency of %s: %w", n.key, err)
		}
	}
	g.nodes[h].deps = append([]Handle(nil), deps...)
	return nil
}

// Lookup finds the handle for a key.
func (g *Graph) Lookup(key Key) (Handle, bool) {
	h, ok := g.byKey[key.mapKey()]
	return h, ok
}

// Len returns the number of descriptions in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Kind returns the variant of h.
func (g *Graph) Kind(h Handle) Kind {
	if n, err := g.node(h); err == nil {
		return n.kind
	}
	return 0
}

// Key returns the key of h.
func (g *Graph) Key(h Handle) Key {
	if n, err := g.node(h); err == nil {
		return n.key
	}
	return Key{}
}

// TableType returns the table type of a view, or "" for other kinds.
func (g *Graph) TableType(h Handle) TableType {
	if n, err := g.node(h); err == nil {
		return n.tableType
	}
	return ""
}

func (g *Graph) add(n node) (Handle, error) {
	if _, exists := g.byKey[n.key.mapKey()]; exists {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateKey, n.key)
	}
	h := Handle(len(g.nodes))
	g.nodes = append(g.nodes, n)
	g.byKey[n.key.mapKey()] = h
	return h, nil
}

func (g *Graph) node(h Handle) (*node, error) {
	if h < 0 || int(h) >= len(g.nodes) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return &g.nodes[h], nil
}
