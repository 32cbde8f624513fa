package index

import (
	"fmt"
	"slices"
	"strings"
)

// postOrder returns every description reachable from root, dependencies
// before dependents, each exactly once.
func (g *Graph) postOrder(root Handle) ([]Handle, error) {
	if _, err := g.node(root); err != nil {
		return nil, err
	}
	return g.walk(root, make(map[Handle]int))
}

const (
	white = iota
	gray
	black
)

// walk is an iterative DFS from root. Nodes already black in color are
// skipped, which lets Validate share one color map across roots.
func (g *Graph) walk(root Handle, color map[Handle]int) ([]Handle, error) {
	if color[root] == black {
		return nil, nil
	}

	type frame struct {
		h    Handle
		next int
	}
	stack := []frame{{h: root}}
	color[root] = gray

	var order []Handle
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		deps := g.nodes[top.h].deps
		if top.next < len(deps) {
			d := deps[top.next]
			top.next++
			switch color[d] {
			case white:
				color[d] = gray
				stack = append(stack, frame{h: d})
			case gray:
				path := make([]Handle, 0, len(stack)+1)
				for _, f := range stack {
					path = append(path, f.h)
				}
				return nil, g.cycleError(path, d)
			}
			continue
		}
		color[top.h] = black
		order = append(order, top.h)
		stack = stack[:len(stack)-1]
	}
	return order, nil
}

// cycleError renders the cycle portion of a DFS path that re-entered d.
func (g *Graph) cycleError(path []Handle, d Handle) error {
	start := slices.Index(path, d)
	cycle := append(slices.Clone(path[start:]), d)
	names := make([]string, len(cycle))
	for i, h := range cycle {
		names[i] = g.nodes[h].key.String()
	}
	return fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, " → "))
}

// Validate checks every description in the graph for dependency cycles.
func (g *Graph) Validate() error {
	color := make(map[Handle]int, len(g.nodes))
	for h := range g.nodes {
		if g.nodes[h].kind != KindMaterializedView {
			continue
		}
		if _, err := g.walk(Handle(h), color); err != nil {
			return err
		}
	}
	return nil
}

// directDeps returns the distinct direct dependencies of h sorted by key.
func (g *Graph) directDeps(h Handle) []Handle {
	deps := slices.Clone(g.nodes[h].deps)
	g.sortByKey(deps)
	return slices.CompactFunc(deps, func(a, b Handle) bool {
		return g.nodes[a].key.Equal(g.nodes[b].key)
	})
}

func (g *Graph) sortByKey(hs []Handle) {
	slices.SortFunc(hs, func(a, b Handle) int {
		return g.nodes[a].key.Compare(g.nodes[b].key)
	})
}

// Dependencies returns the Table and View leaves h transitively depends on,
// de-duplicated and sorted by (id, version). Leaves have no dependencies.
func (g *Graph) Dependencies(h Handle) ([]Handle, error) {
	order, err := g.postOrder(h)
	if err != nil {
		return nil, err
	}
	leaves := make([]Handle, 0, len(order))
	for _, n := range order {
		if n == h {
			continue
		}
		if g.nodes[n].kind != KindMaterializedView {
			leaves = append(leaves, n)
		}
	}
	g.sortByKey(leaves)
	return leaves, nil
}

// DependencyKeys is Dependencies rendered as keys.
func (g *Graph) DependencyKeys(h Handle) ([]Key, error) {
	deps, err := g.Dependencies(h)
	if err != nil {
		return nil, err
	}
	keys := make([]Key, len(deps))
	for i, d := range deps {
		keys[i] = g.nodes[d].key
	}
	return keys, nil
}

// allTables reports whether every leaf under h, or h itself when it is a
// leaf, is a plain table.
func (g *Graph) allTables(h Handle) (bool, error) {
	if g.nodes[h].kind != KindMaterializedView {
		return g.nodes[h].kind == KindTable, nil
	}
	deps, err := g.Dependencies(h)
	if err != nil {
		return false, err
	}
	for _, d := range deps {
		if g.nodes[d].kind != KindTable {
			return false, nil
		}
	}
	return true, nil
}
