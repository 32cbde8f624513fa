package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/replicon/internal/index"
)

// Definition kinds as written in CUE.
const (
	KindTable            = "table"
	KindView             = "view"
	KindMaterializedView = "materialized_view"
)

// IndexDefinition is one named entry of the `index` struct.
type IndexDefinition struct {
	Name      string
	Kind      string
	ID        int64
	Version   *int64
	TableType string
	DependsOn []string
	Pos       token.Pos
}

// Key returns the index key the definition declares.
func (d IndexDefinition) Key() index.Key {
	if d.Version != nil {
		return index.NewVersionedKey(d.ID, *d.Version)
	}
	return index.NewKey(d.ID)
}

// CompileIndexDefinition parses one CUE value into an IndexDefinition.
// The definition's name is the last selector of the value's path:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`index: files: { kind: "table", id: 2 }`)
//	def, err := CompileIndexDefinition(v.LookupPath(cue.ParsePath("index.files")))
func CompileIndexDefinition(v cue.Value) (*IndexDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := &IndexDefinition{Pos: v.Pos()}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		def.Name = labels[len(labels)-1].String()
	}

	kind, err := requiredString(v, "kind")
	if err != nil {
		return nil, err
	}
	def.Kind = kind

	idVal := v.LookupPath(cue.ParsePath("id"))
	if !idVal.Exists() {
		return nil, &CompileError{Field: "id", Message: "id is required", Pos: v.Pos()}
	}
	if def.ID, err = idVal.Int64(); err != nil {
		return nil, formatCUEError(err)
	}

	if verVal := v.LookupPath(cue.ParsePath("version")); verVal.Exists() {
		ver, err := verVal.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		def.Version = &ver
	}

	if ttVal := v.LookupPath(cue.ParsePath("table_type")); ttVal.Exists() {
		if def.TableType, err = ttVal.String(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	if depsVal := v.LookupPath(cue.ParsePath("depends_on")); depsVal.Exists() {
		iter, err := depsVal.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			dep, err := iter.Value().String()
			if err != nil {
				return nil, formatCUEError(err)
			}
			def.DependsOn = append(def.DependsOn, dep)
		}
	}

	return def, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileIndexes parses every field of an `index` struct, in declaration
// order.
func CompileIndexes(v cue.Value) ([]IndexDefinition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var defs []IndexDefinition
	for iter.Next() {
		def, err := CompileIndexDefinition(iter.Value())
		if err != nil {
			return nil, err
		}
		defs = append(defs, *def)
	}
	return defs, nil
}

// IndexSet is a validated dependency graph plus the names it was declared
// with.
type IndexSet struct {
	Graph *index.Graph
	// Names lists definitions in declaration order.
	Names   []string
	handles map[string]index.Handle
}

// Handle returns the graph handle of a named definition.
func (s *IndexSet) Handle(name string) (index.Handle, bool) {
	h, ok := s.handles[name]
	return h, ok
}

// BuildGraph validates definitions and loads them into an index.Graph.
// Dependencies may reference definitions declared later. Cycles among
// materialized views are reported as errors wrapping index.ErrCycle.
func BuildGraph(defs []IndexDefinition) (*IndexSet, error) {
	if errs := Validate(defs); len(errs) > 0 {
		return nil, errs
	}

	set := &IndexSet{Graph: index.NewGraph(), handles: make(map[string]index.Handle, len(defs))}
	for _, d := range defs {
		var (
			h   index.Handle
			err error
		)
		switch d.Kind {
		case KindTable:
			h, err = set.Graph.AddTable(d.Key())
		case KindView:
			h, err = set.Graph.AddView(d.Key(), index.TableType(d.TableType))
		case KindMaterializedView:
			h, err = set.Graph.AddMaterializedView(d.Key())
		}
		if err != nil {
			return nil, &CompileError{Field: d.Name, Message: err.Error(), Pos: d.Pos}
		}
		set.handles[d.Name] = h
		set.Names = append(set.Names, d.Name)
	}

	for _, d := range defs {
		if d.Kind != KindMaterializedView {
			continue
		}
		deps := make([]index.Handle, len(d.DependsOn))
		for i, name := range d.DependsOn {
			deps[i] = set.handles[name]
		}
		if err := set.Graph.SetDependencies(set.handles[d.Name], deps...); err != nil {
			return nil, fmt.Errorf("%s: %w", d.Name, err)
		}
	}

	if err := set.Graph.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// CompileError is a definition error with its CUE position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
