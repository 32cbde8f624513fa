package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue/token"

	"github.com/roach88/replicon/internal/index"
)

// Validation error codes (E100-E199)
const (
	ErrUnknownKind        = "E100" // kind is not table, view or materialized_view
	ErrInvalidID          = "E101" // id must be positive
	ErrInvalidVersion     = "E102" // version must not be negative
	ErrInvalidTableType   = "E103" // views need a known table_type
	ErrDuplicateName      = "E104" // two definitions with one name
	ErrDuplicateKey       = "E105" // two definitions with one (id, version)
	ErrUnknownDependency  = "E106" // depends_on names an undefined index
	ErrNoDependencies     = "E107" // materialized view without dependencies
	ErrMisplacedAttribute = "E108" // table_type or depends_on on the wrong kind
)

// ValidationError represents a definition validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is every problem found in one set of definitions.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks definitions against the schema rules.
// Returns all errors found (does not fail-fast). Cycles are not checked
// here; BuildGraph reports them.
func Validate(defs []IndexDefinition) ValidationErrors {
	var errs ValidationErrors
	names := make(map[string]bool, len(defs))
	keys := make(map[string]string, len(defs))

	for _, d := range defs {
		field := func(name string) string { return d.Name + "." + name }
		line := lineOf(d.Pos)

		if names[d.Name] {
			errs = append(errs, ValidationError{Field: d.Name, Message: "duplicate definition name", Code: ErrDuplicateName, Line: line})
		}
		names[d.Name] = true

		if d.ID <= 0 {
			errs = append(errs, ValidationError{Field: field("id"), Message: fmt.Sprintf("id must be positive, got %d", d.ID), Code: ErrInvalidID, Line: line})
		}
		if d.Version != nil && *d.Version < 0 {
			errs = append(errs, ValidationError{Field: field("version"), Message: fmt.Sprintf("version must not be negative, got %d", *d.Version), Code: ErrInvalidVersion, Line: line})
		}

		key := d.Key().String()
		if other, ok := keys[key]; ok {
			errs = append(errs, ValidationError{Field: d.Name, Message: fmt.Sprintf("key %s already used by %q", key, other), Code: ErrDuplicateKey, Line: line})
		} else {
			keys[key] = d.Name
		}

		switch d.Kind {
		case KindTable, KindView, KindMaterializedView:
		default:
			errs = append(errs, ValidationError{Field: field("kind"), Message: fmt.Sprintf("unknown kind %q", d.Kind), Code: ErrUnknownKind, Line: line})
		}

		if d.Kind == KindView {
			if _, ok := index.ValidTableTypes[index.TableType(d.TableType)]; !ok {
				errs = append(errs, ValidationError{Field: field("table_type"), Message: fmt.Sprintf("unknown table type %q", d.TableType), Code: ErrInvalidTableType, Line: line})
			}
		} else if d.TableType != "" {
			errs = append(errs, ValidationError{Field: field("table_type"), Message: "only views have a table type", Code: ErrMisplacedAttribute, Line: line})
		}

		if d.Kind == KindMaterializedView {
			if len(d.DependsOn) == 0 {
				errs = append(errs, ValidationError{Field: field("depends_on"), Message: "materialized view needs at least one dependency", Code: ErrNoDependencies, Line: line})
			}
		} else if len(d.DependsOn) > 0 {
			errs = append(errs, ValidationError{Field: field("depends_on"), Message: "only materialized views have dependencies", Code: ErrMisplacedAttribute, Line: line})
		}
	}

	for _, d := range defs {
		for i, dep := range d.DependsOn {
			if !names[dep] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("%s.depends_on[%d]", d.Name, i),
					Message: fmt.Sprintf("unknown dependency %q", dep),
					Code:    ErrUnknownDependency,
					Line:    lineOf(d.Pos),
				})
			}
		}
	}
	return errs
}

func lineOf(pos token.Pos) int {
	if !pos.IsValid() {
		return 0
	}
	return pos.Line()
}
