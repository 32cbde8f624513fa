package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/replicon/internal/compiler"
)

// SchemaOptions holds flags for the schema command.
type SchemaOptions struct {
	*RootOptions
	Names []string
	Apply bool
}

// SchemaEntry is the DDL of one index definition.
type SchemaEntry struct {
	Name string `json:"name"`
	Key  string `json:"key"`
	SQL  string `json:"sql"`
}

// SchemaResult is the schema command's output.
type SchemaResult struct {
	Entries []SchemaEntry `json:"entries"`
	Applied bool          `json:"applied"`
}

func (r SchemaResult) String() string {
	parts := make([]string, len(r.Entries))
	for i, e := range r.Entries {
		parts[i] = fmt.Sprintf("-- %s (%s)\n%s", e.Name, e.Key, e.SQL)
	}
	return strings.Join(parts, "\n\n")
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema <index-dir>",
		Short: "Generate replica index DDL from CUE index definitions",
		Long: `Load the index definitions in a CUE package, resolve materialized view
dependencies and print the CREATE TABLE / CREATE INDEX statements each
definition needs in the replica. With --apply the statements are executed
against the replica store.

Example:
  replicon schema ./indexes
  replicon schema ./indexes --name nested --apply`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Names, "name", nil, "only these definitions (default all)")
	cmd.Flags().BoolVar(&opts.Apply, "apply", false, "execute the DDL against the replica store")

	return cmd
}

func runSchema(opts *SchemaOptions, dir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	set, err := LoadIndexes(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		}
		return WrapExitError(ExitCommandError, "failed to load index definitions", err)
	}
	formatter.VerboseLog("Loaded %d index definition(s) from %s", len(set.Names), dir)

	entries, err := schemaEntries(set, opts.Names)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidIndex, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to generate DDL", err)
	}

	result := SchemaResult{Entries: entries}
	if opts.Apply {
		rt, err := openRuntime(opts.RootOptions)
		if err != nil {
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return err
		}
		defer rt.Close()
		for _, e := range entries {
			if err := rt.replica.Replica().EnsureIndex(cmd.Context(), e.SQL); err != nil {
				_ = formatter.Error(ErrCodeGeneric, err.Error(), e.Name)
				return WrapExitError(ExitFailure, "failed to apply DDL", err)
			}
		}
		result.Applied = true
	}
	return formatter.Success(result)
}

func schemaEntries(set *compiler.IndexSet, names []string) ([]SchemaEntry, error) {
	if len(names) == 0 {
		names = set.Names
	}
	entries := make([]SchemaEntry, 0, len(names))
	for _, name := range names {
		h, ok := set.Handle(name)
		if !ok {
			return nil, fmt.Errorf("unknown index definition %q", name)
		}
		ddl, err := set.Graph.CreateOrUpdateIndexSQL(h)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		entries = append(entries, SchemaEntry{Name: name, Key: set.Graph.Key(h).String(), SQL: ddl})
	}
	return entries, nil
}
