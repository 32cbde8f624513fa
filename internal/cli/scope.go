package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/ir"
)

// ScopeOptions are the flags that select a reconciliation scope.
type ScopeOptions struct {
	filter.Selector
}

func addScopeFlags(cmd *cobra.Command, opts *ScopeOptions) {
	cmd.Flags().StringVar(&opts.ObjectType, "type", string(ir.ObjectTypeEntity), "object type (ENTITY|SUBMISSION)")
	cmd.Flags().StringSliceVar(&opts.SubTypes, "sub-types", nil, "object sub-types in scope (required)")
	cmd.Flags().Int64SliceVar(&opts.IDs, "ids", nil, "object ids")
	cmd.Flags().Int64SliceVar(&opts.Containers, "containers", nil, "container (parent) ids")
	cmd.Flags().StringSliceVar(&opts.Versions, "versions", nil, "object versions as id.version")
	_ = cmd.MarkFlagRequired("sub-types")
	cmd.MarkFlagsMutuallyExclusive("ids", "containers", "versions")
	cmd.MarkFlagsOneRequired("ids", "containers", "versions")
}

// Filter builds the filter the flags describe. Hierarchical filters use
// splitThreshold.
func (o *ScopeOptions) Filter(splitThreshold int) (filter.Filter, error) {
	return o.Build(splitThreshold)
}
