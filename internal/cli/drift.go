package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/replicon/internal/engine"
	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/queue"
)

// DriftOptions holds flags for the drift command.
type DriftOptions struct {
	*RootOptions
	ObjectType string
	SubTypes   []string
	Containers []int64
	Parent     int64
	Publish    bool
}

// DriftReport is the drift command's output.
type DriftReport struct {
	engine.DriftResult
	Published bool `json:"published"`
	Handled   int  `json:"handled"`
}

func (r DriftReport) String() string {
	if r.Published {
		return "drift check published"
	}
	return fmt.Sprintf("checked %d container(s), skipped %d: in sync %v, drifted %v",
		r.Checked, r.Skipped, r.InSync, r.Drifted)
}

// NewDriftCommand creates the drift command.
func NewDriftCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DriftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Compare container summaries and reconcile drifted containers",
		Long: `Compare per-container summary checksums between truth and replica.

Containers whose summaries match have their lease renewed. Drifted containers
get a full reconciliation pass. With --publish the check is queued for a
worker instead of being run here. With --parent the containers are the
available children of that object in the truth store.

Examples:
  replicon drift --sub-types file,folder --containers 1,2,3
  replicon drift --sub-types file --parent 100`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrift(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ObjectType, "type", string(ir.ObjectTypeEntity), "object type (ENTITY|SUBMISSION)")
	cmd.Flags().StringSliceVar(&opts.SubTypes, "sub-types", nil, "object sub-types in scope (required)")
	cmd.Flags().Int64SliceVar(&opts.Containers, "containers", nil, "container ids to check (required)")
	cmd.Flags().Int64Var(&opts.Parent, "parent", 0, "check every container under this truth object")
	cmd.Flags().BoolVar(&opts.Publish, "publish", false, "publish a drift-check message instead of running it")
	_ = cmd.MarkFlagRequired("sub-types")
	cmd.MarkFlagsOneRequired("containers", "parent")
	cmd.MarkFlagsMutuallyExclusive("containers", "parent")

	return cmd
}

func runDrift(opts *DriftOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	rt, err := openRuntime(opts.RootOptions)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	defer rt.Close()

	check := queue.DriftCheck{
		ObjectType:   ir.ObjectType(strings.ToUpper(opts.ObjectType)),
		ContainerIDs: opts.Containers,
	}
	ctx := cmd.Context()
	if cmd.Flags().Changed("parent") {
		check.ContainerIDs, err = rt.truth.Truth().Children(ctx, check.ObjectType, opts.Parent)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
			return WrapExitError(ExitFailure, "listing containers failed", err)
		}
		formatter.VerboseLog("parent %d has %d container(s)", opts.Parent, len(check.ContainerIDs))
		if len(check.ContainerIDs) == 0 {
			return formatter.Success(DriftReport{})
		}
	}
	for _, s := range opts.SubTypes {
		check.SubTypes = append(check.SubTypes, ir.SubType(s))
	}

	if opts.Publish {
		if rt.kafka == nil {
			err := fmt.Errorf("--publish needs the kafka queue backend")
			_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "cannot publish", err)
		}
		m, err := queue.NewDriftCheck(check)
		if err == nil {
			err = rt.kafka.Publish(ctx, m)
		}
		if err != nil {
			_ = formatter.Error(ErrCodeTransient, err.Error(), nil)
			return WrapExitError(ExitFailure, "publish failed", err)
		}
		return formatter.Success(DriftReport{Published: true})
	}

	result, err := rt.svc.CheckDrift(ctx, check)
	if err != nil {
		_ = formatter.Error(replicationErrorCode(err), err.Error(), result)
		return WrapExitError(ExitFailure, "drift check failed", err)
	}
	report := DriftReport{DriftResult: result}
	if report.Handled, err = rt.drain(ctx); err != nil {
		_ = formatter.Error(replicationErrorCode(err), err.Error(), report)
		return WrapExitError(ExitFailure, "handling queued messages failed", err)
	}
	return formatter.Success(report)
}
