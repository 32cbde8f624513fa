package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/replicon/internal/engine"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Scope   ScopeOptions
	NoDrain bool
}

// ReconcileReport is the reconcile command's output.
type ReconcileReport struct {
	engine.PassResult
	Handled int `json:"handled"`
}

func (r ReconcileReport) String() string {
	if r.Skipped {
		return fmt.Sprintf("%s: lease held, skipped", r.Scope)
	}
	s := fmt.Sprintf("%s: %s, %d event(s) in %d page(s)", r.Scope, r.State, r.Events, r.Pages)
	if r.SubScopes > 0 {
		s = fmt.Sprintf("%s: %s, decomposed into %d sub-scope(s)", r.Scope, r.State, r.SubScopes)
	}
	if r.Handled > 0 {
		s += fmt.Sprintf(", %d queued message(s) handled", r.Handled)
	}
	return s
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one reconciliation pass over a scope",
		Long: `Run one reconciliation pass over a scope.

The pass is skipped while the scope's lease is held. Otherwise the scope is
either decomposed into per-container sub-scopes or compared row by row, and
the resulting change events are published.

With the in-memory queue the published messages are handled before the
command exits, unless --no-drain is given.

Example:
  replicon reconcile --sub-types file --containers 1,2,3
  replicon reconcile --sub-types file --ids 10,11,12 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, cmd)
		},
	}

	addScopeFlags(cmd, &opts.Scope)
	cmd.Flags().BoolVar(&opts.NoDrain, "no-drain", false, "leave published messages on the in-memory queue")

	return cmd
}

func runReconcile(opts *ReconcileOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	rt, err := openRuntime(opts.RootOptions)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	defer rt.Close()

	f, err := opts.Scope.Filter(rt.cfg.Reconcile.SplitThreshold)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidScope, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid scope", err)
	}

	ctx := cmd.Context()
	result, err := rt.svc.Reconcile(ctx, f)
	if err != nil {
		_ = formatter.Error(replicationErrorCode(err), err.Error(), result)
		return WrapExitError(ExitFailure, "reconciliation failed", err)
	}

	report := ReconcileReport{PassResult: result}
	if !opts.NoDrain {
		if report.Handled, err = rt.drain(ctx); err != nil {
			_ = formatter.Error(replicationErrorCode(err), err.Error(), report)
			return WrapExitError(ExitFailure, "handling queued messages failed", err)
		}
	}
	return formatter.Success(report)
}
