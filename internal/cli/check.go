package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// CheckResult is the check command's output.
type CheckResult struct {
	Scope        string `json:"scope"`
	Synchronized bool   `json:"synchronized"`
}

func (r CheckResult) String() string {
	if r.Synchronized {
		return fmt.Sprintf("%s: in sync", r.Scope)
	}
	return fmt.Sprintf("%s: drifted", r.Scope)
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	scope := &ScopeOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether a scope is synchronized",
		Long: `Compare truth and replica over a scope without publishing anything or
touching leases. Exits with status 1 when the scope has drifted.

Example:
  replicon check --sub-types file --ids 10,11,12`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, scope, cmd)
		},
	}

	addScopeFlags(cmd, scope)

	return cmd
}

func runCheck(opts *RootOptions, scope *ScopeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	rt, err := openRuntime(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	defer rt.Close()

	f, err := scope.Filter(rt.cfg.Reconcile.SplitThreshold)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidScope, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid scope", err)
	}

	inSync, err := rt.svc.IsSynchronized(cmd.Context(), f)
	if err != nil {
		_ = formatter.Error(replicationErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "check failed", err)
	}

	result := CheckResult{Scope: f.ScopeKey(), Synchronized: inSync}
	if err := formatter.Success(result); err != nil {
		return err
	}
	if !inSync {
		return NewExitError(ExitFailure, "scope drifted")
	}
	return nil
}
