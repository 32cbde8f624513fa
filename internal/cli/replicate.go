package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/replicon/internal/ir"
)

// EventFile is the YAML document read by the replicate command.
type EventFile struct {
	Events []ir.ChangeEvent `yaml:"events"`
}

// ReplicateResult is the replicate command's output.
type ReplicateResult struct {
	Applied int `json:"applied"`
}

func (r ReplicateResult) String() string {
	return fmt.Sprintf("applied %d change event(s)", r.Applied)
}

// LoadEventFile reads change events from path.
func LoadEventFile(path string) ([]ir.ChangeEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file EventFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Events, nil
}

// NewReplicateCommand creates the replicate command.
func NewReplicateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replicate <events-file>",
		Short: "Apply change events to the replica",
		Long: `Apply change events directly to the replica, bypassing the queue.

The events file is YAML:

  events:
    - object_id: 11
      object_type: ENTITY
      change_type: CREATE_OR_UPDATE
    - object_id: 12
      object_type: ENTITY
      change_type: DELETE

Every event is validated before anything is applied.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplicate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runReplicate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	events, err := LoadEventFile(path)
	if err != nil {
		_ = formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	rt, err := openRuntime(opts)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return err
	}
	defer rt.Close()

	formatter.VerboseLog("Applying %d event(s) from %s", len(events), path)
	if err := rt.svc.Replicate(cmd.Context(), events); err != nil {
		_ = formatter.Error(replicationErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "replication failed", err)
	}
	return formatter.Success(ReplicateResult{Applied: len(events)})
}
