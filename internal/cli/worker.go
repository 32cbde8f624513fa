package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/replicon/internal/engine"
)

// NewWorkerCommand creates the worker command.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Consume reconciliation queues until interrupted",
		Long: `Start a worker pool that consumes the reconcile-request,
replication-apply and drift-check topics.

Each topic gets worker.concurrency consumers. Recoverable failures are
redelivered up to worker.max_attempts times; other failures are logged and
dropped. Stops on SIGINT or SIGTERM.

Example:
  replicon worker --config /etc/replicon.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(rootOpts, cmd)
		},
	}

	return cmd
}

func runWorker(opts *RootOptions, cmd *cobra.Command) error {
	rt, err := openRuntime(opts)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(); closeErr != nil {
			rt.logger.Error("error closing runtime", zap.Error(closeErr))
		}
	}()

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			rt.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	w := engine.NewWorker(rt.svc, rt.consumerFactory(),
		engine.WithConcurrency(rt.cfg.Worker.Concurrency),
		engine.WithMaxAttempts(rt.cfg.Worker.MaxAttempts),
		engine.WithWorkerLogger(rt.logger.Named("worker")),
		engine.WithWorkerMetrics(rt.metrics),
	)

	rt.logger.Info("worker starting",
		zap.String("queue", rt.cfg.Queue.Backend),
		zap.Int("concurrency", rt.cfg.Worker.Concurrency))
	fmt.Fprintln(cmd.OutOrStdout(), "Worker started. Press Ctrl-C to stop.")

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "worker error", err)
	}

	rt.logger.Info("worker stopped gracefully")
	return nil
}
