package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/juju/clock/testclock"
	"go.uber.org/zap"

	"github.com/roach88/replicon/internal/engine"
	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/queue"
	"github.com/roach88/replicon/internal/store"
)

// Epoch is the test clock's starting time for every run.
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Harness holds the stores and engine of one scenario run.
type Harness struct {
	truth          *store.Store
	replica        *store.Store
	broker         *queue.MemoryBroker
	clock          *testclock.Clock
	svc            *engine.Service
	splitThreshold int
	logger         *zap.Logger
}

// Option configures a run.
type Option func(*runOptions)

type runOptions struct {
	logger *zap.Logger
}

// WithLogger sets the engine logger. Runs are silent by default.
func WithLogger(l *zap.Logger) Option {
	return func(o *runOptions) { o.logger = l }
}

// Run executes a scenario in fresh stores and returns the result. The
// returned error reports harness failures (stores that cannot be opened
// or seeded); scenario failures are reported in Result.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := runOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	dir, err := os.MkdirTemp("", "replicon-scenario-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	h, err := newHarness(dir, scenario, o.logger)
	if err != nil {
		return nil, err
	}
	defer h.close()

	if err := h.seed(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to seed stores: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		ev, err := h.execute(ctx, step)
		if err != nil {
			ev.Error = err.Error()
		}
		result.AddTrace(ev)
		if msg := checkExpect(step.Expect, ev, err); msg != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Action, msg))
			return result, nil
		}
	}

	for _, msg := range h.evaluate(ctx, result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(dir string, scenario *Scenario, logger *zap.Logger) (*Harness, error) {
	truth, err := store.Open(filepath.Join(dir, "truth.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to open truth store: %w", err)
	}
	replica, err := store.Open(filepath.Join(dir, "replica.db"))
	if err != nil {
		truth.Close()
		return nil, fmt.Errorf("failed to open replica store: %w", err)
	}

	h := &Harness{
		truth:          truth,
		replica:        replica,
		broker:         queue.NewMemoryBroker(),
		clock:          testclock.NewClock(Epoch),
		splitThreshold: filter.DefaultSplitThreshold,
		logger:         logger,
	}
	if scenario.SplitThreshold > 0 {
		h.splitThreshold = scenario.SplitThreshold
	}

	var salt atomic.Uint64
	opts := []engine.CoordinatorOption{
		engine.WithClock(h.clock),
		engine.WithSaltSource(func() uint64 { return salt.Add(1) }),
		engine.WithLogger(logger),
	}
	if scenario.LeaseWindow > 0 {
		opts = append(opts, engine.WithLeaseWindow(scenario.LeaseWindow))
	}
	if scenario.PageSize > 0 {
		opts = append(opts, engine.WithPageSize(scenario.PageSize))
	}
	h.svc = engine.NewService(truth.Truth(), replica.Replica(), replica.Leases(), h.broker, opts...)
	return h, nil
}

func (h *Harness) close() {
	h.broker.Close()
	h.replica.Close()
	h.truth.Close()
}

func (h *Harness) seed(ctx context.Context, scenario *Scenario) error {
	for _, r := range scenario.Truth {
		if err := h.truth.Truth().Put(ctx, r.ObjectRow()); err != nil {
			return err
		}
	}
	if len(scenario.Replica) == 0 {
		return nil
	}
	return h.replica.Replica().Apply(ctx, func(tx *store.ReplicaTx) error {
		for _, r := range scenario.Replica {
			if err := tx.Upsert(r.ObjectRow()); err != nil {
				return err
			}
		}
		return nil
	})
}

// execute runs one step and describes its outcome.
func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, error) {
	ev := TraceEvent{Action: step.Action}

	switch step.Action {
	case ActionReconcile:
		f, err := step.Scope.Build(h.splitThreshold)
		if err != nil {
			return ev, err
		}
		ev.Scope = filter.Describe(f)
		result, err := h.svc.Reconcile(ctx, f)
		ev.Skipped = result.Skipped
		ev.SubScopes = result.SubScopes
		if err != nil {
			return ev, err
		}
		return h.drain(ctx, ev)

	case ActionCheck:
		f, err := step.Scope.Build(h.splitThreshold)
		if err != nil {
			return ev, err
		}
		ev.Scope = filter.Describe(f)
		inSync, err := h.svc.IsSynchronized(ctx, f)
		if err != nil {
			return ev, err
		}
		ev.InSync = &inSync
		return ev, nil

	case ActionReplicate:
		if err := h.svc.Replicate(ctx, step.Events); err != nil {
			return ev, err
		}
		ev.Applied = len(step.Events)
		return ev, nil

	case ActionDrift:
		f, err := step.Scope.Build(h.splitThreshold)
		if err != nil {
			return ev, err
		}
		ev.Scope = filter.Describe(f)
		check := queue.DriftCheck{
			ObjectType:   f.ReplicationType(),
			SubTypes:     f.SubTypes(),
			ContainerIDs: step.Scope.Containers,
		}
		result, err := h.svc.CheckDrift(ctx, check)
		ev.Drifted = result.Drifted
		if err != nil {
			return ev, err
		}
		return h.drain(ctx, ev)

	case ActionTruth:
		for _, r := range step.Put {
			if err := h.truth.Truth().Put(ctx, r.ObjectRow()); err != nil {
				return ev, err
			}
		}
		for _, id := range step.Delete {
			if err := h.truth.Truth().Delete(ctx, step.deleteType(), id); err != nil {
				return ev, err
			}
		}
		return ev, nil

	case ActionAdvance:
		h.clock.Advance(step.Duration)
		return ev, nil

	default:
		return ev, fmt.Errorf("unknown action %q", step.Action)
	}
}

// drain handles queued messages and records the change events they carry.
func (h *Harness) drain(ctx context.Context, ev TraceEvent) (TraceEvent, error) {
	var decodeErr error
	n, err := h.svc.Drain(ctx, h.broker, func(m queue.Message) {
		if m.Topic != queue.TopicReplicationApply {
			return
		}
		var batch queue.ApplyBatch
		if err := m.Decode(&batch); err != nil {
			decodeErr = err
			return
		}
		ev.Events = append(ev.Events, batch.Events...)
	})
	ev.Handled = n
	return ev, errors.Join(err, decodeErr)
}

// checkExpect returns a failure message, or "" when the outcome matches.
func checkExpect(want *Expect, ev TraceEvent, err error) string {
	if want == nil {
		if err != nil {
			return fmt.Sprintf("unexpected error: %v", err)
		}
		return ""
	}
	if want.Error != "" {
		if err == nil {
			return fmt.Sprintf("expected error containing %q, got none", want.Error)
		}
		if !strings.Contains(err.Error(), want.Error) {
			return fmt.Sprintf("expected error containing %q, got %v", want.Error, err)
		}
		return ""
	}
	if err != nil {
		return fmt.Sprintf("unexpected error: %v", err)
	}

	var problems []string
	if want.Skipped != nil && *want.Skipped != ev.Skipped {
		problems = append(problems, fmt.Sprintf("skipped: expected %v, got %v", *want.Skipped, ev.Skipped))
	}
	if want.Events != nil && *want.Events != len(ev.Events) {
		problems = append(problems, fmt.Sprintf("events: expected %d, got %d", *want.Events, len(ev.Events)))
	}
	if want.SubScopes != nil && *want.SubScopes != ev.SubScopes {
		problems = append(problems, fmt.Sprintf("sub_scopes: expected %d, got %d", *want.SubScopes, ev.SubScopes))
	}
	if want.InSync != nil && (ev.InSync == nil || *want.InSync != *ev.InSync) {
		problems = append(problems, fmt.Sprintf("in_sync: expected %v", *want.InSync))
	}
	if want.Drifted != nil && !slices.Equal(want.Drifted, ev.Drifted) {
		problems = append(problems, fmt.Sprintf("drifted: expected %v, got %v", want.Drifted, ev.Drifted))
	}
	return strings.Join(problems, "; ")
}
