package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/roach88/replicon/internal/checksum"
	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/lease"
	"github.com/roach88/replicon/internal/queue"
	"github.com/roach88/replicon/internal/reconcile"
)

// Defaults for coordinator options.
const (
	DefaultLeaseWindow = 30 * time.Minute
	DefaultPageSize    = 1000
)

// PassState is a state of the reconciliation pass state machine.
type PassState string

const (
	StateIdle          PassState = "IDLE"
	StateLeaseAcquired PassState = "LEASE_ACQUIRED"
	StateDecomposing   PassState = "DECOMPOSING"
	StateDecomposed    PassState = "DECOMPOSED"
	StateStreaming     PassState = "STREAMING"
	StateLeaseRenewed  PassState = "LEASE_RENEWED"
	StateFailed        PassState = "FAILED"
)

// StreamSource opens checksum streams over one side of the replication.
// *store.Truth and *store.Replica implement it.
type StreamSource interface {
	Stream(ctx context.Context, salt uint64, f filter.Filter, mode checksum.Mode) (checksum.Stream, error)
}

// PassResult reports how far a pass got.
type PassResult struct {
	Scope string `json:"scope"`
	// State is the last state reached before returning to IDLE.
	State PassState `json:"state"`
	// Skipped is true when an unexpired lease covered the scope.
	Skipped   bool   `json:"skipped"`
	SubScopes int    `json:"sub_scopes"`
	Events    int    `json:"events"`
	Pages     int    `json:"pages"`
	Salt      uint64 `json:"salt"`
	// Renewed is false when another process renewed the lease first.
	Renewed bool `json:"renewed"`
}

// Coordinator runs reconciliation passes.
//
// A pass reads the scope's lease and skips if it is still held. Otherwise it
// either decomposes the scope into sub-scopes, publishing one reconcile
// request per sub-scope, or merges salted truth and replica checksum streams
// and publishes the resulting change events in pages. Only a pass that
// completes renews the lease; a failed pass leaves it as it was.
type Coordinator struct {
	truth     StreamSource
	replica   StreamSource
	leases    lease.Store
	publisher queue.Publisher

	window   time.Duration
	pageSize int
	clock    clock.Clock
	logger   *zap.Logger
	metrics  *Metrics
	salt     func() uint64
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLeaseWindow sets how long a successful pass keeps its scope leased.
func WithLeaseWindow(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithPageSize sets the maximum number of change events per apply message.
func WithPageSize(n int) CoordinatorOption {
	return func(c *Coordinator) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithClock sets the clock used for lease timing.
func WithClock(clk clock.Clock) CoordinatorOption {
	return func(c *Coordinator) { c.clock = clk }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) CoordinatorOption {
	return func(c *Coordinator) { c.metrics = m }
}

// WithSaltSource overrides the per-pass salt generator.
func WithSaltSource(fn func() uint64) CoordinatorOption {
	return func(c *Coordinator) { c.salt = fn }
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(truth, replica StreamSource, leases lease.Store, publisher queue.Publisher, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		truth:     truth,
		replica:   replica,
		leases:    leases,
		publisher: publisher,
		window:    DefaultLeaseWindow,
		pageSize:  DefaultPageSize,
		clock:     clock.WallClock,
		logger:    zap.NewNop(),
		metrics:   NewMetrics(nil),
		salt:      rand.Uint64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reconcile runs one pass over f.
func (c *Coordinator) Reconcile(ctx context.Context, f filter.Filter) (PassResult, error) {
	scope := f.ScopeKey()
	result := PassResult{Scope: scope, State: StateIdle}
	log := c.logger.With(zap.String("scope", scope))

	observed, err := lease.Check(ctx, c.leases, c.clock, scope)
	if err != nil {
		return c.fail(log, result, Classify(err, "read lease", scope))
	}
	if observed.Held {
		result.Skipped = true
		c.metrics.Passes.WithLabelValues(outcomeSkipped).Inc()
		log.Debug("lease held, skipping pass")
		return result, nil
	}
	result.State = StateLeaseAcquired

	if subs, ok := f.TrySplit(); ok {
		result.State = StateDecomposing
		msgs := make([]queue.Message, 0, len(subs))
		for _, sub := range subs {
			msg, err := queue.NewReconcileRequest(sub)
			if err != nil {
				return c.fail(log, result, Classify(err, "encode sub-scope", scope))
			}
			msgs = append(msgs, msg)
		}
		if err := c.publisher.Publish(ctx, msgs...); err != nil {
			return c.fail(log, result, Classify(err, "publish sub-scopes", scope))
		}
		result.SubScopes = len(subs)
		c.metrics.Passes.WithLabelValues(outcomeDecomposed).Inc()
		log.Info("decomposed scope", zap.Int("sub_scopes", len(subs)))
		result.State = StateDecomposed
		return result, nil
	}

	result.State = StateStreaming
	if !f.IsEmpty() {
		result.Salt = c.salt()
		err := c.diff(ctx, f, result.Salt, func(page []ir.ChangeEvent) error {
			msg, err := queue.NewApplyBatch(f.ReplicationType(), page)
			if err != nil {
				return err
			}
			if err := c.publisher.Publish(ctx, msg); err != nil {
				return err
			}
			result.Pages++
			result.Events += len(page)
			c.metrics.Pages.Inc()
			for _, ev := range page {
				c.metrics.Events.WithLabelValues(string(ev.ChangeType)).Inc()
			}
			return nil
		})
		if err != nil {
			return c.fail(log, result, Classify(err, "stream scope", scope))
		}
	}
	log.Info("reconciled scope",
		zap.Int("events", result.Events),
		zap.Int("pages", result.Pages),
		zap.Uint64("salt", result.Salt))
	return c.renew(ctx, log, result, observed)
}

var errDrift = errors.New("scope drifted")

// IsSynchronized reports whether truth and replica agree over f. It neither
// publishes nor touches the lease. Decomposable scopes are checked
// container by container.
func (c *Coordinator) IsSynchronized(ctx context.Context, f filter.Filter) (bool, error) {
	scope := f.ScopeKey()
	if subs, ok := f.TrySplit(); ok {
		for _, sub := range subs {
			inSync, err := c.IsSynchronized(ctx, sub)
			if err != nil || !inSync {
				return inSync, err
			}
		}
		return true, nil
	}
	if f.IsEmpty() {
		return true, nil
	}

	err := c.diff(ctx, f, c.salt(), func([]ir.ChangeEvent) error { return errDrift })
	switch {
	case errors.Is(err, errDrift):
		return false, nil
	case err != nil:
		return false, Classify(err, "check scope", scope)
	}
	return true, nil
}

// diff merges salted truth and replica streams over f and hands the change
// events to fn in pages.
func (c *Coordinator) diff(ctx context.Context, f filter.Filter, salt uint64, fn func([]ir.ChangeEvent) error) error {
	truth, err := c.truth.Stream(ctx, salt, f, checksum.ModeObjects)
	if err != nil {
		return fmt.Errorf("open truth stream: %w", err)
	}
	replica, err := c.replica.Stream(ctx, salt, f, checksum.ModeObjects)
	if err != nil {
		truth.Close()
		return fmt.Errorf("open replica stream: %w", err)
	}
	it := reconcile.NewIterator(f.ReplicationType(), truth, replica)
	defer it.Close()

	var pin map[int64]int64
	if l, ok := f.(filter.IDAndVersionList); ok {
		pin = make(map[int64]int64)
		for _, p := range l.Pairs() {
			pin[p.ID] = p.Version
		}
	}

	_, err = reconcile.Pages(it, c.pageSize, func(page []ir.ChangeEvent) error {
		if pin != nil {
			for i := range page {
				if v, ok := pin[page[i].ObjectID]; ok {
					page[i].Version = ir.Int64(v)
				}
			}
		}
		return fn(page)
	})
	return err
}

func (c *Coordinator) renew(ctx context.Context, log *zap.Logger, result PassResult, observed lease.Observed) (PassResult, error) {
	renewed, err := lease.Renew(ctx, c.leases, c.clock, result.Scope, observed, c.window)
	if err != nil {
		return c.fail(log, result, Classify(err, "renew lease", result.Scope))
	}
	result.State = StateLeaseRenewed
	result.Renewed = renewed
	if !renewed {
		log.Debug("lease renewed concurrently")
	}
	c.metrics.Passes.WithLabelValues(outcomeRenewed).Inc()
	return result, nil
}

func (c *Coordinator) fail(log *zap.Logger, result PassResult, err error) (PassResult, error) {
	result.State = StateFailed
	c.metrics.Passes.WithLabelValues(outcomeFailed).Inc()
	log.Warn("reconciliation pass failed", zap.Error(err))
	return result, err
}
