package engine

import (
	"context"

	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/lease"
	"github.com/roach88/replicon/internal/queue"
)

// TruthStore is the authoritative side of replication.
type TruthStore interface {
	StreamSource
	TruthReader
}

// ReplicaStore is the derived side of replication.
type ReplicaStore interface {
	StreamSource
	ReplicaWriter
}

// Service is the entry point other components use.
type Service struct {
	applier     *Applier
	coordinator *Coordinator
	drift       *DriftDetector
}

// NewService wires an applier, a coordinator and a drift detector over the
// same stores. Options configure the coordinator; its logger and metrics
// are shared by the other components.
func NewService(truth TruthStore, replica ReplicaStore, leases lease.Store, publisher queue.Publisher, opts ...CoordinatorOption) *Service {
	c := NewCoordinator(truth, replica, leases, publisher, opts...)
	return &Service{
		applier:     NewApplier(truth, replica, c.logger.Named("applier"), c.metrics),
		coordinator: c,
		drift:       NewDriftDetector(c),
	}
}

// Reconcile runs one reconciliation pass over f.
func (s *Service) Reconcile(ctx context.Context, f filter.Filter) (PassResult, error) {
	return s.coordinator.Reconcile(ctx, f)
}

// IsSynchronized reports whether the replica matches truth over f.
func (s *Service) IsSynchronized(ctx context.Context, f filter.Filter) (bool, error) {
	return s.coordinator.IsSynchronized(ctx, f)
}

// Replicate applies change events to the replica.
func (s *Service) Replicate(ctx context.Context, events []ir.ChangeEvent) error {
	return s.applier.Replicate(ctx, events)
}

// CheckDrift compares container summaries and reconciles drifted containers.
func (s *Service) CheckDrift(ctx context.Context, check queue.DriftCheck) (DriftResult, error) {
	return s.drift.Check(ctx, check)
}
