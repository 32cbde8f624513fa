package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"go.uber.org/zap"

	"github.com/roach88/replicon/internal/checksum"
	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/lease"
	"github.com/roach88/replicon/internal/queue"
	"github.com/roach88/replicon/internal/reconcile"
)

// DriftResult summarises one drift check.
type DriftResult struct {
	Checked int `json:"checked"`
	// Skipped counts containers whose lease was still held.
	Skipped int     `json:"skipped"`
	InSync  []int64 `json:"in_sync"`
	Drifted []int64 `json:"drifted"`
}

// DriftDetector compares per-container summary checksums and only runs a
// full reconciliation pass for containers whose summaries differ.
type DriftDetector struct {
	truth       StreamSource
	replica     StreamSource
	leases      lease.Store
	coordinator *Coordinator

	clock   clock.Clock
	window  time.Duration
	logger  *zap.Logger
	metrics *Metrics
	salt    func() uint64
}

// NewDriftDetector creates a DriftDetector that shares the coordinator's
// lease store, clock, lease window and salt source.
func NewDriftDetector(coordinator *Coordinator) *DriftDetector {
	return &DriftDetector{
		truth:       coordinator.truth,
		replica:     coordinator.replica,
		leases:      coordinator.leases,
		coordinator: coordinator,
		clock:       coordinator.clock,
		window:      coordinator.window,
		logger:      coordinator.logger.Named("drift"),
		metrics:     coordinator.metrics,
		salt:        coordinator.salt,
	}
}

// Check examines a batch of containers. Containers with a held lease are
// skipped. Containers whose summaries match get their lease renewed;
// drifted ones are reconciled through the coordinator.
func (d *DriftDetector) Check(ctx context.Context, check queue.DriftCheck) (DriftResult, error) {
	var result DriftResult
	scope, err := filter.NewHierarchical(check.ObjectType, check.SubTypes, check.ContainerIDs)
	if err != nil {
		return result, Classify(err, "build drift scope", "")
	}

	observed := make(map[int64]lease.Observed)
	var candidates []int64
	for _, id := range scope.ContainerIDs() {
		key := scope.Container(id).ScopeKey()
		o, err := lease.Check(ctx, d.leases, d.clock, key)
		if err != nil {
			return result, Classify(err, "read lease", key)
		}
		if o.Held {
			result.Skipped++
			continue
		}
		observed[id] = o
		candidates = append(candidates, id)
	}
	d.metrics.DriftContainers.WithLabelValues("skipped").Add(float64(result.Skipped))
	if len(candidates) == 0 {
		return result, nil
	}

	// Hold every container in one filter so the summaries come from a
	// single pair of streams.
	batch, err := filter.NewHierarchical(check.ObjectType, check.SubTypes, candidates)
	if err != nil {
		return result, Classify(err, "build drift scope", "")
	}
	drifted, err := d.summaryDiff(ctx, batch)
	if err != nil {
		return result, Classify(err, "compare container summaries", batch.ScopeKey())
	}
	result.Checked = len(candidates)

	for _, id := range candidates {
		sub := batch.Container(id)
		if drifted[id] {
			result.Drifted = append(result.Drifted, id)
			if _, err := d.coordinator.Reconcile(ctx, sub); err != nil {
				return result, err
			}
			continue
		}
		result.InSync = append(result.InSync, id)
		if _, err := lease.Renew(ctx, d.leases, d.clock, sub.ScopeKey(), observed[id], d.window); err != nil {
			return result, Classify(err, "renew lease", sub.ScopeKey())
		}
	}

	d.metrics.DriftContainers.WithLabelValues("in_sync").Add(float64(len(result.InSync)))
	d.metrics.DriftContainers.WithLabelValues("drifted").Add(float64(len(result.Drifted)))
	d.logger.Info("drift check",
		zap.String("object_type", string(check.ObjectType)),
		zap.Int("checked", result.Checked),
		zap.Int("skipped", result.Skipped),
		zap.Int64s("drifted", result.Drifted))
	return result, nil
}

// summaryDiff returns the containers whose summary checksums differ. Both
// streams are closed before it returns, so the caller may open new ones.
func (d *DriftDetector) summaryDiff(ctx context.Context, batch filter.Hierarchical) (map[int64]bool, error) {
	salt := d.salt()
	truth, err := d.truth.Stream(ctx, salt, batch, checksum.ModeContainers)
	if err != nil {
		return nil, fmt.Errorf("open truth summaries: %w", err)
	}
	replica, err := d.replica.Stream(ctx, salt, batch, checksum.ModeContainers)
	if err != nil {
		truth.Close()
		return nil, fmt.Errorf("open replica summaries: %w", err)
	}
	it := reconcile.NewIterator(batch.ReplicationType(), truth, replica)
	defer it.Close()

	// One event per drifted container at most, so the batch bounds the slice.
	events, err := reconcile.Collect(it)
	if err != nil {
		return nil, err
	}
	drifted := make(map[int64]bool, len(events))
	for _, ev := range events {
		drifted[ev.ObjectID] = true
	}
	return drifted, nil
}
