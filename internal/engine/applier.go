package engine

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/store"
)

// TruthReader reads authoritative rows for the applier.
type TruthReader interface {
	IsAvailable(ctx context.Context, objectType ir.ObjectType, id int64) (bool, error)
	Rows(ctx context.Context, ids []ir.ObjectIdentity) ([]ir.ObjectRow, error)
}

// ReplicaWriter writes the replica inside a transaction.
type ReplicaWriter interface {
	Apply(ctx context.Context, fn func(tx *store.ReplicaTx) error) error
}

// Applier brings replica rows in line with the truth store.
//
// Apply never trusts event payloads: create/update ids are re-read from the
// truth store, so applying the same events twice, or out of order, leaves
// the replica in the same state ("last write wins" by re-read).
type Applier struct {
	truth   TruthReader
	replica ReplicaWriter
	logger  *zap.Logger
	metrics *Metrics
}

// NewApplier creates an Applier.
func NewApplier(truth TruthReader, replica ReplicaWriter, logger *zap.Logger, metrics *Metrics) *Applier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Applier{truth: truth, replica: replica, logger: logger, metrics: metrics}
}

// Apply deletes the given rows and re-replicates the create/update ids in
// one replica transaction.
//
// An unversioned identity targets the object's current row; a versioned one
// targets that pinned version, which is stored as non-current. An
// unversioned id that IsAvailable reports as missing or trashed is deleted
// without reading its row; a pinned version absent from Rows is deleted too.
func (a *Applier) Apply(ctx context.Context, objectType ir.ObjectType, createOrUpdate, deletes []ir.ObjectIdentity) error {
	if len(createOrUpdate) == 0 && len(deletes) == 0 {
		return nil
	}

	read := make([]ir.ObjectIdentity, 0, len(createOrUpdate))
	for _, id := range createOrUpdate {
		if id.Version == nil {
			ok, err := a.truth.IsAvailable(ctx, objectType, id.ID)
			if err != nil {
				return Classify(err, fmt.Sprintf("check %s:%d availability", objectType, id.ID), "")
			}
			if !ok {
				continue
			}
		}
		read = append(read, id)
	}

	rows, err := a.truth.Rows(ctx, read)
	if err != nil {
		return Classify(err, fmt.Sprintf("read %d %s rows from truth", len(createOrUpdate), objectType), "")
	}
	current := make(map[int64]ir.ObjectRow, len(rows))
	pinned := make(map[[2]int64]ir.ObjectRow, len(rows))
	for _, r := range rows {
		if r.IsCurrent {
			current[r.ObjectID] = r
		}
		pinned[[2]int64{r.ObjectID, r.Version}] = r
	}

	var upserts, removals int
	err = a.replica.Apply(ctx, func(tx *store.ReplicaTx) error {
		for _, id := range deletes {
			if err := deleteIdentity(tx, objectType, id); err != nil {
				return err
			}
			removals++
		}

		for _, id := range createOrUpdate {
			if id.Version == nil {
				row, ok := current[id.ID]
				if !ok {
					if err := tx.DeleteObject(objectType, id.ID); err != nil {
						return err
					}
					removals++
					continue
				}
				if err := tx.DeleteCurrent(objectType, id.ID); err != nil {
					return err
				}
				if err := tx.Upsert(row); err != nil {
					return err
				}
				upserts++
				continue
			}

			row, ok := pinned[[2]int64{id.ID, *id.Version}]
			if !ok {
				if err := tx.DeleteVersion(objectType, id.ID, *id.Version); err != nil {
					return err
				}
				removals++
				continue
			}
			row.IsCurrent = false
			if err := tx.Upsert(row); err != nil {
				return err
			}
			upserts++
		}
		return nil
	})
	if err != nil {
		return Classify(err, fmt.Sprintf("apply %d %s changes to replica", len(createOrUpdate)+len(deletes), objectType), "")
	}

	a.metrics.Applied.WithLabelValues(string(objectType), "upsert").Add(float64(upserts))
	a.metrics.Applied.WithLabelValues(string(objectType), "delete").Add(float64(removals))
	a.logger.Debug("applied changes",
		zap.String("object_type", string(objectType)),
		zap.Int("upserts", upserts),
		zap.Int("deletes", removals))
	return nil
}

func deleteIdentity(tx *store.ReplicaTx, objectType ir.ObjectType, id ir.ObjectIdentity) error {
	if id.Version != nil {
		return tx.DeleteVersion(objectType, id.ID, *id.Version)
	}
	return tx.DeleteObject(objectType, id.ID)
}

// Replicate applies change events, one transaction per object type. Every
// event is validated first; a single malformed event rejects the batch.
func (a *Applier) Replicate(ctx context.Context, events []ir.ChangeEvent) error {
	type split struct {
		createOrUpdate []ir.ObjectIdentity
		deletes        []ir.ObjectIdentity
	}
	byType := make(map[ir.ObjectType]*split)

	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return &ReplicationError{
				Code:     ErrCodeContractViolation,
				Message:  "rejecting change batch",
				ObjectID: ev.ObjectID,
				Err:      fmt.Errorf("%w: %v", errInvalidEvent, err),
			}
		}
		s, ok := byType[ev.ObjectType]
		if !ok {
			s = &split{}
			byType[ev.ObjectType] = s
		}
		if ev.ChangeType == ir.ChangeDelete {
			s.deletes = append(s.deletes, ev.Identity())
		} else {
			s.createOrUpdate = append(s.createOrUpdate, ev.Identity())
		}
	}

	for _, objectType := range slices.SortedFunc(maps.Keys(byType), func(a, b ir.ObjectType) int {
		return cmp.Compare(a, b)
	}) {
		s := byType[objectType]
		if err := a.Apply(ctx, objectType, s.createOrUpdate, s.deletes); err != nil {
			return err
		}
	}
	return nil
}
