package engine

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/queue"
	"github.com/roach88/replicon/internal/testutil"
)

var (
	files = []ir.SubType{"file"}
	epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

type testEnv struct {
	stores  testutil.Stores
	broker  *queue.MemoryBroker
	clock   *testclock.Clock
	salt    *testutil.SequenceSalt
	metrics *Metrics
	svc     *Service
}

// newTestEnv wires a service over fresh stores, an in-memory broker and a
// test clock. Leases live in the replica store.
func newTestEnv(t *testing.T, opts ...CoordinatorOption) *testEnv {
	t.Helper()
	env := &testEnv{
		stores:  testutil.OpenStores(t),
		broker:  queue.NewMemoryBroker(),
		clock:   testclock.NewClock(epoch),
		salt:    testutil.NewSequenceSalt(),
		metrics: NewMetrics(nil),
	}
	t.Cleanup(func() { env.broker.Close() })

	all := append([]CoordinatorOption{
		WithClock(env.clock),
		WithSaltSource(env.salt.Next),
		WithMetrics(env.metrics),
	}, opts...)
	env.svc = NewService(
		env.stores.Truth.Truth(),
		env.stores.Replica.Replica(),
		env.stores.Replica.Leases(),
		env.broker,
		all...,
	)
	return env
}

func (e *testEnv) coordinator() *Coordinator { return e.svc.coordinator }

// receive pulls every pending message from topic.
func (e *testEnv) receive(t *testing.T, topic string) []queue.Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	c := e.broker.Consumer(topic)
	var out []queue.Message
	for e.broker.Len(topic) > 0 {
		m, err := c.Receive(ctx)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

// applyEvents drains the apply topic and returns the published events in
// order.
func (e *testEnv) applyEvents(t *testing.T) []ir.ChangeEvent {
	t.Helper()
	var events []ir.ChangeEvent
	for _, m := range e.receive(t, queue.TopicReplicationApply) {
		var batch queue.ApplyBatch
		require.NoError(t, m.Decode(&batch))
		events = append(events, batch.Events...)
	}
	return events
}

// requestedScopes drains the reconcile-request topic and returns the scope
// keys of the published filters.
func (e *testEnv) requestedScopes(t *testing.T) []string {
	t.Helper()
	var keys []string
	for _, m := range e.receive(t, queue.TopicReconcileRequest) {
		var req queue.ReconcileRequest
		require.NoError(t, m.Decode(&req))
		f, err := filter.FromEnvelope(req.Filter)
		require.NoError(t, err)
		keys = append(keys, f.ScopeKey())
	}
	return keys
}

func flatIDs(t *testing.T, ids ...int64) filter.FlatIDs {
	t.Helper()
	f, err := filter.NewFlatIDs(ir.ObjectTypeEntity, files, ids)
	require.NoError(t, err)
	return f
}

func containers(t *testing.T, ids ...int64) filter.Hierarchical {
	t.Helper()
	f, err := filter.NewHierarchical(ir.ObjectTypeEntity, files, ids)
	require.NoError(t, err)
	return f
}

func createOrUpdate(ids ...int64) []ir.ChangeEvent {
	events := make([]ir.ChangeEvent, len(ids))
	for i, id := range ids {
		events[i] = ir.ChangeEvent{ObjectID: id, ObjectType: ir.ObjectTypeEntity, ChangeType: ir.ChangeCreateOrUpdate}
	}
	return events
}

func ids(list ...int64) []ir.ObjectIdentity {
	out := make([]ir.ObjectIdentity, len(list))
	for i, id := range list {
		out[i] = ir.ObjectIdentity{Type: ir.ObjectTypeEntity, ID: id}
	}
	return out
}
