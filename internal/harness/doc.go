// Package harness runs reconciliation scenarios against the real engine.
//
// A scenario is a YAML file that seeds a truth store and a replica store,
// runs a list of steps against an engine.Service and then checks
// assertions on the replica and on the recorded trace:
//
//	name: repair-missing-and-stale
//	description: a pass over three ids repairs one missing and one stale row
//	truth:
//	  - {id: 10, parent: 1, etag: a}
//	  - {id: 11, parent: 1, etag: b}
//	replica:
//	  - {id: 10, parent: 1, etag: old}
//	steps:
//	  - action: reconcile
//	    scope: {sub_types: [file], ids: [10, 11]}
//	    expect: {events: 2}
//	assertions:
//	  - type: replica_ids
//	    ids: [10, 11]
//
// Each run gets fresh sqlite stores in a temporary directory, an in-memory
// queue, a test clock starting at Epoch and a salt sequence starting at 1,
// so traces are reproducible and can be compared against golden files.
//
// Steps:
//   - reconcile: one pass over scope; queued messages are then handled
//   - check: IsSynchronized over scope
//   - replicate: apply events directly
//   - drift: container summary check over scope's containers
//   - truth: put or delete truth rows
//   - advance: move the clock forward
package harness
