// Package engine implements the replication reconciliation engine.
//
// The engine keeps a derived replica in line with the truth store. Change
// events reach the replica asynchronously and at least once, so the replica
// can drift; the engine repairs it.
//
// COMPONENTS:
//
// Applier:
// Applies change events in one replica transaction per object type. It
// never trusts the event payload: every create/update re-reads the truth
// store, and ids that are gone or trashed are deleted. Applying the same
// events twice leaves the same replica.
//
// Coordinator:
// Runs reconciliation passes over a filter. A pass moves through
// IDLE → LEASE_ACQUIRED → STREAMING → LEASE_RENEWED → IDLE, or
// IDLE → LEASE_ACQUIRED → DECOMPOSING → DECOMPOSED → IDLE for a scope that
// splits. A decomposed parent takes no lease of its own: only a streamed
// scope is renewed, and each sub-scope request carries its own lease.
// A held lease skips the pass. A failed pass ends in FAILED and leaves the
// lease untouched, so the scope is retried on the next schedule.
//
// DriftDetector:
// Compares per-container summary checksums and only reconciles the
// containers whose summaries differ.
//
// Worker:
// Consumes the reconcile-request, replication-apply and drift-check topics
// with N consumers per topic. Recoverable failures are redelivered up to a
// bounded number of attempts; structural and contract failures are logged
// and dropped.
//
// STORAGE:
//
// Each sqlite store serialises access through a single connection, so truth
// and replica must live in separate stores. Streams are always closed before
// a component opens the next pair.
package engine
