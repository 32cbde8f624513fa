// Package queue carries reconciliation work between processes.
//
// Three topics are used:
//   - replicon.reconcile.request: one encoded filter per message
//   - replicon.replication.apply: one page of change events per message
//   - replicon.drift.check: a batch of containers to summary-check
//
// Delivery is at-least-once. A consumer Acks a message after handling it or
// Nacks it to have it delivered again with Attempt incremented. Payloads are
// msgpack-encoded using the payload types' json tags.
//
// MemoryBroker serves single-process deployments and tests; KafkaPublisher
// and KafkaConsumer serve everything else.
package queue
