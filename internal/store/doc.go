// Package store provides SQLite-backed storage for the truth records, the
// replica and synchronization leases.
//
// One schema serves every database file; a deployment normally opens one
// Store for the truth and another for the replica:
//   - objects: authoritative object rows, one per (type, id, version)
//   - replica_objects: the replicated copy, plus derived search content
//   - replication_leases: one expiry per reconciliation scope
//
// # Checksums
//
// Checksum streams are computed inside SQLite. Every connection registers
// replica_crc32(text), the unsigned CRC32 of its argument, so a per-container
// summary is a plain SUM over child rows and never leaves the database as
// individual rows. The salt travels as a decimal string parameter.
//
// # Ordering
//
//   - Every stream query ends in ORDER BY on the emitted id
//   - Every stream is returned through checksum.Ordered, so a broken
//     ordering surfaces as checksum.ErrOutOfOrder instead of a wrong diff
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
