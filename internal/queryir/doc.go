// Package queryir provides the abstract scope descriptor shared by view
// filters, checksum providers and index builds.
//
// A filter describes WHAT it covers as a queryir.Predicate; only the
// backend compiler (internal/querysql) turns it into SQL. The reconciliation
// coordinator passes predicates around without inspecting them.
//
//	[filter] → [queryir.Predicate] → [querysql] → SQL + args
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern. Only
// types in this package implement it, so backend compilers can switch over
// every variant exhaustively.
//
// FIELDS:
//
// Predicates reference the logical columns every object table carries:
// object_type, object_id, object_version, is_current, sub_type, parent_id.
// Validate rejects any other field name.
package queryir
