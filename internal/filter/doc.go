// Package filter describes the scope a view or a reconciliation pass covers.
//
// Filter is a closed sum type with three variants:
//
//   - FlatIDs: an explicit set of object ids
//   - Hierarchical: every object whose parent is one of a set of containers
//   - IDAndVersionList: explicit (id, version) pairs, for snapshot views
//
// Every variant carries the replicated object type and a non-empty set of
// sub-types. The scope itself is exposed only as an opaque
// queryir.Predicate; callers other than the storage layer never look inside.
//
// Hierarchical filters over more containers than their split threshold
// decompose into one filter per container so that each can be reconciled
// (and leased) independently.
package filter
