// Package index describes how tables, views and materialized views are
// physically indexed in the replica.
//
// Descriptions live in an arena (Graph) and are addressed by Handle. A
// materialized view lists the handles it depends on; the dependency graph is
// a DAG and is always walked with an explicit stack, so deep nesting cannot
// exhaust the goroutine stack and a cycle is reported as ErrCycle.
//
// Two derived properties must be stable across builds because they name
// physical columns:
//
//   - Dependencies: the transitive Table/View leaves, de-duplicated and
//     sorted by (id, version)
//   - Benefactors: one access-control column per dependency chain. A view
//     contributes ROW_BENEFACTOR; a materialized view suffixes each of its
//     dependencies' benefactor columns with the dependency identifier, so
//     view 1 reached directly and through materialized view 2 yields
//     ROW_BENEFACTOR_1 and ROW_BENEFACTOR_1_2.
package index
