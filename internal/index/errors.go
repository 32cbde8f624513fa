package index

import "errors"

var (
	// ErrCycle reports materialized views that depend on themselves.
	ErrCycle = errors.New("materialized view dependency cycle")

	// ErrAggregateWithViewDependency reports an aggregate build over a view
	// dependency, where per-row benefactors cannot survive GROUP BY.
	ErrAggregateWithViewDependency = errors.New(
		"aggregate with GROUP BY cannot be combined with a view dependency's defining SQL")

	// ErrUnsetContext reports a column request without a SQL context.
	ErrUnsetContext = errors.New("sql context must be set")

	// ErrUnknownHandle reports a handle that is not part of the graph.
	ErrUnknownHandle = errors.New("unknown index handle")

	// ErrDuplicateKey reports two descriptions with the same (id, version).
	ErrDuplicateKey = errors.New("duplicate index key")

	// ErrNotMaterializedView reports dependencies set on a leaf.
	ErrNotMaterializedView = errors.New("only materialized views have dependencies")

	// ErrUnsupportedKind reports a description variant a consumer cannot handle.
	ErrUnsupportedKind = errors.New("unsupported index kind")
)
