// Package checksum defines the checksum stream contract shared by the truth
// store, the replica and the reconcile iterator.
//
// A Stream is a lazy, finite, single-pass sequence of ir.ChecksumEntry values
// strictly ascending by ObjectID. It follows the database/sql.Rows protocol:
//
//	for s.Next() {
//	    e := s.Entry()
//	}
//	if err := s.Err(); err != nil { ... }
//
// Streams cannot be restarted. Callers that need two passes over the same
// scope open two streams with the same salt.
package checksum
