// Package ir provides the shared record types for replicon.
//
// This package contains type definitions and canonical encodings only. All
// other internal packages import ir; ir imports nothing internal. This keeps
// the object identity, checksum and change event vocabulary at the bottom of
// the dependency graph.
//
// Key design constraints:
//   - Object ids are int64 and compare numerically; every checksum stream is
//     ordered by ObjectID ascending
//   - Checksums are unsigned and zero is a valid value (never "absent")
//   - Versions are optional (*int64) because only some object types are
//     versioned
//   - All JSON tags use snake_case
package ir
