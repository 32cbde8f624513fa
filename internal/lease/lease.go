// Package lease defines synchronization leases: a time-boxed claim that a
// reconciliation scope was recently verified.
//
// Leases are optimistic records, never in-process locks. A holder reads the
// current expiry, does its work, then publishes a new expiry with a
// compare-and-swap against what it read. Losing the swap means another
// process renewed the scope first, which is harmless.
package lease

import (
	"context"
	"time"

	"github.com/juju/clock"
)

// None is the expected value meaning "no lease recorded".
const None int64 = 0

// Lease is the stored expiry of one scope.
type Lease struct {
	ScopeKey    string
	ExpiresAtMs int64
}

// ExpiresAt returns the expiry as a time.
func (l Lease) ExpiresAt() time.Time { return time.UnixMilli(l.ExpiresAtMs) }

// Expired reports whether the lease no longer covers now.
func (l Lease) Expired(now time.Time) bool {
	return now.UnixMilli() >= l.ExpiresAtMs
}

// Store persists leases.
type Store interface {
	// Get returns the lease for scopeKey and whether one exists.
	Get(ctx context.Context, scopeKey string) (Lease, bool, error)
	// CompareAndSwap sets the expiry to next if the stored expiry equals
	// expected. It reports false, without error, when the record changed.
	CompareAndSwap(ctx context.Context, scopeKey string, expected, next int64) (bool, error)
}

// Observed is the outcome of checking a scope before a pass.
type Observed struct {
	// Expected is the value to compare against when renewing.
	Expected int64
	// Held is true when an unexpired lease covers the scope.
	Held bool
}

// Check reads the lease for scopeKey and reports whether it is still held.
func Check(ctx context.Context, s Store, clk clock.Clock, scopeKey string) (Observed, error) {
	l, ok, err := s.Get(ctx, scopeKey)
	if err != nil {
		return Observed{}, err
	}
	if !ok {
		return Observed{Expected: None}, nil
	}
	return Observed{Expected: l.ExpiresAtMs, Held: !l.Expired(clk.Now())}, nil
}

// Renew swaps the lease from the observed value to now + window.
func Renew(ctx context.Context, s Store, clk clock.Clock, scopeKey string, observed Observed, window time.Duration) (bool, error) {
	next := clk.Now().Add(window).UnixMilli()
	if next == observed.Expected {
		next++
	}
	return s.CompareAndSwap(ctx, scopeKey, observed.Expected, next)
}
