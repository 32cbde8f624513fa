package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/replicon/internal/lease"
)

// Leases is the SQLite lease.Store. Rows are never deleted; an expired row
// is simply overwritten by the next successful compare-and-swap.
type Leases struct {
	s *Store
}

var _ lease.Store = (*Leases)(nil)

// Get returns the lease for a scope key.
func (l *Leases) Get(ctx context.Context, scopeKey string) (lease.Lease, bool, error) {
	var expires int64
	err := l.s.db.QueryRowContext(ctx,
		`SELECT expires_at_ms FROM replication_leases WHERE scope_key = ?`, scopeKey).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return lease.Lease{}, false, nil
	}
	if err != nil {
		return lease.Lease{}, false, fmt.Errorf("get lease %s: %w", scopeKey, err)
	}
	return lease.Lease{ScopeKey: scopeKey, ExpiresAtMs: expires}, true, nil
}

// CompareAndSwap sets the expiry of scopeKey to next only if the stored
// expiry still equals expected (lease.None meaning no row).
func (l *Leases) CompareAndSwap(ctx context.Context, scopeKey string, expected, next int64) (bool, error) {
	var res sql.Result
	var err error
	if expected == lease.None {
		res, err = l.s.db.ExecContext(ctx, `
			INSERT INTO replication_leases (scope_key, expires_at_ms) VALUES (?, ?)
			ON CONFLICT(scope_key) DO NOTHING
		`, scopeKey, next)
	} else {
		res, err = l.s.db.ExecContext(ctx, `
			UPDATE replication_leases SET expires_at_ms = ?
			WHERE scope_key = ? AND expires_at_ms = ?
		`, next, scopeKey, expected)
	}
	if err != nil {
		return false, fmt.Errorf("swap lease %s: %w", scopeKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap lease %s: %w", scopeKey, err)
	}
	return n == 1, nil
}
