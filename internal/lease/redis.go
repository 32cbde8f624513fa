package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/redis/go-redis/v9"
)

// DefaultRetention keeps an expired lease key around so a late renewal can
// still compare against it.
const DefaultRetention = time.Hour

var errSwapLost = errors.New("lease changed")

// RedisStore keeps one key per scope holding the expiry in epoch millis.
// Keys carry a TTL of expiry plus retention, so dead scopes clean up.
type RedisStore struct {
	client    redis.UniversalClient
	clock     clock.Clock
	prefix    string
	retention time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a RedisStore. An empty prefix defaults to
// "replicon:lease:".
func NewRedisStore(client redis.UniversalClient, clk clock.Clock, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "replicon:lease:"
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &RedisStore{client: client, clock: clk, prefix: prefix, retention: DefaultRetention}
}

func (r *RedisStore) key(scopeKey string) string { return r.prefix + scopeKey }

// Get returns the lease for scopeKey.
func (r *RedisStore) Get(ctx context.Context, scopeKey string) (Lease, bool, error) {
	v, err := r.client.Get(ctx, r.key(scopeKey)).Int64()
	if errors.Is(err, redis.Nil) {
		return Lease{}, false, nil
	}
	if err != nil {
		return Lease{}, false, fmt.Errorf("get lease %s: %w", scopeKey, err)
	}
	return Lease{ScopeKey: scopeKey, ExpiresAtMs: v}, true, nil
}

// CompareAndSwap uses WATCH/MULTI/EXEC so concurrent holders cannot both win.
func (r *RedisStore) CompareAndSwap(ctx context.Context, scopeKey string, expected, next int64) (bool, error) {
	key := r.key(scopeKey)
	ttl := time.UnixMilli(next).Sub(r.clock.Now()) + r.retention
	if ttl < time.Second {
		ttl = time.Second
	}

	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Int64()
		switch {
		case errors.Is(err, redis.Nil):
			cur = None
		case err != nil:
			return err
		}
		if cur != expected {
			return errSwapLost
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, ttl)
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errSwapLost), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("swap lease %s: %w", scopeKey, err)
	}
}
