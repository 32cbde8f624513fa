package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "truth.db", cfg.Truth.Path)
	assert.Equal(t, "replica.db", cfg.Replica.Path)
	assert.Equal(t, 30*time.Minute, cfg.Reconcile.LeaseWindow)
	assert.Equal(t, 1, cfg.Reconcile.SplitThreshold)
	assert.Equal(t, 1000, cfg.Reconcile.PageSize)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, 5, cfg.Worker.MaxAttempts)
	assert.Equal(t, BackendMemory, cfg.Queue.Backend)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Queue.Kafka.Brokers)
	assert.Equal(t, BackendSQLite, cfg.Lease.Backend)
	assert.Equal(t, "localhost:6379", cfg.Lease.Redis.Addr)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
truth:
  path: /data/truth.db
reconcile:
  lease_window: 5m
  page_size: 50
queue:
  backend: kafka
  kafka:
    brokers: [k1:9092, k2:9092]
lease:
  backend: redis
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/truth.db", cfg.Truth.Path)
	assert.Equal(t, 5*time.Minute, cfg.Reconcile.LeaseWindow)
	assert.Equal(t, 50, cfg.Reconcile.PageSize)
	assert.Equal(t, 1, cfg.Reconcile.SplitThreshold)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Queue.Kafka.Brokers)
	assert.Equal(t, BackendRedis, cfg.Lease.Backend)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "reconcile:\n  page_size: 50\n")
	t.Setenv("REPLICON_RECONCILE_PAGE_SIZE", "7")
	t.Setenv("REPLICON_WORKER_CONCURRENCY", "9")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Reconcile.PageSize)
	assert.Equal(t, 9, cfg.Worker.Concurrency)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero page size", "reconcile:\n  page_size: 0\n"},
		{"zero split threshold", "reconcile:\n  split_threshold: 0\n"},
		{"negative window", "reconcile:\n  lease_window: -1s\n"},
		{"same database", "truth:\n  path: x.db\nreplica:\n  path: x.db\n"},
		{"unknown queue", "queue:\n  backend: nats\n"},
		{"unknown lease", "lease:\n  backend: etcd\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}
