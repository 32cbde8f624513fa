package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicon/internal/engine"
	"github.com/roach88/replicon/internal/testutil"
)

func TestReconcile_RepairsReplica(t *testing.T) {
	p := writeTestConfig(t)
	seed(t, p.truth, false,
		testutil.File(10, 1, "a"),
		testutil.File(11, 1, "b"),
		testutil.File(12, 1, "c"),
	)
	seed(t, p.replica, true,
		testutil.File(10, 1, "a"),
		testutil.File(12, 1, "stale"),
	)

	out, err := execute(t, "--config", p.config, "--format", "json",
		"reconcile", "--sub-types", "file", "--ids", "10,11,12")
	require.NoError(t, err, out)

	var report ReconcileReport
	resp := decodeData(t, out, &report)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, engine.StateLeaseRenewed, report.State)
	assert.Equal(t, 2, report.Events)
	assert.Equal(t, 1, report.Pages)
	assert.Equal(t, 1, report.Handled)

	assert.Equal(t, []int64{10, 11, 12}, replicaIDs(t, p.replica))
}

func TestReconcile_SecondPassSkippedWhileLeaseHeld(t *testing.T) {
	p := writeTestConfig(t)
	seed(t, p.truth, false, testutil.File(10, 1, "a"))

	args := []string{"--config", p.config, "--format", "json",
		"reconcile", "--sub-types", "file", "--ids", "10"}
	_, err := execute(t, args...)
	require.NoError(t, err)

	out, err := execute(t, args...)
	require.NoError(t, err, out)
	var report ReconcileReport
	decodeData(t, out, &report)
	assert.True(t, report.Skipped)
	assert.Zero(t, report.Handled)
}

func TestReconcile_ContainersDecompose(t *testing.T) {
	p := writeTestConfig(t)
	seed(t, p.truth, false,
		testutil.File(10, 1, "a"),
		testutil.File(20, 2, "b"),
	)

	out, err := execute(t, "--config", p.config, "--format", "json",
		"reconcile", "--sub-types", "file", "--containers", "1,2")
	require.NoError(t, err, out)

	var report ReconcileReport
	decodeData(t, out, &report)
	assert.Equal(t, 2, report.SubScopes)
	assert.Equal(t, engine.StateDecomposed, report.State)
	// two sub-scope requests, then one apply batch for each
	assert.Equal(t, 4, report.Handled)
	assert.Equal(t, []int64{10, 20}, replicaIDs(t, p.replica))
}

func TestReconcile_NoDrainLeavesReplica(t *testing.T) {
	p := writeTestConfig(t)
	seed(t, p.truth, false, testutil.File(10, 1, "a"))

	out, err := execute(t, "--config", p.config,
		"reconcile", "--sub-types", "file", "--ids", "10", "--no-drain")
	require.NoError(t, err, out)
	assert.Contains(t, out, "1 event(s) in 1 page(s)")
	assert.Empty(t, replicaIDs(t, p.replica))
}

func TestReconcile_ScopeFlags(t *testing.T) {
	p := writeTestConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing selector", []string{"--sub-types", "file"}},
		{"two selectors", []string{"--sub-types", "file", "--ids", "1", "--containers", "2"}},
		{"missing sub-types", []string{"--ids", "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", p.config, "reconcile"}, tt.args...)
			_, err := execute(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestReconcile_InvalidVersionFlag(t *testing.T) {
	p := writeTestConfig(t)

	_, err := execute(t, "--config", p.config,
		"reconcile", "--sub-types", "file", "--versions", "10")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReconcile_MissingConfig(t *testing.T) {
	_, err := execute(t, "--config", "/nonexistent/replicon.yaml",
		"reconcile", "--sub-types", "file", "--ids", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReconcileReport_String(t *testing.T) {
	tests := []struct {
		name   string
		report ReconcileReport
		want   string
	}{
		{
			name:   "skipped",
			report: ReconcileReport{PassResult: engine.PassResult{Scope: "s", Skipped: true}},
			want:   "s: lease held, skipped",
		},
		{
			name: "streamed",
			report: ReconcileReport{
				PassResult: engine.PassResult{Scope: "s", State: engine.StateLeaseRenewed, Events: 3, Pages: 1},
				Handled:    1,
			},
			want: "s: LEASE_RENEWED, 3 event(s) in 1 page(s), 1 queued message(s) handled",
		},
		{
			name:   "decomposed",
			report: ReconcileReport{PassResult: engine.PassResult{Scope: "s", State: engine.StateDecomposed, SubScopes: 2}},
			want:   "s: DECOMPOSED, decomposed into 2 sub-scope(s)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.report.String())
		})
	}
}
