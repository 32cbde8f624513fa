package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicon/internal/testutil"
)

func TestCheck_InSync(t *testing.T) {
	p := writeTestConfig(t)
	rows := testutil.File(10, 1, "a")
	seed(t, p.truth, false, rows)
	seed(t, p.replica, true, rows)

	out, err := execute(t, "--config", p.config, "--format", "json",
		"check", "--sub-types", "file", "--ids", "10")
	require.NoError(t, err, out)

	var result CheckResult
	decodeData(t, out, &result)
	assert.True(t, result.Synchronized)
	assert.NotEmpty(t, result.Scope)
}

func TestCheck_DriftedExitsWithFailure(t *testing.T) {
	p := writeTestConfig(t)
	seed(t, p.truth, false, testutil.File(10, 1, "a"))
	seed(t, p.replica, true, testutil.File(10, 1, "old"))

	out, err := execute(t, "--config", p.config,
		"check", "--sub-types", "file", "--ids", "10")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "drifted")
}

func TestCheck_DoesNotTouchReplica(t *testing.T) {
	p := writeTestConfig(t)
	seed(t, p.truth, false, testutil.File(10, 1, "a"))

	_, err := execute(t, "--config", p.config,
		"check", "--sub-types", "file", "--ids", "10")
	require.Error(t, err)
	assert.Empty(t, replicaIDs(t, p.replica))

	// no lease was taken, so a reconcile pass still runs
	out, err := execute(t, "--config", p.config, "--format", "json",
		"reconcile", "--sub-types", "file", "--ids", "10")
	require.NoError(t, err, out)
	var report ReconcileReport
	decodeData(t, out, &report)
	assert.False(t, report.Skipped)
}

func TestCheck_EmptyScopeInSync(t *testing.T) {
	p := writeTestConfig(t)

	out, err := execute(t, "--config", p.config,
		"check", "--sub-types", "file", "--containers", "99")
	require.NoError(t, err, out)
	assert.Contains(t, out, "in sync")
}
