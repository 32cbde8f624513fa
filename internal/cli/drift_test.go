package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicon/internal/engine"
	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/testutil"
)

func TestDrift_ReconcilesOnlyDriftedContainers(t *testing.T) {
	p := writeTestConfig(t)
	seed(t, p.truth, false,
		testutil.File(10, 1, "a"),
		testutil.File(20, 2, "b"),
	)
	seed(t, p.replica, true, testutil.File(10, 1, "a"))

	out, err := execute(t, "--config", p.config, "--format", "json",
		"drift", "--sub-types", "file", "--containers", "1,2")
	require.NoError(t, err, out)

	var report DriftReport
	decodeData(t, out, &report)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, []int64{1}, report.InSync)
	assert.Equal(t, []int64{2}, report.Drifted)
	assert.False(t, report.Published)
	assert.Equal(t, 1, report.Handled)
	assert.Equal(t, []int64{10, 20}, replicaIDs(t, p.replica))
}

func TestDrift_ParentListsContainers(t *testing.T) {
	p := writeTestConfig(t)
	folder := func(id int64) ir.ObjectRow {
		row := testutil.File(id, 100, "f")
		row.SubType = "folder"
		return row
	}
	seed(t, p.truth, false,
		folder(1), folder(2),
		testutil.File(10, 1, "a"),
		testutil.File(20, 2, "b"),
	)
	seed(t, p.replica, true, testutil.File(10, 1, "a"))

	out, err := execute(t, "--config", p.config, "--format", "json",
		"drift", "--sub-types", "file", "--parent", "100")
	require.NoError(t, err, out)

	var report DriftReport
	decodeData(t, out, &report)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, []int64{1}, report.InSync)
	assert.Equal(t, []int64{2}, report.Drifted)
	assert.Equal(t, []int64{10, 20}, replicaIDs(t, p.replica))
}

func TestDrift_ParentWithoutChildren(t *testing.T) {
	p := writeTestConfig(t)

	out, err := execute(t, "--config", p.config, "--format", "json",
		"drift", "--sub-types", "file", "--parent", "7")
	require.NoError(t, err, out)

	var report DriftReport
	decodeData(t, out, &report)
	assert.Zero(t, report.Checked)
}

func TestDrift_ContainersAndParentExclusive(t *testing.T) {
	p := writeTestConfig(t)

	_, err := execute(t, "--config", p.config,
		"drift", "--sub-types", "file", "--containers", "1", "--parent", "100")
	assert.Error(t, err)
}

func TestDrift_PublishNeedsKafka(t *testing.T) {
	p := writeTestConfig(t)

	_, err := execute(t, "--config", p.config,
		"drift", "--sub-types", "file", "--containers", "1", "--publish")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDrift_RequiredFlags(t *testing.T) {
	p := writeTestConfig(t)

	_, err := execute(t, "--config", p.config, "drift", "--sub-types", "file")
	assert.Error(t, err)
}

func TestDriftReport_String(t *testing.T) {
	assert.Equal(t, "drift check published", DriftReport{Published: true}.String())
	r := DriftReport{DriftResult: engine.DriftResult{Checked: 2, InSync: []int64{1}, Drifted: []int64{2}}}
	assert.Equal(t, "checked 2 container(s), skipped 0: in sync [1], drifted [2]", r.String())
}
