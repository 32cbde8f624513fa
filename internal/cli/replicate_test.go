package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/testutil"
)

func writeEvents(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadEventFile(t *testing.T) {
	path := writeEvents(t, t.TempDir(), `
events:
  - object_id: 11
    object_type: ENTITY
    change_type: CREATE_OR_UPDATE
    etag: b
  - object_id: 12
    object_type: ENTITY
    change_type: DELETE
    version: 3
`)

	events, err := LoadEventFile(path)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(11), events[0].ObjectID)
	assert.Equal(t, ir.ChangeCreateOrUpdate, events[0].ChangeType)
	assert.Equal(t, "b", events[0].Etag)
	assert.Nil(t, events[0].Version)
	assert.Equal(t, ir.ChangeDelete, events[1].ChangeType)
	require.NotNil(t, events[1].Version)
	assert.Equal(t, int64(3), *events[1].Version)
}

func TestLoadEventFile_Errors(t *testing.T) {
	_, err := LoadEventFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeEvents(t, t.TempDir(), "events: [unclosed")
	_, err = LoadEventFile(path)
	assert.Error(t, err)
}

func TestReplicate_AppliesEvents(t *testing.T) {
	p := writeTestConfig(t)
	seed(t, p.truth, false, testutil.File(11, 1, "b"))
	seed(t, p.replica, true, testutil.File(12, 1, "c"))

	path := writeEvents(t, p.dir, `
events:
  - object_id: 11
    object_type: ENTITY
    change_type: CREATE_OR_UPDATE
  - object_id: 12
    object_type: ENTITY
    change_type: DELETE
`)

	out, err := execute(t, "--config", p.config, "replicate", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "applied 2 change event(s)")
	assert.Equal(t, []int64{11}, replicaIDs(t, p.replica))
}

func TestReplicate_InvalidEventAppliesNothing(t *testing.T) {
	p := writeTestConfig(t)
	seed(t, p.truth, false, testutil.File(11, 1, "b"))

	path := writeEvents(t, p.dir, `
events:
  - object_id: 11
    object_type: ENTITY
    change_type: CREATE_OR_UPDATE
  - object_id: 12
    object_type: WIDGET
    change_type: DELETE
`)

	out, err := execute(t, "--config", p.config, "--format", "json", "replicate", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeData(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeContractViolation, resp.Error.Code)
	assert.Empty(t, replicaIDs(t, p.replica))
}

func TestReplicate_MissingFile(t *testing.T) {
	p := writeTestConfig(t)

	_, err := execute(t, "--config", p.config, "replicate", filepath.Join(p.dir, "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
