package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTest_PassingScenario(t *testing.T) {
	out, err := execute(t, "test", "testdata/scenarios", "--filter", "replicate_*")
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ replicate_then_check")
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTest_FailingScenarioExitsWithFailure(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", "testdata/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var report struct {
		Total  int `json:"total"`
		Passed int `json:"passed"`
		Failed int `json:"failed"`
	}
	decodeData(t, out, &report)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Passed)
	assert.Equal(t, 1, report.Failed)
}

func TestTest_UpdateWritesGolden(t *testing.T) {
	golden := t.TempDir()
	args := []string{"test", "testdata/scenarios", "--filter", "replicate_*", "--golden", golden}

	_, err := execute(t, append(args, "--update")...)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(golden, "replicate_then_check.golden"))

	_, err = execute(t, args...)
	require.NoError(t, err)
}

func TestTest_Errors(t *testing.T) {
	_, err := execute(t, "test", "testdata/nope")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, "test", "testdata/scenarios", "--update")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
