package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/replicon/internal/ir"
	"github.com/roach88/replicon/internal/store"
	"github.com/roach88/replicon/internal/testutil"
)

// testPaths are the files one CLI test works with.
type testPaths struct {
	dir     string
	config  string
	truth   string
	replica string
}

// writeTestConfig writes a config using the memory queue and sqlite leases
// with stores under a fresh temp dir.
func writeTestConfig(t *testing.T) testPaths {
	t.Helper()
	dir := t.TempDir()
	p := testPaths{
		dir:     dir,
		config:  filepath.Join(dir, "replicon.yaml"),
		truth:   filepath.Join(dir, "truth.db"),
		replica: filepath.Join(dir, "replica.db"),
	}
	content := fmt.Sprintf("truth:\n  path: %s\nreplica:\n  path: %s\n", p.truth, p.replica)
	require.NoError(t, os.WriteFile(p.config, []byte(content), 0o644))
	return p
}

// seed writes rows into the store at path and closes it again.
func seed(t *testing.T, path string, replica bool, rows ...ir.ObjectRow) {
	t.Helper()
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	if !replica {
		for _, row := range rows {
			require.NoError(t, s.Truth().Put(ctx, row))
		}
		return
	}
	require.NoError(t, s.Replica().Apply(ctx, func(tx *store.ReplicaTx) error {
		for _, row := range rows {
			if err := tx.Upsert(row); err != nil {
				return err
			}
		}
		return nil
	}))
}

// replicaIDs returns the current replica ids stored at path.
func replicaIDs(t *testing.T, path string) []int64 {
	t.Helper()
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()
	return testutil.Stores{Replica: s}.ReplicaIDs(t, ir.ObjectTypeEntity)
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// decodeData decodes the data field of a JSON CLI response into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var resp CLIResponse
	resp.Data = v
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}
