package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/replicon/internal/ir"
)

// ErrGoldenMismatch reports a trace that differs from its golden file.
var ErrGoldenMismatch = errors.New("trace differs from golden file")

// Snapshot renders a scenario's trace as canonical JSON.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		trace[i] = traceMap(ev)
	}
	return ir.MarshalCanonical(map[string]any{
		"scenario": name,
		"trace":    trace,
	})
}

// traceMap converts a trace event to a canonical JSON object, omitting
// zero fields.
func traceMap(ev TraceEvent) map[string]any {
	m := map[string]any{
		"seq":    ev.Seq,
		"action": ev.Action,
	}
	if ev.Scope != "" {
		m["scope"] = ev.Scope
	}
	if ev.Skipped {
		m["skipped"] = true
	}
	if ev.SubScopes > 0 {
		m["sub_scopes"] = ev.SubScopes
	}
	if len(ev.Events) > 0 {
		events := make([]any, len(ev.Events))
		for i, e := range ev.Events {
			em := map[string]any{
				"object_id":   e.ObjectID,
				"change_type": string(e.ChangeType),
			}
			if e.Version != nil {
				em["version"] = *e.Version
			}
			events[i] = em
		}
		m["events"] = events
	}
	if ev.Handled > 0 {
		m["handled"] = ev.Handled
	}
	if ev.InSync != nil {
		m["in_sync"] = *ev.InSync
	}
	if len(ev.Drifted) > 0 {
		drifted := make([]any, len(ev.Drifted))
		for i, id := range ev.Drifted {
			drifted[i] = id
		}
		m["drifted"] = drifted
	}
	if ev.Applied > 0 {
		m["applied"] = ev.Applied
	}
	if ev.Error != "" {
		m["error"] = ev.Error
	}
	return m
}

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	return result, AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result's trace against its golden
// file.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	snapshot, err := Snapshot(name, result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, snapshot)
	return nil
}

// CompareGolden compares snapshot with the golden file at path, or writes
// it there when update is set. A missing golden file is not an error.
func CompareGolden(path string, snapshot []byte, update bool) error {
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		return os.WriteFile(path, snapshot, 0o644)
	}
	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if !bytes.Equal(want, snapshot) {
		return fmt.Errorf("%w: %s", ErrGoldenMismatch, path)
	}
	return nil
}
