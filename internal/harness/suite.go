package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SuiteOptions configures RunSuite.
type SuiteOptions struct {
	// GoldenDir holds {name}.golden trace snapshots. Empty disables
	// golden comparison.
	GoldenDir string
	// Update rewrites golden files instead of comparing them.
	Update bool
}

// ScenarioOutcome is the result of one scenario file in a suite.
type ScenarioOutcome struct {
	Name   string   `json:"name"`
	Path   string   `json:"path"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// SuiteResult summarises a suite run.
type SuiteResult struct {
	Scenarios []ScenarioOutcome `json:"scenarios"`
	Total     int               `json:"total"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
}

// FindScenarios returns the .yaml and .yml files under dir whose base name
// (without extension) matches pattern. An empty pattern matches all.
func FindScenarios(dir, pattern string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if pattern != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			matched, err := filepath.Match(pattern, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// RunSuite loads and runs each scenario file. Load and run failures count
// as failed scenarios; they do not stop the suite.
func RunSuite(ctx context.Context, paths []string, opts SuiteOptions, runOpts ...Option) *SuiteResult {
	result := &SuiteResult{Scenarios: make([]ScenarioOutcome, 0, len(paths))}
	for _, path := range paths {
		outcome := runOne(ctx, path, opts, runOpts)
		result.Scenarios = append(result.Scenarios, outcome)
		result.Total++
		if outcome.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	return result
}

func runOne(ctx context.Context, path string, opts SuiteOptions, runOpts []Option) ScenarioOutcome {
	outcome := ScenarioOutcome{Name: filepath.Base(path), Path: path}

	scenario, err := LoadScenario(path)
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("failed to load scenario: %v", err)}
		return outcome
	}
	outcome.Name = scenario.Name

	result, err := Run(ctx, scenario, runOpts...)
	if err != nil {
		outcome.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return outcome
	}
	outcome.Pass = result.Pass
	outcome.Errors = result.Errors

	if opts.GoldenDir != "" {
		snapshot, err := Snapshot(scenario.Name, result)
		if err == nil {
			err = CompareGolden(filepath.Join(opts.GoldenDir, scenario.Name+".golden"), snapshot, opts.Update)
		}
		if err != nil {
			outcome.Pass = false
			outcome.Errors = append(outcome.Errors, err.Error())
		}
	}
	return outcome
}
