package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/replicon/internal/filter"
	"github.com/roach88/replicon/internal/ir"
)

// Scenario defines a reconciliation scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Truth and Replica seed the two stores before the first step.
	Truth   []Row `yaml:"truth,omitempty"`
	Replica []Row `yaml:"replica,omitempty"`

	// Engine settings; zero values take the engine defaults.
	LeaseWindow    time.Duration `yaml:"lease_window,omitempty"`
	PageSize       int           `yaml:"page_size,omitempty"`
	SplitThreshold int           `yaml:"split_threshold,omitempty"`

	// Steps run in order. A step whose expectation fails stops the run.
	Steps []Step `yaml:"steps"`

	// Assertions are checked after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Row is a compact object row. Unset fields default to a current,
// version-1 ENTITY file.
type Row struct {
	Type    string `yaml:"type,omitempty"`
	ID      int64  `yaml:"id"`
	Version int64  `yaml:"version,omitempty"`
	Current *bool  `yaml:"current,omitempty"`
	SubType string `yaml:"sub_type,omitempty"`
	Parent  *int64 `yaml:"parent,omitempty"`
	Etag    string `yaml:"etag,omitempty"`
	Name    string `yaml:"name,omitempty"`
	Trash   bool   `yaml:"trash,omitempty"`
}

// ObjectRow expands the row with its defaults.
func (r Row) ObjectRow() ir.ObjectRow {
	row := ir.ObjectRow{
		ObjectType: ir.ObjectTypeEntity,
		ObjectID:   r.ID,
		Version:    r.Version,
		IsCurrent:  true,
		SubType:    ir.SubType(r.SubType),
		ParentID:   r.Parent,
		Etag:       r.Etag,
		Name:       r.Name,
		InTrash:    r.Trash,
	}
	if r.Type != "" {
		row.ObjectType = ir.ObjectType(strings.ToUpper(r.Type))
	}
	if row.Version == 0 {
		row.Version = 1
	}
	if r.Current != nil {
		row.IsCurrent = *r.Current
	}
	if row.SubType == "" {
		row.SubType = "file"
	}
	if row.Name == "" {
		row.Name = fmt.Sprintf("object-%d", r.ID)
	}
	return row
}

// Step is one action of a scenario.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Scope is used by reconcile, check and drift.
	Scope *filter.Selector `yaml:"scope,omitempty"`

	// Events is used by replicate.
	Events []ir.ChangeEvent `yaml:"events,omitempty"`

	// Put and Delete are used by truth. Delete holds ids of ObjectType,
	// which defaults to ENTITY.
	Put        []Row   `yaml:"put,omitempty"`
	Delete     []int64 `yaml:"delete,omitempty"`
	ObjectType string  `yaml:"object_type,omitempty"`

	// Duration is used by advance.
	Duration time.Duration `yaml:"duration,omitempty"`

	// Expect checks the step's outcome. Nil means the step must not fail.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect lists the step outcome fields to verify. Unset fields are not
// checked.
type Expect struct {
	Skipped   *bool   `yaml:"skipped,omitempty"`
	Events    *int    `yaml:"events,omitempty"`
	SubScopes *int    `yaml:"sub_scopes,omitempty"`
	InSync    *bool   `yaml:"in_sync,omitempty"`
	Drifted   []int64 `yaml:"drifted,omitempty"`
	// Error is a substring the step's error must contain.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the final replica or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// ObjectType narrows replica_ids; defaults to ENTITY.
	ObjectType string `yaml:"object_type,omitempty"`

	// IDs are the expected current replica ids (replica_ids).
	IDs []int64 `yaml:"ids,omitempty"`

	// ID and Version name the row for replica_row. A nil Version means
	// the current row.
	ID      int64  `yaml:"id,omitempty"`
	Version *int64 `yaml:"version,omitempty"`

	// Expect holds expected row fields (replica_row). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Scope and InSync are used by in_sync.
	Scope  *filter.Selector `yaml:"scope,omitempty"`
	InSync *bool            `yaml:"in_sync,omitempty"`

	// ChangeType narrows event_count; empty counts all events.
	ChangeType string `yaml:"change_type,omitempty"`
	Count      int    `yaml:"count,omitempty"`
}

// Step actions.
const (
	ActionReconcile = "reconcile"
	ActionCheck     = "check"
	ActionReplicate = "replicate"
	ActionDrift     = "drift"
	ActionTruth     = "truth"
	ActionAdvance   = "advance"
)

// Assertion types.
const (
	AssertReplicaIDs = "replica_ids"
	AssertReplicaRow = "replica_row"
	AssertInSync     = "in_sync"
	AssertEventCount = "event_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.LeaseWindow < 0 || s.PageSize < 0 || s.SplitThreshold < 0 {
		return fmt.Errorf("engine settings must not be negative")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

// deleteType returns the object type of a truth step's deletes.
func (s Step) deleteType() ir.ObjectType {
	if s.ObjectType == "" {
		return ir.ObjectTypeEntity
	}
	return ir.ObjectType(strings.ToUpper(s.ObjectType))
}

func validateStep(step Step) error {
	switch step.Action {
	case ActionReconcile, ActionCheck:
		if step.Scope == nil {
			return fmt.Errorf("scope is required for %s", step.Action)
		}
	case ActionDrift:
		if step.Scope == nil || len(step.Scope.Containers) == 0 {
			return fmt.Errorf("scope with containers is required for drift")
		}
	case ActionReplicate:
		if len(step.Events) == 0 {
			return fmt.Errorf("events are required for replicate")
		}
	case ActionTruth:
		if len(step.Put) == 0 && len(step.Delete) == 0 {
			return fmt.Errorf("put or delete is required for truth")
		}
		if step.ObjectType != "" && len(step.Delete) == 0 {
			return fmt.Errorf("object_type only applies to delete")
		}
	case ActionAdvance:
		if step.Duration <= 0 {
			return fmt.Errorf("positive duration is required for advance")
		}
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertReplicaIDs:
		if a.IDs == nil {
			return fmt.Errorf("ids is required for replica_ids (use [] for none)")
		}
	case AssertReplicaRow:
		if a.ID == 0 {
			return fmt.Errorf("id is required for replica_row")
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("expect is required for replica_row")
		}
	case AssertInSync:
		if a.Scope == nil || a.InSync == nil {
			return fmt.Errorf("scope and in_sync are required for in_sync")
		}
	case AssertEventCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for event_count")
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
