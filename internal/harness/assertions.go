package harness

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/replicon/internal/ir"
)

// AssertionError describes a failed assertion.
type AssertionError struct {
	Index    int
	Type     string
	Message  string
	Expected any
	Actual   any
}

func (e *AssertionError) Error() string {
	msg := fmt.Sprintf("assertion %d (%s): %s", e.Index, e.Type, e.Message)
	if e.Expected != nil || e.Actual != nil {
		msg += fmt.Sprintf("\n  expected: %v\n  actual:   %v", e.Expected, e.Actual)
	}
	return msg
}

// evaluate checks every assertion and returns a message per failure.
func (h *Harness) evaluate(ctx context.Context, result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := h.assert(ctx, result, a); err != nil {
			err.Index = i
			err.Type = a.Type
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func (h *Harness) assert(ctx context.Context, result *Result, a Assertion) *AssertionError {
	switch a.Type {
	case AssertReplicaIDs:
		return h.assertReplicaIDs(ctx, a)
	case AssertReplicaRow:
		return h.assertReplicaRow(ctx, a)
	case AssertInSync:
		return h.assertInSync(ctx, a)
	case AssertEventCount:
		return assertEventCount(result, a)
	default:
		return &AssertionError{Message: "unknown assertion type"}
	}
}

func (h *Harness) assertReplicaIDs(ctx context.Context, a Assertion) *AssertionError {
	objectType := ir.ObjectTypeEntity
	if a.ObjectType != "" {
		objectType = ir.ObjectType(strings.ToUpper(a.ObjectType))
	}
	actual, err := h.replica.Replica().IDs(ctx, objectType)
	if err != nil {
		return &AssertionError{Message: fmt.Sprintf("query replica: %v", err)}
	}

	want := slices.Clone(a.IDs)
	slices.Sort(want)
	if !slices.Equal(want, actual) {
		return &AssertionError{Message: "current replica ids differ", Expected: want, Actual: actual}
	}
	return nil
}

func (h *Harness) assertReplicaRow(ctx context.Context, a Assertion) *AssertionError {
	id := ir.ObjectIdentity{Type: ir.ObjectTypeEntity, ID: a.ID, Version: a.Version}
	row, _, err := h.replica.Replica().Get(ctx, id)
	if err != nil {
		return &AssertionError{Message: fmt.Sprintf("replica row %s: %v", id, err)}
	}

	actual := rowFields(row)
	for field, want := range a.Expect {
		got, ok := actual[field]
		if !ok {
			return &AssertionError{Message: fmt.Sprintf("unknown row field %q", field)}
		}
		if !valuesEqual(got, want) {
			return &AssertionError{
				Message:  fmt.Sprintf("field %q of %s", field, id),
				Expected: want,
				Actual:   got,
			}
		}
	}
	return nil
}

func (h *Harness) assertInSync(ctx context.Context, a Assertion) *AssertionError {
	f, err := a.Scope.Build(h.splitThreshold)
	if err != nil {
		return &AssertionError{Message: fmt.Sprintf("scope: %v", err)}
	}
	inSync, err := h.svc.IsSynchronized(ctx, f)
	if err != nil {
		return &AssertionError{Message: fmt.Sprintf("is synchronized: %v", err)}
	}
	if inSync != *a.InSync {
		return &AssertionError{Message: "synchronization state differs", Expected: *a.InSync, Actual: inSync}
	}
	return nil
}

func assertEventCount(result *Result, a Assertion) *AssertionError {
	count := 0
	for _, ev := range result.Events() {
		if a.ChangeType == "" || string(ev.ChangeType) == a.ChangeType {
			count++
		}
	}
	if count != a.Count {
		what := "events"
		if a.ChangeType != "" {
			what = a.ChangeType + " events"
		}
		return &AssertionError{Message: "number of " + what, Expected: a.Count, Actual: count}
	}
	return nil
}

// rowFields exposes the row fields a replica_row assertion can name.
func rowFields(row ir.ObjectRow) map[string]any {
	fields := map[string]any{
		"version":    row.Version,
		"is_current": row.IsCurrent,
		"sub_type":   string(row.SubType),
		"etag":       row.Etag,
		"name":       row.Name,
		"parent_id":  nil,
	}
	if row.ParentID != nil {
		fields["parent_id"] = *row.ParentID
	}
	return fields
}

// valuesEqual compares a store value with a YAML-decoded one. YAML yields
// int for integers, so numbers are compared through their decimal form.
func valuesEqual(actual, expected any) bool {
	if actual == nil || expected == nil {
		return actual == nil && expected == nil
	}
	return fmt.Sprint(actual) == fmt.Sprint(expected)
}
