package harness

import "github.com/roach88/replicon/internal/ir"

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	Seq       int64            `json:"seq"`
	Action    string           `json:"action"`
	Scope     string           `json:"scope,omitempty"`
	Skipped   bool             `json:"skipped,omitempty"`
	SubScopes int              `json:"sub_scopes,omitempty"`
	Events    []ir.ChangeEvent `json:"events,omitempty"`
	Handled   int              `json:"handled,omitempty"`
	InSync    *bool            `json:"in_sync,omitempty"`
	Drifted   []int64          `json:"drifted,omitempty"`
	Applied   int              `json:"applied,omitempty"`
	Error     string           `json:"error,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace has one entry per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes each failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step outcome, numbering it.
func (r *Result) AddTrace(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}

// Events returns every change event recorded in the trace, in order.
func (r *Result) Events() []ir.ChangeEvent {
	var out []ir.ChangeEvent
	for _, ev := range r.Trace {
		out = append(out, ev.Events...)
	}
	return out
}
