package harness

import (
	"github.com/roach88/ezdbgen/internal/report"
	"github.com/roach88/ezdbgen/internal/solution"
	"github.com/roach88/ezdbgen/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Selected lists the databases the plan kept, in inventory order.
	Selected []string `json:"selected"`

	// Outcomes are the run's outcomes in report order.
	Outcomes []report.Outcome `json:"outcomes"`

	// Units are the registered units in manifest order.
	Units []solution.Unit `json:"units"`

	// Status is the run status recorded in history.
	Status store.RunStatus `json:"status"`

	// Aborted holds the abort error message; empty when the run completed.
	Aborted string `json:"aborted,omitempty"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
