package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/ezdbgen/internal/report"
	"github.com/roach88/ezdbgen/internal/store"
)

// AssertionError is returned when an assertion fails. It carries the run's
// outcomes to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Outcomes []report.Outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Outcomes) > 0 {
		fmt.Fprintf(&buf, "\nOutcomes:\n")
		for i, o := range e.Outcomes {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", i+1, o.Unit, o.Stage, okText(o.Success))
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and records each
// failure with result.AddError.
func EvaluateAssertions(result *Result, assertions []Assertion) {
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			result.AddError(err.Error())
		}
	}
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertOutcome:
		return assertOutcome(r, a)
	case AssertOutcomeCount:
		return assertOutcomeCount(r, a)
	case AssertUnitOrder:
		return assertUnitOrder(r, a)
	case AssertSelected:
		return assertSelected(r, a)
	case AssertStatus:
		return assertStatus(r, a)
	case AssertAborted:
		return assertAborted(r, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertOutcome checks that unit has an outcome for the stage and, when
// Success is set, that its success matches.
func assertOutcome(r *Result, a Assertion) error {
	for _, o := range r.Outcomes {
		if o.Unit != a.Unit || string(o.Stage) != a.Stage {
			continue
		}
		if a.Success != nil && o.Success != *a.Success {
			return &AssertionError{
				Type:     AssertOutcome,
				Expected: fmt.Sprintf("%s %s %s", a.Unit, a.Stage, okText(*a.Success)),
				Actual:   fmt.Sprintf("%s %s %s (%s)", o.Unit, o.Stage, okText(o.Success), o.Diagnostic),
				Outcomes: r.Outcomes,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertOutcome,
		Expected: fmt.Sprintf("an outcome for %s at %s", a.Unit, a.Stage),
		Actual:   "no such outcome",
		Outcomes: r.Outcomes,
	}
}

func assertOutcomeCount(r *Result, a Assertion) error {
	n := 0
	for _, o := range r.Outcomes {
		if a.Stage == "" || string(o.Stage) == a.Stage {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	stage := a.Stage
	if stage == "" {
		stage = "all stages"
	}
	return &AssertionError{
		Type:     AssertOutcomeCount,
		Expected: fmt.Sprintf("%d outcome(s) for %s", a.Count, stage),
		Actual:   fmt.Sprintf("%d outcome(s)", n),
		Outcomes: r.Outcomes,
	}
}

func assertUnitOrder(r *Result, a Assertion) error {
	names := make([]string, 0, len(r.Units))
	for _, u := range r.Units {
		names = append(names, u.Name)
	}
	if slices.Equal(names, a.Units) {
		return nil
	}
	return &AssertionError{
		Type:     AssertUnitOrder,
		Expected: formatList(a.Units),
		Actual:   formatList(names),
	}
}

func assertSelected(r *Result, a Assertion) error {
	if slices.Equal(r.Selected, a.Databases) {
		return nil
	}
	return &AssertionError{
		Type:     AssertSelected,
		Expected: formatList(a.Databases),
		Actual:   formatList(r.Selected),
	}
}

func assertStatus(r *Result, a Assertion) error {
	if r.Status == store.RunStatus(a.Status) {
		return nil
	}
	return &AssertionError{
		Type:     AssertStatus,
		Expected: a.Status,
		Actual:   string(r.Status),
		Outcomes: r.Outcomes,
	}
}

func assertAborted(r *Result, a Assertion) error {
	if r.Aborted != "" && strings.Contains(r.Aborted, a.Contains) {
		return nil
	}
	actual := r.Aborted
	if actual == "" {
		actual = "run completed"
	}
	return &AssertionError{
		Type:     AssertAborted,
		Expected: fmt.Sprintf("abort containing %q", a.Contains),
		Actual:   actual,
	}
}

func okText(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

func formatList(items []string) string {
	return "[" + strings.Join(items, ", ") + "]"
}
