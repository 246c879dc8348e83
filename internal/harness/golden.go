package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders the stable parts of a result as plain text: the
// selection, the registered units without their IDs, and the outcomes
// without durations.
func Snapshot(name string, r *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)
	fmt.Fprintf(&b, "status: %s\n", r.Status)
	if r.Aborted != "" {
		fmt.Fprintf(&b, "aborted: %s\n", r.Aborted)
	}

	b.WriteString("selected:\n")
	for _, db := range r.Selected {
		fmt.Fprintf(&b, "  %s\n", db)
	}

	b.WriteString("units:\n")
	for _, u := range r.Units {
		fmt.Fprintf(&b, "  %s %s %s\n", u.Kind, u.Name, u.Path)
	}

	b.WriteString("outcomes:\n")
	for _, o := range r.Outcomes {
		fmt.Fprintf(&b, "  %-10s %-6s %s", o.Stage, okText(o.Success), o.Unit)
		if o.Diagnostic != "" {
			fmt.Fprintf(&b, ": %s", firstLine(o.Diagnostic))
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

// RunWithGolden executes a scenario in a fresh temporary directory and
// compares its snapshot against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, t.TempDir())
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result against the named golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
