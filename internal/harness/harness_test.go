package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ezdbgen/internal/report"
	"github.com/roach88/ezdbgen/internal/solution"
	"github.com/roach88/ezdbgen/internal/store"
)

func boolPtr(b bool) *bool { return &b }

func TestRun_NilScenario(t *testing.T) {
	_, err := Run(context.Background(), nil, t.TempDir())
	require.Error(t, err)
}

func TestRun_UnreachableServerAborts(t *testing.T) {
	scenario := &Scenario{
		Name:        "unreachable",
		Description: "ping fails",
		Server:      Server{Databases: []string{"Sales"}, Unreachable: "connection refused"},
		Assertions: []Assertion{
			{Type: AssertAborted, Contains: "connection refused"},
			{Type: AssertStatus, Status: string(store.RunAborted)},
		},
	}

	result, err := Run(context.Background(), scenario, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Outcomes)
	assert.Empty(t, result.Units)
}

func TestRun_ParallelWorkersKeepManifestOrder(t *testing.T) {
	scenario := &Scenario{
		Name:        "parallel",
		Description: "four workers",
		Server:      Server{Databases: []string{"D", "C", "B", "A"}},
		Options:     RunOptions{Workers: 4},
		Assertions: []Assertion{
			{Type: AssertUnitOrder, Units: []string{"Contoso.DAL.D", "Contoso.DAL.C", "Contoso.DAL.B", "Contoso.DAL.A"}},
			{Type: AssertOutcomeCount, Count: 12},
		},
	}

	result, err := Run(context.Background(), scenario, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_PackageFailure(t *testing.T) {
	scenario := &Scenario{
		Name:        "package_failure",
		Description: "a package failure fails the run",
		Server:      Server{Name: "db02", Databases: []string{"Sales"}},
		Options:     RunOptions{Prefix: "Fabrikam"},
		Failures:    Failures{Package: map[string]string{"Fabrikam.DAL.Sales": "nuget pack failed"}},
		Assertions: []Assertion{
			{Type: AssertOutcome, Unit: "Fabrikam.DAL.Sales", Stage: "compile", Success: boolPtr(true)},
			{Type: AssertOutcome, Unit: "Fabrikam.DAL.Sales", Stage: "package", Success: boolPtr(false)},
			{Type: AssertStatus, Status: string(store.RunFailed)},
		},
	}

	result, err := Run(context.Background(), scenario, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Units, 1)
	assert.Equal(t, solution.KindLibrary, result.Units[0].Kind)
	assert.Equal(t, "Sales", result.Units[0].Database)
	assert.Contains(t, result.Outcomes[2].Diagnostic, "nuget pack failed")
}

func TestRun_ApiSkippedWhenEveryDatabaseFails(t *testing.T) {
	scenario := &Scenario{
		Name:        "api_without_libraries",
		Description: "no library means no API unit",
		Server:      Server{Databases: []string{"Sales"}},
		Options:     RunOptions{GenerateAPI: true},
		Failures:    Failures{Generation: map[string]string{"Sales": "timeout"}},
		Assertions: []Assertion{
			{Type: AssertUnitOrder, Units: []string{}},
			{Type: AssertOutcomeCount, Count: 1},
			{Type: AssertStatus, Status: string(store.RunFailed)},
		},
	}

	result, err := Run(context.Background(), scenario, t.TempDir())
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_FailingAssertionsAreReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "wrong_expectations",
		Description: "every assertion is wrong",
		Server:      Server{Databases: []string{"Sales"}},
		Assertions: []Assertion{
			{Type: AssertSelected, Databases: []string{"HR"}},
			{Type: AssertOutcome, Unit: "Contoso.DAL.Sales", Stage: string(report.StageCompile), Success: boolPtr(false)},
			{Type: AssertAborted},
		},
	}

	result, err := Run(context.Background(), scenario, t.TempDir())
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Expected: [HR]")
	assert.Contains(t, result.Errors[1], "Contoso.DAL.Sales compile failed")
	assert.Contains(t, result.Errors[2], "run completed")
}
