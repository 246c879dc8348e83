package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/ezdbgen/internal/report"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testStart = time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)

// createTestRun creates a run with minimal required fields.
func createTestRun(id string, started time.Time) Run {
	return Run{
		ID:      id,
		Server:  "db1",
		Dialect: "sqlserver",
		Masks:   []string{"Sales*", "-*.audit.*"},
		Started: started,
	}
}

func createTestOutcomes() []report.Outcome {
	return []report.Outcome{
		report.Succeeded("Contoso.DAL.Sales", "Sales", report.StageGeneration),
		report.Failed("Contoso.DAL.HR", "HR", report.StageGeneration, errTest("login failed")),
		{Unit: "Contoso.DAL.Sales", Database: "Sales", Stage: report.StageCompile, Success: true, Duration: 1500 * time.Millisecond},
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

// pragma reads a pragma value as text.
func pragma(t *testing.T, s *Store, name string) string {
	t.Helper()
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		t.Fatalf("query %s: %v", name, err)
	}
	return value
}
