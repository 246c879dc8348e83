package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.BeginRun(ctx, createTestRun("run-1", testStart)))
	require.NoError(t, s.Close())

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "iteration %d", i)
		s.Close()
	}

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"runs", "outcomes", "unit_ids"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, RunRunning, run.Status)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/nonexistent/dir/test.db")
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	assert.NoError(t, s.Close())
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, pragma(t, s, tt.name))
		})
	}
}

func TestOpen_WithBusyTimeout(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), WithBusyTimeout(250*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "250", pragma(t, s, "busy_timeout"))
}

func TestMigrations_SetUserVersion(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t, "2", pragma(t, s, "user_version"))
	assert.Equal(t, 2, SchemaVersion())

	for _, index := range []string{"idx_runs_started", "idx_unit_ids_server"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", index,
		).Scan(&name)
		assert.NoError(t, err, "index %s not created", index)
	}
}

func TestMigrations_UpgradeFromV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("DROP INDEX idx_unit_ids_server")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "2", pragma(t, s, "user_version"))
	var name string
	require.NoError(t, s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_unit_ids_server'",
	).Scan(&name))
}

func TestPruneRuns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"run-1", "run-2", "run-3", "run-4"} {
		require.NoError(t, s.BeginRun(ctx, createTestRun(id, testStart.Add(time.Duration(i)*time.Hour))))
		require.NoError(t, s.WriteOutcomes(ctx, id, createTestOutcomes()))
		if id != "run-1" {
			require.NoError(t, s.FinishRun(ctx, id, RunSucceeded, testStart.Add(time.Duration(i)*time.Hour+time.Minute)))
		}
	}

	deleted, err := s.PruneRuns(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted, "run-1 is still running and must survive")

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(runs))
	for _, r := range runs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"run-4", "run-3", "run-1"}, ids)

	outcomes, err := s.ReadOutcomes(ctx, "run-2")
	require.NoError(t, err)
	assert.Empty(t, outcomes, "outcomes of a pruned run are deleted with it")
}

func TestPruneRuns_NegativeKeep(t *testing.T) {
	s := createTestStore(t)

	_, err := s.PruneRuns(context.Background(), -1)
	require.Error(t, err)
}
