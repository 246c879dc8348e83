package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ezdbgen/internal/inventory"
	"github.com/roach88/ezdbgen/internal/logging"
	"github.com/roach88/ezdbgen/internal/solution"
	"github.com/roach88/ezdbgen/internal/store"
	"github.com/roach88/ezdbgen/internal/testutil"
)

// generateFixture runs the generate command in a scratch working directory
// against fake collaborators.
type generateFixture struct {
	dir       string
	inventory *testutil.FakeInventory
	engine    *testutil.FakeEngine
	toolchain *testutil.FakeToolchain
	format    string
}

func newGenerateFixture(t *testing.T, databases ...string) *generateFixture {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return &generateFixture{
		dir:       dir,
		inventory: testutil.NewFakeInventory(databases...),
		engine:    testutil.NewFakeEngine(),
		toolchain: testutil.NewFakeToolchain(),
		format:    "text",
	}
}

func (f *generateFixture) run(args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	opts := &GenerateOptions{
		RootOptions: &RootOptions{Format: f.format},
		Inventory:   f.inventory,
		Scaffolder:  f.engine,
		Toolchain:   f.toolchain,
		RunIDs:      testutil.NewFixedIDGenerator("run-1"),
	}
	cmd := newGenerateCommand(opts)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func (f *generateFixture) openHistory(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(f.dir, "out", "ezdbgen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestGenerate_Succeeds(t *testing.T) {
	f := newGenerateFixture(t, "master", "Sales", "HR")

	out, _, err := f.run("-c", "db01", "-m", "Sales", "-o", "out", "-p", "Contoso")
	require.NoError(t, err)

	assert.Contains(t, out, "Contoso.DAL.Sales")
	assert.Contains(t, out, "generation 1 ok/0 failed")
	assert.NotContains(t, out, "Contoso.DAL.HR")
	assert.Equal(t, []string{"Contoso.DAL.Sales"}, f.toolchain.Compiled())
	assert.Equal(t, []string{"Contoso.DAL.Sales"}, f.toolchain.Packaged())

	m, err := solution.Load(filepath.Join(f.dir, "out", "src", "db01.sln"))
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, "DAL/Sales/Contoso.DAL.Sales.csproj", m.Units()[0].Path)

	run, err := f.openHistory(t).ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, store.RunSucceeded, run.Status)
	assert.Equal(t, "db01", run.Server)
	assert.Equal(t, []string{"Sales"}, run.Masks)

	logs, err := filepath.Glob(filepath.Join(f.dir, "out", "logs", logging.FilePrefix+"*.txt"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestGenerate_UnitFailureExitsOne(t *testing.T) {
	f := newGenerateFixture(t, "Sales", "HR")
	f.engine.Fail("HR", errors.New("login failed for user"))

	out, _, err := f.run("-c", "db01", "-o", "out", "--no-log-file")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeUnitFailures)
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "login failed for user")
	assert.Equal(t, []string{"Noctusoft.EzDbEF.DAL.Sales"}, f.toolchain.Compiled())
	assert.NoDirExists(t, filepath.Join(f.dir, "out", "logs"))

	run, err := f.openHistory(t).ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, store.RunFailed, run.Status)
}

func TestGenerate_UnavailableHistoryDoesNotStopRun(t *testing.T) {
	f := newGenerateFixture(t, "Sales")
	// A regular file where the history directory should be.
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "blocker"), []byte("x"), 0644))

	out, stderr, err := f.run("-c", "db01", "-o", "out", "--no-log-file", "--history", filepath.Join("blocker", "h.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "Noctusoft.EzDbEF.DAL.Sales")
	assert.Contains(t, stderr, "history unavailable")
	assert.Equal(t, []string{"Noctusoft.EzDbEF.DAL.Sales"}, f.toolchain.Compiled())
}

func TestGenerate_MalformedMaskExitsTwo(t *testing.T) {
	f := newGenerateFixture(t, "Sales")

	out, _, err := f.run("-c", "db01", "-m", "a.b.c.d", "-o", "out", "--no-log-file")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
	assert.Empty(t, f.inventory.Calls())
	assert.Empty(t, f.engine.Requests())

	run, err := f.openHistory(t).ReadRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, store.RunAborted, run.Status)
}

func TestGenerate_UnreachableServerExitsTwo(t *testing.T) {
	f := newGenerateFixture(t, "Sales")
	f.inventory.FailPing(&inventory.ConnectivityTimeoutError{Target: "db01", Timeout: 5 * time.Second})

	out, _, err := f.run("-c", "db01", "-o", "out", "--no-log-file")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
	assert.Empty(t, f.engine.Requests())
}

func TestGenerate_MissingConnectionExitsTwo(t *testing.T) {
	f := newGenerateFixture(t, "Sales")

	out, _, err := f.run("-o", "out", "--no-log-file")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
	assert.Contains(t, out, "connection string is required")
	assert.Empty(t, f.inventory.Calls())
}

func TestGenerate_NoBuild(t *testing.T) {
	f := newGenerateFixture(t, "Sales")

	_, _, err := f.run("-c", "db01", "-o", "out", "--no-build", "--no-log-file")
	require.NoError(t, err)
	assert.Empty(t, f.toolchain.Compiled())
	assert.FileExists(t, filepath.Join(f.dir, "out", "src", "db01.sln"))
}

func TestGenerate_ConfigFileWithFlagOverride(t *testing.T) {
	f := newGenerateFixture(t, "Sales", "HR", "Ops")
	cfg := `connection: "Server=db02\\SQLEXPRESS;Integrated Security=True;"
masks: ["Sales", "HR"]
output: out
prefix: Fabrikam
log-file: false
build: false
`
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "ezdbgen.yaml"), []byte(cfg), 0644))

	_, _, err := f.run("-p", "Contoso")
	require.NoError(t, err)

	m, err := solution.Load(filepath.Join(f.dir, "out", "src", "db02_SQLEXPRESS.sln"))
	require.NoError(t, err)
	units := m.Units()
	require.Len(t, units, 2)
	assert.Equal(t, "Contoso.DAL.Sales", units[0].Name)
	assert.Equal(t, "Contoso.DAL.HR", units[1].Name)
	assert.Empty(t, f.toolchain.Compiled())
}

func TestGenerate_InvalidConfigFileExitsTwo(t *testing.T) {
	f := newGenerateFixture(t, "Sales")
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "ezdbgen.yaml"), []byte("workers: 0\n"), 0644))

	out, _, err := f.run("-c", "db01")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestGenerate_JSONReport(t *testing.T) {
	f := newGenerateFixture(t, "Sales")
	f.format = "json"

	out, _, err := f.run("-c", "db01", "-o", "out", "--no-log-file", "--generate-api")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			RunID    string `json:"run_id"`
			Server   string `json:"server"`
			Outcomes []struct {
				Unit    string `json:"unit"`
				Stage   string `json:"stage"`
				Success bool   `json:"success"`
			} `json:"outcomes"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-1", resp.Data.RunID)
	assert.Equal(t, "db01", resp.Data.Server)
	require.NotEmpty(t, resp.Data.Outcomes)
	for _, o := range resp.Data.Outcomes {
		assert.True(t, o.Success, "%s %s", o.Unit, o.Stage)
	}
	assert.Contains(t, f.toolchain.Compiled(), "Noctusoft.EzDbEF.API")
}

func TestGenerate_NoSelection(t *testing.T) {
	f := newGenerateFixture(t, "master", "tempdb")

	out, _, err := f.run("-c", "db01", "-o", "out", "--no-log-file")
	require.NoError(t, err)
	assert.Contains(t, out, "No database selected.")
	assert.Empty(t, f.engine.Requests())
}
