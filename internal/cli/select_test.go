package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ezdbgen/internal/mask"
	"github.com/roach88/ezdbgen/internal/testutil"
)

func runSelectCommand(t *testing.T, inv *testutil.FakeInventory, format string, verbose bool, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	buf := &bytes.Buffer{}
	opts := &SelectOptions{
		RootOptions: &RootOptions{Format: format, Verbose: verbose},
		Inventory:   inv,
	}
	cmd := newSelectCommand(opts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return buf.String(), err
}

func TestSelect_Text(t *testing.T) {
	inv := testutil.NewFakeInventory("master", "SalesEU", "SalesArchive", "HR")

	out, err := runSelectCommand(t, inv, "text", false, "-c", "db01", "-m", "Sales*,-SalesArchive")
	require.NoError(t, err)

	assert.Contains(t, out, "Selected on db01:\n  SalesEU\n")
	assert.Contains(t, out, "Rejected:")
	assert.Contains(t, out, "SalesArchive")
	assert.Contains(t, out, string(mask.RejectExcluded))
	assert.Contains(t, out, "-SalesArchive")
	assert.Contains(t, out, string(mask.RejectReserved))
	assert.Contains(t, out, string(mask.RejectUnmatched))
}

func TestSelect_MasksWithSpacesAfterCommas(t *testing.T) {
	inv := testutil.NewFakeInventory("Sales", "HR", "Ops")

	out, err := runSelectCommand(t, inv, "json", false, "-c", "db01", "-m", "Sales.*.*, HR.*.*,")
	require.NoError(t, err)

	var resp struct {
		Data SelectResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{"Sales", "HR"}, resp.Data.Selected)
}

func TestTrimMasks(t *testing.T) {
	assert.Equal(t, []string{"Sales.*.*", "-HR"}, trimMasks([]string{" Sales.*.*", "", "  -HR ", " "}))
}

func TestSelect_JSONWithNarrowedTables(t *testing.T) {
	inv := testutil.NewFakeInventory("Sales", "HR").
		WithTables("Sales",
			mask.Candidate{Database: "Sales", Schema: "dbo", Table: "customer"},
			mask.Candidate{Database: "Sales", Schema: "dbo", Table: "customerAddress"},
			mask.Candidate{Database: "Sales", Schema: "dbo", Table: "orders"},
		)

	out, err := runSelectCommand(t, inv, "json", false, "-c", "db01", "-m", "Sales.dbo.customer*")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   SelectResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "db01", resp.Data.Server)
	assert.Equal(t, []string{"Sales"}, resp.Data.Selected)
	assert.Equal(t, []string{"[dbo].[customer]", "[dbo].[customerAddress]"}, resp.Data.Objects["Sales"])
	require.Len(t, resp.Data.Rejected, 1)
	assert.Equal(t, SelectRejection{Database: "HR", Reason: string(mask.RejectUnmatched)}, resp.Data.Rejected[0])
}

func TestSelect_VerboseListsTables(t *testing.T) {
	inv := testutil.NewFakeInventory("Sales").
		WithTables("Sales",
			mask.Candidate{Database: "Sales", Schema: "dbo", Table: "orders"},
			mask.Candidate{Database: "Sales", Schema: "dbo", Table: "customer"},
		)

	out, err := runSelectCommand(t, inv, "text", true, "-c", "db01", "-m", "Sales.dbo.*")
	require.NoError(t, err)
	assert.Contains(t, out, "  Sales (2 tables)\n    [dbo].[customer]\n    [dbo].[orders]\n")
}

func TestSelect_NothingSelected(t *testing.T) {
	inv := testutil.NewFakeInventory("Sales")

	out, err := runSelectCommand(t, inv, "text", false, "-c", "db01", "-m", "-Sales")
	require.NoError(t, err)
	assert.Contains(t, out, "No database selected on db01.")
}

func TestSelect_MalformedMask(t *testing.T) {
	inv := testutil.NewFakeInventory("Sales")

	out, err := runSelectCommand(t, inv, "text", false, "-c", "db01", "-m", "a..b")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
	assert.Empty(t, inv.Calls())
}

func TestSelect_WritesNothing(t *testing.T) {
	inv := testutil.NewFakeInventory("Sales")

	_, err := runSelectCommand(t, inv, "text", false, "-c", "db01")
	require.NoError(t, err)
	assert.NoDirExists(t, "output")
}
