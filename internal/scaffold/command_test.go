package scaffold

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ezdbgen/internal/process"
	"github.com/roach88/ezdbgen/internal/project"
)

func salesRequest() Request {
	return Request{
		Database:   "Sales",
		Connection: "Server=db01;Integrated Security=True;Database=Sales;",
		Dialect:    "sqlserver",
		Options:    project.DefaultScaffoldOptions("SalesContext", "Contoso.DAL.Sales.Models"),
	}
}

// writingRunner simulates the engine by writing files below dir.
func writingRunner(t *testing.T, files map[string]string, calls *[][]string) process.Runner {
	t.Helper()
	return process.RunnerFunc(func(_ context.Context, dir, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, append([]string{name}, args...))

		_, err := os.Stat(filepath.Join(dir, project.OptionsFileName))
		require.NoError(t, err, "options bundle must exist before the engine runs")

		for rel, content := range files {
			p := filepath.Join(dir, filepath.FromSlash(rel))
			require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
			require.NoError(t, os.WriteFile(p, []byte(content), 0644))
		}
		return []byte("done"), nil
	})
}

func TestCommandEngine_CollectsArtifacts(t *testing.T) {
	var calls [][]string
	runner := writingRunner(t, map[string]string{
		"Models/SalesContext.cs":     "class SalesContext {}",
		"Models/Order.cs":            "class Order {}",
		"Models/Audit/Entry.cs":      "class Entry {}",
		"Models/readme.txt":          "ignored",
		"obj/project.assets.json.cs": "ignored: outside models",
	}, &calls)

	eng := NewCommandEngine("", WithRunner(runner), WithWorkDir(t.TempDir()), WithArgs("--verbose"))
	res, err := eng.Scaffold(context.Background(), salesRequest())
	require.NoError(t, err)

	assert.Equal(t, Artifact{Path: "SalesContext.cs", Content: "class SalesContext {}"}, res.EntryPoint)
	assert.Equal(t, []Artifact{
		{Path: "Audit/Entry.cs", Content: "class Entry {}"},
		{Path: "Order.cs", Content: "class Order {}"},
	}, res.Artifacts)

	require.Len(t, calls, 1)
	assert.Equal(t, []string{
		"efcpt",
		"Server=db01;Integrated Security=True;Database=Sales;",
		"mssql", "-i", "efcpt-config.json", "--verbose",
	}, calls[0])
}

func TestCommandEngine_MissingEntryPoint(t *testing.T) {
	var calls [][]string
	runner := writingRunner(t, map[string]string{"Models/Order.cs": "class Order {}"}, &calls)

	eng := NewCommandEngine("efcpt", WithRunner(runner), WithWorkDir(t.TempDir()))
	_, err := eng.Scaffold(context.Background(), salesRequest())
	require.Error(t, err)
	assert.True(t, IsEngineError(err))
	assert.Contains(t, err.Error(), "SalesContext.cs")
}

func TestCommandEngine_CommandFails(t *testing.T) {
	boom := errors.New("login failed for user")
	runner := process.RunnerFunc(func(context.Context, string, string, ...string) ([]byte, error) {
		return nil, boom
	})

	eng := NewCommandEngine("efcpt", WithRunner(runner), WithWorkDir(t.TempDir()))
	_, err := eng.Scaffold(context.Background(), salesRequest())
	require.Error(t, err)
	assert.True(t, IsEngineError(err))
	assert.ErrorIs(t, err, boom)
}

func TestCommandEngine_UnsupportedDialect(t *testing.T) {
	req := salesRequest()
	req.Dialect = "oracle"
	_, err := NewCommandEngine("efcpt").Scaffold(context.Background(), req)
	assert.True(t, IsEngineError(err))
}

func TestCommandEngine_RemovesScratchDirectory(t *testing.T) {
	work := t.TempDir()
	var calls [][]string
	runner := writingRunner(t, map[string]string{"Models/SalesContext.cs": "x"}, &calls)

	_, err := NewCommandEngine("efcpt", WithRunner(runner), WithWorkDir(work)).Scaffold(context.Background(), salesRequest())
	require.NoError(t, err)

	entries, err := os.ReadDir(work)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
