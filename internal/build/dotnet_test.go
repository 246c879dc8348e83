package build

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ezdbgen/internal/process"
	"github.com/roach88/ezdbgen/internal/solution"
)

type call struct {
	dir  string
	name string
	args []string
}

func recordingRunner(calls *[]call, err error) process.Runner {
	return process.RunnerFunc(func(_ context.Context, dir, name string, args ...string) ([]byte, error) {
		*calls = append(*calls, call{dir: dir, name: name, args: args})
		return []byte("Build succeeded.\n"), err
	})
}

func TestDotnetToolchain_Commands(t *testing.T) {
	var calls []call
	d := NewDotnetToolchain("/out/src", "/out",
		WithRunner(recordingRunner(&calls, nil)),
		WithDotnet("/usr/bin/dotnet"),
	)
	u := solution.Unit{Name: "Contoso.DAL.Sales", Path: "DAL/Sales/Contoso.DAL.Sales.csproj", Kind: solution.KindLibrary}

	require.NoError(t, d.Compile(context.Background(), u))
	require.NoError(t, d.Package(context.Background(), u))

	project := filepath.Join("/out/src", "DAL", "Sales", "Contoso.DAL.Sales.csproj")
	require.Len(t, calls, 2)
	assert.Equal(t, call{dir: "/out/src", name: "/usr/bin/dotnet", args: []string{"build", project, "-c", "Release"}}, calls[0])
	assert.Equal(t, call{dir: "/out/src", name: "/usr/bin/dotnet", args: []string{"pack", project, "-c", "Release", "-o", filepath.Join("/out", "artifacts")}}, calls[1])
}

func TestDotnetToolchain_Configuration(t *testing.T) {
	var calls []call
	d := NewDotnetToolchain("src", "out", WithRunner(recordingRunner(&calls, nil)), WithConfiguration("Debug"))

	require.NoError(t, d.Compile(context.Background(), solution.Unit{Path: "a.csproj"}))
	assert.Equal(t, "dotnet", calls[0].name)
	assert.Equal(t, "Debug", calls[0].args[3])
}

func TestDotnetToolchain_PropagatesFailure(t *testing.T) {
	var calls []call
	cause := &process.ExitError{Command: "dotnet build", Output: "error CS1002", Err: errors.New("exit status 1")}
	d := NewDotnetToolchain("src", "out", WithRunner(recordingRunner(&calls, cause)))

	err := d.Compile(context.Background(), solution.Unit{Path: "a.csproj"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error CS1002")
}
