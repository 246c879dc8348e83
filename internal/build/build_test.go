package build

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ezdbgen/internal/report"
	"github.com/roach88/ezdbgen/internal/solution"
	"github.com/roach88/ezdbgen/internal/testutil"
)

func testManifest(t *testing.T, dbs ...string) *solution.Manifest {
	t.Helper()
	m := solution.New(solution.DefaultConfig(), solution.WithIDGenerator(solution.NewSequenceGenerator()))
	for _, db := range dbs {
		_, err := m.Register(solution.Registration{
			Name:     "Contoso.DAL." + db,
			Path:     "DAL/" + db + "/Contoso.DAL." + db + ".csproj",
			Kind:     solution.KindLibrary,
			Database: db,
		})
		require.NoError(t, err)
	}
	return m
}

func TestBuild_CompilesAndPackagesEveryUnit(t *testing.T) {
	m := testManifest(t, "Sales", "HR")
	tc := testutil.NewFakeToolchain()

	outcomes := New(tc).Build(context.Background(), m)

	require.Len(t, outcomes, 4)
	assert.Equal(t, report.StageCompile, outcomes[0].Stage)
	assert.Equal(t, report.StagePackage, outcomes[1].Stage)
	assert.Equal(t, "Contoso.DAL.HR", outcomes[2].Unit)
	for _, o := range outcomes {
		assert.True(t, o.Success)
	}
	assert.Equal(t, []string{"Contoso.DAL.Sales", "Contoso.DAL.HR"}, tc.Compiled())
	assert.Equal(t, []string{"Contoso.DAL.Sales", "Contoso.DAL.HR"}, tc.Packaged())

	u, _ := m.Lookup("Contoso.DAL.Sales")
	assert.Equal(t, []string{"compile: ok", "package: ok"}, u.Notes)
}

func TestBuild_CompileFailureSkipsPackaging(t *testing.T) {
	m := testManifest(t, "Sales", "HR", "Ops")
	tc := testutil.NewFakeToolchain().FailCompile("Contoso.DAL.HR", errors.New("CS0246: type not found"))

	outcomes := New(tc).Build(context.Background(), m)

	require.Len(t, outcomes, 5)
	hr := outcomes[2]
	assert.Equal(t, "Contoso.DAL.HR", hr.Unit)
	assert.Equal(t, report.StageCompile, hr.Stage)
	assert.False(t, hr.Success)
	assert.Contains(t, hr.Diagnostic, "CS0246")

	assert.Equal(t, []string{"Contoso.DAL.Sales", "Contoso.DAL.Ops"}, tc.Packaged())
	assert.Equal(t, "Contoso.DAL.Ops", outcomes[4].Unit)
	assert.True(t, outcomes[4].Success)

	u, _ := m.Lookup("Contoso.DAL.HR")
	assert.Equal(t, []string{"compile: failed: COMPILE: Contoso.DAL.HR: CS0246: type not found"}, u.Notes)
}

func TestBuild_PackageFailureIsRecorded(t *testing.T) {
	m := testManifest(t, "Sales")
	tc := testutil.NewFakeToolchain().FailPackage("Contoso.DAL.Sales", errors.New("NU5017"))

	outcomes := New(tc).Build(context.Background(), m)

	require.Len(t, outcomes, 2)
	assert.True(t, outcomes[0].Success)
	assert.False(t, outcomes[1].Success)
	assert.Contains(t, outcomes[1].Diagnostic, ErrCodePackage)
}

func TestBuild_APIUnitIsNotPackaged(t *testing.T) {
	m := testManifest(t, "Sales")
	_, err := m.RegisterUnit("Contoso.API", solution.KindAPI, "API/Contoso.API.csproj")
	require.NoError(t, err)
	tc := testutil.NewFakeToolchain()

	outcomes := New(tc).Build(context.Background(), m)

	require.Len(t, outcomes, 4)
	assert.Equal(t, []string{"Contoso.DAL.Sales", "Contoso.API"}, tc.Compiled())
	assert.Equal(t, []string{"Contoso.DAL.Sales"}, tc.Packaged())
	assert.True(t, outcomes[3].Success)
	assert.Equal(t, SkippedAPIPackage, outcomes[3].Diagnostic)
}

func TestBuild_OutcomesInManifestOrderWithWorkers(t *testing.T) {
	dbs := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	m := testManifest(t, dbs...)
	tc := testutil.NewFakeToolchain().FailCompile("Contoso.DAL.C", errors.New("x"))

	outcomes := New(tc, WithWorkers(4)).Build(context.Background(), m)

	var order []string
	for _, o := range outcomes {
		if o.Stage == report.StageCompile {
			order = append(order, o.Database)
		}
	}
	assert.Equal(t, dbs, order)
	assert.Len(t, outcomes, 2*len(dbs)-1)
}

func TestBuild_CancelledContext(t *testing.T) {
	m := testManifest(t, "Sales", "HR")
	tc := testutil.NewFakeToolchain()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcomes := New(tc).Build(ctx, m)

	require.Len(t, outcomes, 2)
	for _, o := range outcomes {
		assert.False(t, o.Success)
		assert.Contains(t, o.Diagnostic, "not started")
	}
	assert.Empty(t, tc.Compiled())
}

func TestErrorHelpers(t *testing.T) {
	cause := errors.New("boom")
	ce := &CompileError{Unit: "U", Err: cause}
	pe := &PackageError{Unit: "U", Err: cause}

	assert.True(t, IsCompileError(ce))
	assert.False(t, IsCompileError(pe))
	assert.True(t, IsPackageError(pe))
	assert.ErrorIs(t, ce, cause)
	assert.Equal(t, "COMPILE: U: boom", ce.Error())
	assert.Equal(t, "PACKAGE: U: boom", pe.Error())
}
