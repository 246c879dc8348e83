package solution

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManifest() *Manifest {
	return New(DefaultConfig(), WithIDGenerator(NewSequenceGenerator()))
}

func TestRegisterUnit_AssignsIdentifierAndCleansPath(t *testing.T) {
	m := newTestManifest()

	u, err := m.RegisterUnit("Contoso.DAL.Sales", KindLibrary, `DAL\Sales\Contoso.DAL.Sales.csproj`)
	require.NoError(t, err)

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", u.ID)
	assert.Equal(t, "DAL/Sales/Contoso.DAL.Sales.csproj", u.Path)
	assert.Equal(t, KindLibrary, u.Kind)
	assert.Equal(t, 1, m.Len())
}

func TestRegisterUnit_DuplicateIsCaseInsensitive(t *testing.T) {
	m := newTestManifest()

	_, err := m.RegisterUnit("Contoso.DAL.Sales", KindLibrary, "DAL/Sales/a.csproj")
	require.NoError(t, err)

	_, err = m.RegisterUnit("contoso.dal.SALES", KindLibrary, "DAL/sales/b.csproj")
	require.Error(t, err)
	assert.True(t, IsDuplicateUnitError(err))

	var de *DuplicateUnitError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Contoso.DAL.Sales", de.Existing)

	// The first registration is untouched.
	assert.Equal(t, 1, m.Len())
	u, ok := m.Lookup("CONTOSO.DAL.SALES")
	require.True(t, ok)
	assert.Equal(t, "DAL/Sales/a.csproj", u.Path)
}

func TestRegisterUnit_RejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		reg  Registration
	}{
		{"empty name", Registration{Name: " ", Path: "a.csproj", Kind: KindLibrary}},
		{"quote in name", Registration{Name: `a"b`, Path: "a.csproj", Kind: KindLibrary}},
		{"empty path", Registration{Name: "a", Kind: KindLibrary}},
		{"absolute path", Registration{Name: "a", Path: "/tmp/a.csproj", Kind: KindLibrary}},
		{"drive path", Registration{Name: "a", Path: `C:\a.csproj`, Kind: KindLibrary}},
		{"escaping path", Registration{Name: "a", Path: "../a.csproj", Kind: KindLibrary}},
		{"unknown kind", Registration{Name: "a", Path: "a.csproj"}},
		{"bad id", Registration{ID: "not-a-guid", Name: "a", Path: "a.csproj", Kind: KindLibrary}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManifest()
			_, err := m.Register(tt.reg)
			require.Error(t, err)
			assert.Equal(t, 0, m.Len())
		})
	}
}

func TestRegister_KeepsSuppliedIdentifier(t *testing.T) {
	m := newTestManifest()

	u, err := m.Register(Registration{
		ID:   "{3f2504e0-4f89-41d3-9a0c-0305e82c3301}",
		Name: "Contoso.DAL.Sales",
		Path: "DAL/Sales/Contoso.DAL.Sales.csproj",
		Kind: KindLibrary,
	})
	require.NoError(t, err)
	assert.Equal(t, "3F2504E0-4F89-41D3-9A0C-0305E82C3301", u.ID)

	_, err = m.Register(Registration{
		ID:   "3F2504E0-4F89-41D3-9A0C-0305E82C3301",
		Name: "Contoso.DAL.HR",
		Path: "DAL/HR/Contoso.DAL.HR.csproj",
		Kind: KindLibrary,
	})
	require.Error(t, err)
}

func TestRegisterUnit_ConcurrentAttemptsYieldOneUnit(t *testing.T) {
	m := New(DefaultConfig())

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := "Contoso.DAL.Sales"
			if i%2 == 1 {
				name = "CONTOSO.DAL.SALES"
			}
			_, errs[i] = m.RegisterUnit(name, KindLibrary, fmt.Sprintf("DAL/Sales/%d.csproj", i))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, IsDuplicateUnitError(err))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, m.Len())
}

func TestUnits_ReturnsSnapshot(t *testing.T) {
	m := newTestManifest()
	_, err := m.RegisterUnit("A", KindLibrary, "DAL/A/A.csproj")
	require.NoError(t, err)

	units := m.Units()
	units[0].Name = "mutated"
	units[0].Notes = append(units[0].Notes, "x")

	u, ok := m.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "A", u.Name)
	assert.Empty(t, u.Notes)
}

func TestAnnotate_AppendsNotes(t *testing.T) {
	m := newTestManifest()
	_, err := m.RegisterUnit("A", KindLibrary, "DAL/A/A.csproj")
	require.NoError(t, err)

	require.NoError(t, m.Annotate("a", "compile: ok"))
	require.NoError(t, m.Annotate("A", "package: ok"))
	assert.Error(t, m.Annotate("missing", "x"))

	u, _ := m.Lookup("A")
	assert.Equal(t, []string{"compile: ok", "package: ok"}, u.Notes)
}

func TestUnitsOfKind(t *testing.T) {
	m := newTestManifest()
	_, err := m.RegisterUnit("A", KindLibrary, "DAL/A/A.csproj")
	require.NoError(t, err)
	_, err = m.RegisterUnit("Api", KindAPI, "API/Api.csproj")
	require.NoError(t, err)
	_, err = m.RegisterUnit("B", KindLibrary, "DAL/B/B.csproj")
	require.NoError(t, err)

	libs := m.UnitsOfKind(KindLibrary)
	require.Len(t, libs, 2)
	assert.Equal(t, "A", libs[0].Name)
	assert.Equal(t, "B", libs[1].Name)
	assert.Len(t, m.UnitsOfKind(KindAPI), 1)
}

func TestKind(t *testing.T) {
	assert.Equal(t, "DAL", KindLibrary.Token())
	assert.Equal(t, "API", KindAPI.Token())

	k, err := ParseKind("API")
	require.NoError(t, err)
	assert.Equal(t, KindAPI, k)

	k, err = ParseKind(KindLibrary.String())
	require.NoError(t, err)
	assert.Equal(t, KindLibrary, k)

	_, err = ParseKind("console")
	assert.Error(t, err)
}
