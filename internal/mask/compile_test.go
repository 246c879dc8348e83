package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_FillsMissingComponents(t *testing.T) {
	tests := []struct {
		raw  string
		want Pattern
	}{
		{"Sales", Pattern{Database: "Sales", Schema: "*", Table: "*"}},
		{"Sales.dbo", Pattern{Database: "Sales", Schema: "dbo", Table: "*"}},
		{"Sales.dbo.Orders", Pattern{Database: "Sales", Schema: "dbo", Table: "Orders"}},
		{"-Sales.dbo.system*", Pattern{Database: "Sales", Schema: "dbo", Table: "system*", Excluded: true}},
		{"-HR", Pattern{Database: "HR", Schema: "*", Table: "*", Excluded: true}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			m, err := Compile(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.Pattern)
			assert.Equal(t, tt.raw, m.Raw())
		})
	}
}

func TestCompile_TooManyParts(t *testing.T) {
	for _, raw := range []string{"a.b.c.d", "-a.b.c.d", "a.b.c.d.e.f", "*.*.*.*"} {
		t.Run(raw, func(t *testing.T) {
			m, err := Compile(raw)
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, IsMaskFormatError(err))

			var me *MaskFormatError
			require.ErrorAs(t, err, &me)
			assert.Greater(t, me.Parts, 3)
			assert.Contains(t, err.Error(), raw)
		})
	}
}

func TestCompile_EmptyComponent(t *testing.T) {
	for _, raw := range []string{"", "-", "Sales..Orders", "Sales.", ".dbo"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Compile(raw)
			require.Error(t, err)
			assert.True(t, IsMaskFormatError(err))
		})
	}
}

func TestCompileAll_StopsAtFirstError(t *testing.T) {
	masks, err := CompileAll([]string{"Sales", "a.b.c.d", "HR"})
	require.Error(t, err)
	assert.Nil(t, masks)

	masks, err = CompileAll([]string{"Sales", "-HR"})
	require.NoError(t, err)
	require.Len(t, masks, 2)
	assert.True(t, masks[1].Excluded)
}

func TestWildcardSemantics(t *testing.T) {
	tests := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"customer*", "customer", true},
		{"customer*", "customers", true},
		{"customer*", "Customer2", true},
		{"customer*", "CUSTOMERS", true},
		{"customer*", "custome", false},
		{"customer*", "acustomer", false},
		{"ab?d", "abcd", true},
		{"ab?d", "ABCD", true},
		{"ab?d", "abd", false},
		{"ab?d", "abcde", false},
		{"*", "", true},
		{"*", "anything", true},
		{"a.b", "a.b", true},
		{"a+b", "a+b", true},
		{"a+b", "aab", false},
		{"[x]", "[x]", true},
		{"[x]", "x", false},
		{"Sales", "sales", true},
		{"Sales", "SalesArchive", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.input, func(t *testing.T) {
			re := wildcardRegexp(tt.pattern)
			assert.Equal(t, tt.want, re.MatchString(tt.input))
		})
	}
}

func TestMatches_AllThreeComponents(t *testing.T) {
	m, err := Compile("Sales.dbo.customer*")
	require.NoError(t, err)

	assert.True(t, m.Matches(Candidate{"Sales", "dbo", "Customers"}))
	assert.False(t, m.Matches(Candidate{"Sales", "audit", "Customers"}))
	assert.False(t, m.Matches(Candidate{"HR", "dbo", "Customers"}))
	assert.False(t, m.Matches(Candidate{"Sales", "dbo", "Orders"}))
}

func TestMatches_WildcardCandidate(t *testing.T) {
	include, err := Compile("Sales.dbo.Orders")
	require.NoError(t, err)
	assert.True(t, include.Matches(DatabaseCandidate("Sales")))
	assert.False(t, include.Matches(DatabaseCandidate("HR")))

	partialExclude, err := Compile("-Sales.dbo.system*")
	require.NoError(t, err)
	assert.False(t, partialExclude.Matches(DatabaseCandidate("Sales")))

	wholeExclude, err := Compile("-Sales")
	require.NoError(t, err)
	assert.True(t, wholeExclude.Matches(DatabaseCandidate("Sales")))
	assert.True(t, wholeExclude.Matches(DatabaseCandidate("sales")))
}

func TestPattern_String(t *testing.T) {
	m, err := Compile("-Sales")
	require.NoError(t, err)
	assert.Equal(t, "-Sales.*.*", m.Pattern.String())
}
