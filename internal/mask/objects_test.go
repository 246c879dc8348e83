package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNarrowsObjects(t *testing.T) {
	tests := []struct {
		name  string
		masks []string
		db    string
		want  bool
	}{
		{"database only", []string{"Sales"}, "Sales", false},
		{"all wildcards", []string{"*.*.*"}, "Sales", false},
		{"schema include", []string{"Sales.dbo"}, "Sales", true},
		{"table exclude", []string{"*.*.*", "-Sales.dbo.system*"}, "Sales", true},
		{"other database", []string{"*.*.*", "-Sales.dbo.system*"}, "HR", false},
		{"no masks", nil, "Sales", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masks, err := CompileAll(tt.masks)
			require.NoError(t, err)
			assert.Equal(t, tt.want, NarrowsObjects(masks, tt.db))
		})
	}
}

func TestSelectObjects_ExclusionAtTableLevel(t *testing.T) {
	masks, err := CompileAll([]string{"*.*.*", "-Sales.dbo.system*"})
	require.NoError(t, err)

	tables := []Candidate{
		{Database: "Sales", Schema: "dbo", Table: "Orders"},
		{Database: "Sales", Schema: "dbo", Table: "systemLog"},
		{Database: "Sales", Schema: "audit", Table: "systemLog"},
	}
	got := SelectObjects(tables, masks)
	assert.Equal(t, []Candidate{
		{Database: "Sales", Schema: "dbo", Table: "Orders"},
		{Database: "Sales", Schema: "audit", Table: "systemLog"},
	}, got)
}
