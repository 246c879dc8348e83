package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ezdbgen/internal/mask"
)

func TestFakeInventory(t *testing.T) {
	ctx := context.Background()
	inv := NewFakeInventory("Sales", "HR").
		WithTables("Sales", mask.Candidate{Database: "Sales", Schema: "dbo", Table: "Orders"})

	require.NoError(t, inv.Ping(ctx))
	dbs, err := inv.Databases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales", "HR"}, dbs)

	tables, err := inv.Tables(ctx, "Sales")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "Orders", tables[0].Table)

	tables, err = inv.Tables(ctx, "HR")
	require.NoError(t, err)
	assert.Empty(t, tables)

	assert.Equal(t, []string{"ping", "databases", "tables:Sales", "tables:HR"}, inv.Calls())
}

func TestFakeInventory_FailPing(t *testing.T) {
	boom := errors.New("unreachable")
	inv := NewFakeInventory().FailPing(boom)
	assert.ErrorIs(t, inv.Ping(context.Background()), boom)
}
