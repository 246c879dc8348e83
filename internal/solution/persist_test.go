package solution

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src", "Contoso.sln")
	m := threeUnitManifest(t)

	require.NoError(t, m.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, m.ToDocument(), loaded.ToDocument())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.sln"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInsertFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Contoso.sln")
	empty := newTestManifest()
	require.NoError(t, empty.Save(path))

	full := threeUnitManifest(t)
	for _, u := range full.Units() {
		require.NoError(t, InsertFile(path, full.Config(), u))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, full.ToDocument(), string(data))
}
