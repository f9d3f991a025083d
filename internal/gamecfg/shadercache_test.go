package gamecfg

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
)

func TestShaderCache_FoldersDeleteClear(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Star Citizen")
	writeFile(t, filepath.Join(root, "sc-alpha-4.1", "shaders", "a.bin"), strings.Repeat("x", 2000))
	writeFile(t, filepath.Join(root, "sc-alpha-4.2", "b.bin"), "yy")
	writeFile(t, filepath.Join(root, "crash.dmp"), "z")

	sc := NewShaderCache(root)
	folders, err := sc.Folders()
	require.NoError(t, err)
	require.Len(t, folders, 2)
	assert.Equal(t, "sc-alpha-4.1", folders[0].Name)
	assert.Equal(t, int64(2000), folders[0].Size)
	assert.Equal(t, "2.0 kB", folders[0].HumanSize)

	assert.True(t, apperror.IsKind(sc.Delete(filepath.Join(root, "sc-alpha-4.1", "shaders")), apperror.KindInvalid))
	assert.True(t, apperror.IsKind(sc.Delete(filepath.Join(root, "..", "other")), apperror.KindInvalid))
	assert.True(t, apperror.IsKind(sc.Delete(filepath.Join(root, "sc-alpha-9")), apperror.KindNotFound))

	require.NoError(t, sc.Delete(folders[0].Path))
	assert.NoDirExists(t, folders[0].Path)

	removed, err := sc.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	folders, err = sc.Folders()
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestShaderCache_MissingRoot(t *testing.T) {
	sc := NewShaderCache(filepath.Join(t.TempDir(), "absent"))
	folders, err := sc.Folders()
	require.NoError(t, err)
	assert.Empty(t, folders)

	removed, err := sc.Clear()
	require.NoError(t, err)
	assert.Zero(t, removed)
}
