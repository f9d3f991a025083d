package gamecfg

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
)

func TestBindings_ImportListDelete(t *testing.T) {
	loc, paths := newInstall(t, "LIVE")
	b := NewBindings(loc)

	files, err := b.List("LIVE")
	require.NoError(t, err)
	assert.Empty(t, files)

	src := filepath.Join(t.TempDir(), "hotas_x56.xml")
	writeFile(t, src, "<ActionMaps/>")
	imported, err := b.Import("LIVE", src)
	require.NoError(t, err)

	dir := filepath.Join(paths["LIVE"], "user", "client", "0", "controls", "mappings")
	assert.Equal(t, BindingFile{Name: "hotas_x56.xml", Path: filepath.Join(dir, "hotas_x56.xml")}, imported)
	assert.Equal(t, "<ActionMaps/>", readFile(t, imported.Path))

	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "Keyboard.XML"), "<ActionMaps/>")
	files, err = b.List("LIVE")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "Keyboard.XML", files[0].Name)
	assert.Equal(t, "hotas_x56.xml", files[1].Name)

	require.NoError(t, b.Delete("LIVE", imported.Path))
	assert.NoFileExists(t, imported.Path)

	err = b.Delete("LIVE", imported.Path)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestBindings_Rejects(t *testing.T) {
	loc, paths := newInstall(t, "LIVE")
	b := NewBindings(loc)

	txt := filepath.Join(t.TempDir(), "map.txt")
	writeFile(t, txt, "x")
	_, err := b.Import("LIVE", txt)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalid))

	_, err = b.Import("LIVE", filepath.Join(t.TempDir(), "missing.xml"))
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	_, err = b.List("PTU")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	outside := filepath.Join(paths["LIVE"], "user.xml")
	writeFile(t, outside, "x")
	err = b.Delete("LIVE", outside)
	assert.True(t, apperror.IsKind(err, apperror.KindInvalid))
	assert.FileExists(t, outside)
}
