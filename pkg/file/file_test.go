package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithBOM_SinglePrefix(t *testing.T) {
	once := WithBOM([]byte("key=value"))
	twice := WithBOM(once)

	assert.True(t, HasBOM(once))
	assert.Equal(t, once, twice)
	assert.Equal(t, []byte("key=value"), StripBOM(twice))
}

func TestPrependBOM_MirrorsStrip(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("a=b"), append([]byte{0xEF, 0xBB, 0xBF}, "a=b"...)} {
		out := PrependBOM(data)
		assert.True(t, HasBOM(out))
		assert.Equal(t, string(data), string(StripBOM(out)))
	}
}

func TestWriteWithBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "Localization", "french_(france)", "global.ini")

	require.NoError(t, WriteWithBOM(path, []byte("a=b\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, append([]byte{0xEF, 0xBB, 0xBF}, []byte("a=b\n")...), data)
	assert.False(t, Exists(path+".tmp"))
}

func TestFindDirs_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "backup_a")
	newer := filepath.Join(dir, "backup_b")
	require.NoError(t, os.Mkdir(older, 0o755))
	require.NoError(t, os.Mkdir(newer, 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "other"), 0o755))

	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	dirs, err := FindDirs(dir, "backup_")
	require.NoError(t, err)
	require.Len(t, dirs, 2)
	assert.Equal(t, "backup_b", dirs[0].Name)
	assert.Equal(t, "backup_a", dirs[1].Name)

	missing, err := FindDirs(filepath.Join(dir, "nope"), "")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestCopyDirAndSize(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.chf"), []byte("12345"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "b.chf"), []byte("678"), 0o644))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyDir(src, dst))

	data, err := os.ReadFile(filepath.Join(dst, "nested", "b.chf"))
	require.NoError(t, err)
	assert.Equal(t, "678", string(data))

	size, err := DirSize(dst)
	require.NoError(t, err)
	assert.Equal(t, int64(8), size)
}

func TestExpandHomeAndSafeName(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	homedir.Reset()
	t.Cleanup(homedir.Reset)

	got, err := ExpandHome("~/Documents/backups")
	require.NoError(t, err)
	assert.Equal(t, "/home/tester/Documents/backups", got)

	assert.Equal(t, "4.1.1_scefra_fr", SafeName("4.1.1 SCEFRA_FR"))
}
