package gamecfg

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/file"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

type ShaderFolder struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	HumanSize string `json:"weight"`
}

// ShaderCache manages the per-build folders the game keeps under its
// local data directory.
type ShaderCache struct {
	root string
}

func NewShaderCache(root string) *ShaderCache {
	return &ShaderCache{root: root}
}

// Folders lists the cache folders. A missing root has none.
func (s *ShaderCache) Folders() ([]ShaderFolder, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return []ShaderFolder{}, nil
		}
		return nil, apperror.Wrap(err, apperror.KindIO, "failed to list shader cache").WithContext("dir", s.root)
	}
	out := make([]ShaderFolder, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(s.root, e.Name())
		size, err := file.DirSize(path)
		if err != nil {
			log.Warn("[ShaderCache] Cannot size %s: %v", path, err)
		}
		out = append(out, ShaderFolder{Name: e.Name(), Path: path, Size: size, HumanSize: humanize.Bytes(uint64(size))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Delete removes one folder directly under the cache root.
func (s *ShaderCache) Delete(path string) error {
	path = filepath.Clean(path)
	if filepath.Dir(path) != filepath.Clean(s.root) {
		return apperror.New(apperror.KindInvalid, "not a shader cache folder").WithContext("path", path)
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return apperror.New(apperror.KindNotFound, "shader cache folder not found").WithContext("path", path)
		}
		return apperror.Wrap(err, apperror.KindIO, "failed to read shader cache folder").WithContext("path", path)
	}
	if err := os.RemoveAll(path); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to delete shader cache folder").WithContext("path", path)
	}
	return nil
}

// Clear empties the cache root and returns the number of removed entries.
// Entries in use by a running game are skipped.
func (s *ShaderCache) Clear() (int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, apperror.Wrap(err, apperror.KindIO, "failed to list shader cache").WithContext("dir", s.root)
	}
	removed := 0
	for _, e := range entries {
		path := filepath.Join(s.root, e.Name())
		if err := os.RemoveAll(path); err != nil {
			log.Warn("[ShaderCache] Cannot remove %s: %v", path, err)
			continue
		}
		removed++
	}
	log.Info("[ShaderCache] Cleared %d of %d entries", removed, len(entries))
	return removed, nil
}
