package file

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirEntry is a directory found by FindDirs.
type DirEntry struct {
	Name    string
	Path    string
	ModTime time.Time
}

// FindDirs lists the immediate subdirectories of dir whose names start with
// prefix, newest modification first. A missing dir yields no entries.
func FindDirs(dir, prefix string) ([]DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirEntry
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		dirs = append(dirs, DirEntry{
			Name:    e.Name(),
			Path:    filepath.Join(dir, e.Name()),
			ModTime: info.ModTime(),
		})
	}

	sort.SliceStable(dirs, func(i, j int) bool {
		if dirs[i].ModTime.Equal(dirs[j].ModTime) {
			return dirs[i].Name > dirs[j].Name
		}
		return dirs[i].ModTime.After(dirs[j].ModTime)
	})
	return dirs, nil
}

// DirSize sums the sizes of all regular files below dir.
func DirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	return total, err
}
