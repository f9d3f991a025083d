package gamecfg

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/file"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

type BindingFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Bindings manages exported control mappings of a channel.
type Bindings struct {
	locator Locator
}

func NewBindings(locator Locator) *Bindings {
	return &Bindings{locator: locator}
}

func (b *Bindings) dir(channel string) (string, error) {
	root, err := installPath(b.locator, channel)
	if err != nil {
		return "", err
	}
	return filepath.Join(profileDir(root), "controls", "mappings"), nil
}

// List returns the .xml mappings sorted by name. A channel without a
// mappings folder has none.
func (b *Bindings) List(channel string) ([]BindingFile, error) {
	dir, err := b.dir(channel)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BindingFile{}, nil
		}
		return nil, apperror.Wrap(err, apperror.KindIO, "failed to list bindings").WithContext("dir", dir)
	}
	out := make([]BindingFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isXML(e.Name()) {
			continue
		}
		out = append(out, BindingFile{Name: e.Name(), Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Import copies src into the mappings folder under its own file name.
func (b *Bindings) Import(channel, src string) (BindingFile, error) {
	src, err := file.ExpandHome(strings.TrimSpace(src))
	if err != nil {
		return BindingFile{}, apperror.Wrap(err, apperror.KindInvalid, "invalid bindings path")
	}
	if !isXML(src) {
		return BindingFile{}, apperror.New(apperror.KindInvalid, "bindings must be an .xml file").WithContext("path", src)
	}
	if !file.Exists(src) || file.IsDir(src) {
		return BindingFile{}, apperror.New(apperror.KindNotFound, "bindings file not found").WithContext("path", src)
	}
	dir, err := b.dir(channel)
	if err != nil {
		return BindingFile{}, err
	}
	dst := filepath.Join(dir, filepath.Base(src))
	if err := file.CopyFile(src, dst); err != nil {
		return BindingFile{}, apperror.Wrap(err, apperror.KindIO, "failed to import bindings").WithContext("path", src)
	}
	log.Info("[Bindings] Imported %s into %s", filepath.Base(src), channel)
	return BindingFile{Name: filepath.Base(dst), Path: dst}, nil
}

// Delete removes one mappings file of the channel.
func (b *Bindings) Delete(channel, path string) error {
	dir, err := b.dir(channel)
	if err != nil {
		return err
	}
	path = filepath.Clean(path)
	if filepath.Dir(path) != filepath.Clean(dir) || !isXML(path) {
		return apperror.New(apperror.KindInvalid, "not a bindings file").WithContext("path", path)
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return apperror.New(apperror.KindNotFound, "bindings file not found").WithContext("path", path)
		}
		return apperror.Wrap(err, apperror.KindIO, "failed to delete bindings").WithContext("path", path)
	}
	return nil
}

func isXML(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xml")
}
