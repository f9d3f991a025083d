package gamecfg

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/backup"
	"github.com/MimeLyc/startrad-companion/internal/gamepath"
	"github.com/MimeLyc/startrad-companion/pkg/file"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const (
	characterExt   = ".chf"
	maxCharacterMB = 16
)

// LocalCharacter is a saved character preset inside an installation.
type LocalCharacter struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Version string `json:"version"`
}

// LocalCharacters manages the .chf files in every installation's
// customcharacters folder.
type LocalCharacters struct {
	locator   Locator
	client    *http.Client
	userAgent string
}

func NewLocalCharacters(locator Locator, client *http.Client, userAgent string) *LocalCharacters {
	return &LocalCharacters{locator: locator, client: client, userAgent: userAgent}
}

// List returns the presets of channel, or of every installation when
// channel is empty.
func (c *LocalCharacters) List(channel string) ([]LocalCharacter, error) {
	installs := c.locator.Discover()
	if channel != "" {
		inst, ok := installs[channel]
		if !ok {
			return nil, apperror.Newf(apperror.KindNotFound, "version %s not found", channel)
		}
		installs = gamepath.Installations{channel: inst}
	}

	out := []LocalCharacter{}
	for _, ch := range sortedChannels(installs) {
		dir := backup.CustomCharactersDir(installs[ch].Path)
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, apperror.Wrap(err, apperror.KindIO, "failed to list characters").WithContext("dir", dir)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), characterExt) {
				continue
			}
			out = append(out, LocalCharacter{
				Name:    strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
				Path:    filepath.Join(dir, e.Name()),
				Version: ch,
			})
		}
	}
	return out, nil
}

// Delete removes one preset file.
func (c *LocalCharacters) Delete(path string) error {
	path, _, err := c.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to delete character").WithContext("path", path)
	}
	return nil
}

// Duplicate copies a preset into every other installation and returns the
// written paths.
func (c *LocalCharacters) Duplicate(path string) ([]string, error) {
	path, installs, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	return duplicateInto(path, installs)
}

// Download saves the preset at rawURL as <title>.chf in the LIVE
// installation, or the first one found, then duplicates it everywhere.
func (c *LocalCharacters) Download(ctx context.Context, rawURL, title string) (LocalCharacter, error) {
	name := characterFileName(title)
	if name == "" {
		return LocalCharacter{}, apperror.New(apperror.KindInvalid, "title is required")
	}
	installs := c.locator.Discover()
	channels := sortedChannels(installs)
	if len(channels) == 0 {
		return LocalCharacter{}, apperror.New(apperror.KindNotFound, "no Star Citizen installation found")
	}
	target := channels[0]
	if _, ok := installs[backup.DefaultChannel]; ok {
		target = backup.DefaultChannel
	}

	data, err := c.fetch(ctx, rawURL)
	if err != nil {
		return LocalCharacter{}, err
	}
	dst := filepath.Join(backup.CustomCharactersDir(installs[target].Path), name+characterExt)
	if err := file.WriteAtomic(dst, data, 0o644); err != nil {
		return LocalCharacter{}, apperror.Wrap(err, apperror.KindIO, "failed to save character").WithContext("path", dst)
	}
	log.Info("[Characters] Downloaded %s (%d bytes) into %s", name, len(data), target)

	if _, err := duplicateInto(dst, installs); err != nil {
		return LocalCharacter{}, err
	}
	return LocalCharacter{Name: name, Path: dst, Version: target}, nil
}

func (c *LocalCharacters) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindInvalid, "invalid character url").WithContext("url", rawURL)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindNetwork, "download failed").WithContext("url", rawURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperror.New(apperror.KindNetwork, fmt.Sprintf("download failed with status %s", resp.Status)).
			WithContext("url", rawURL)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCharacterMB<<20))
	if err != nil {
		return nil, apperror.Wrap(err, apperror.KindNetwork, "read response").WithContext("url", rawURL)
	}
	return data, nil
}

// resolve checks that path is a preset inside one of the installations.
func (c *LocalCharacters) resolve(path string) (string, gamepath.Installations, error) {
	path = filepath.Clean(path)
	if !strings.EqualFold(filepath.Ext(path), characterExt) {
		return "", nil, apperror.New(apperror.KindInvalid, "not a character file").WithContext("path", path)
	}
	installs := c.locator.Discover()
	for _, inst := range installs {
		if filepath.Dir(path) != filepath.Clean(backup.CustomCharactersDir(inst.Path)) {
			continue
		}
		if !file.Exists(path) || file.IsDir(path) {
			return "", nil, apperror.New(apperror.KindNotFound, "character not found").WithContext("path", path)
		}
		return path, installs, nil
	}
	return "", nil, apperror.New(apperror.KindInvalid, "character is not inside an installation").WithContext("path", path)
}

func duplicateInto(src string, installs gamepath.Installations) ([]string, error) {
	srcDir := filepath.Dir(src)
	written := []string{}
	for _, ch := range sortedChannels(installs) {
		dir := filepath.Clean(backup.CustomCharactersDir(installs[ch].Path))
		if dir == srcDir {
			continue
		}
		dst := filepath.Join(dir, filepath.Base(src))
		if err := file.CopyFile(src, dst); err != nil {
			return written, apperror.Wrap(err, apperror.KindIO, "failed to copy character").WithContext("version", ch)
		}
		written = append(written, dst)
	}
	return written, nil
}

// characterFileName replaces the characters Windows forbids in file names.
func characterFileName(title string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, strings.TrimSpace(title))
}

func sortedChannels(installs gamepath.Installations) []string {
	out := make([]string, 0, len(installs))
	for ch := range installs {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}
