// Package translation keeps a game installation's localization file in sync
// with a remote community translation.
package translation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/gamepath"
	"github.com/MimeLyc/startrad-companion/internal/sources"
	"github.com/MimeLyc/startrad-companion/pkg/file"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const (
	userConfigFile = "user.cfg"
	globalIniFile  = "global.ini"
)

// Cache is the offline copy of synchronized files.
type Cache interface {
	Put(channel, sourceURL, content string) error
	Get(channel string, source sources.ID) (string, error)
}

type Synchronizer struct {
	fetcher Fetcher
	cache   Cache
}

type Option func(*Synchronizer)

// WithCache enables best-effort cache population after successful writes.
func WithCache(c Cache) Option {
	return func(s *Synchronizer) {
		s.cache = c
	}
}

func NewSynchronizer(fetcher Fetcher, opts ...Option) *Synchronizer {
	s := &Synchronizer{fetcher: fetcher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GlobalIniPath is data/Localization/<folder>/global.ini under installPath.
func GlobalIniPath(installPath, lang string) (string, error) {
	folder, ok := LanguageFolder(lang)
	if !ok {
		return "", apperror.New(apperror.KindUnsupported, "unsupported language").WithContext("language", lang)
	}
	return filepath.Join(installPath, "data", "Localization", folder, globalIniFile), nil
}

// IsTranslated reports whether user.cfg selects the language and the
// localization file is present.
func (s *Synchronizer) IsTranslated(installPath, lang string) bool {
	folder, ok := LanguageFolder(lang)
	if !ok {
		return false
	}
	cfg, err := os.ReadFile(filepath.Join(installPath, userConfigFile))
	if err != nil {
		return false
	}
	if !strings.Contains(string(cfg), "g_language = "+folder) {
		return false
	}
	info, err := os.Stat(filepath.Join(installPath, "data", "Localization", folder, globalIniFile))
	return err == nil && info.Mode().IsRegular()
}

// Init installs a translation for the first time: localization file and
// user.cfg selecting the language.
func (s *Synchronizer) Init(ctx context.Context, installPath, lang, url string) error {
	if err := s.Update(ctx, installPath, lang, url); err != nil {
		return err
	}
	return writeUserConfig(installPath, lang)
}

// IsUpToDate compares the installed file with the branded remote content.
// Unsupported languages, unreadable files and fetch failures all yield
// false.
func (s *Synchronizer) IsUpToDate(ctx context.Context, installPath, url, lang string) bool {
	path, err := GlobalIniPath(installPath, lang)
	if err != nil {
		log.Debug("[Sync] %s: language %q has no localization folder", installPath, lang)
		return false
	}

	local, err := readLocalization(path)
	if err != nil {
		log.Debug("[Sync] %s: local file unusable: %v", installPath, err)
		return false
	}

	remote, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		log.Warn("[Sync] %s: fetching %s failed: %v", installPath, url, err)
		return false
	}

	upToDate := Normalize(local) == Normalize(ApplyBranding(remote, url))
	if !upToDate {
		log.Info("[Sync] %s: translation differs from %s", installPath, url)
	}
	return upToDate
}

// Update downloads url, brands it and writes it with a BOM.
func (s *Synchronizer) Update(ctx context.Context, installPath, lang, url string) error {
	path, err := GlobalIniPath(installPath, lang)
	if err != nil {
		return err
	}

	remote, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return err
	}
	content := ApplyBranding(remote, url)

	if err := file.WriteWithBOM(path, []byte(content)); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "write localization file").WithContext("path", path)
	}
	log.Info("[Sync] Wrote %s (%d bytes) from %s", path, len(content), url)

	// errors intentionally discarded: the update already succeeded
	_ = s.populateCache(installPath, url, content)
	return nil
}

// InstallFromCache writes a cached translation into installPath.
func (s *Synchronizer) InstallFromCache(installPath, lang, channel string, source sources.ID) error {
	if s.cache == nil {
		return apperror.New(apperror.KindNotFound, "offline cache is not configured")
	}
	path, err := GlobalIniPath(installPath, lang)
	if err != nil {
		return err
	}
	content, err := s.cache.Get(channel, source)
	if err != nil {
		return err
	}
	if err := file.WriteWithBOM(path, []byte(content)); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "write localization file").WithContext("path", path)
	}
	log.Info("[Sync] Installed %s/%s from cache into %s", channel, source, installPath)
	return writeUserConfig(installPath, lang)
}

// ApplyBrandingToLocalFile brands an installed file in place. It reports
// whether the file changed.
func (s *Synchronizer) ApplyBrandingToLocalFile(installPath, lang string) (bool, error) {
	path, err := GlobalIniPath(installPath, lang)
	if err != nil {
		return false, err
	}
	content, err := readLocalization(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, apperror.Wrap(err, apperror.KindNotFound, "localization file not found").WithContext("path", path)
		}
		return false, apperror.Wrap(err, apperror.KindIO, "read localization file").WithContext("path", path)
	}
	if !NeedsBranding(content) {
		return false, nil
	}
	if err := file.WriteWithBOM(path, []byte(ApplyBrandingByContent(content))); err != nil {
		return false, apperror.Wrap(err, apperror.KindIO, "write localization file").WithContext("path", path)
	}
	return true, nil
}

// Uninstall removes the data directory and user.cfg. Missing targets are
// not errors.
func (s *Synchronizer) Uninstall(installPath string) error {
	if err := os.RemoveAll(filepath.Join(installPath, "data")); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "remove data directory").WithContext("path", installPath)
	}
	if err := os.Remove(filepath.Join(installPath, userConfigFile)); err != nil && !os.IsNotExist(err) {
		return apperror.Wrap(err, apperror.KindIO, "remove user.cfg").WithContext("path", installPath)
	}
	log.Info("[Sync] Uninstalled translation from %s", installPath)
	return nil
}

func (s *Synchronizer) populateCache(installPath, url, content string) error {
	if s.cache == nil {
		return nil
	}
	channel := gamepath.ChannelOf(installPath)
	if channel == "" {
		return nil
	}
	if err := s.cache.Put(channel, url, content); err != nil {
		log.Warn("[Sync] Caching %s for %s failed: %v", url, channel, err)
		return err
	}
	return nil
}

func readLocalization(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	data = file.StripBOM(data)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not valid UTF-8", path)
	}
	return string(data), nil
}

func writeUserConfig(installPath, lang string) error {
	folder, ok := LanguageFolder(lang)
	if !ok {
		return apperror.New(apperror.KindUnsupported, "unsupported language").WithContext("language", lang)
	}
	content := fmt.Sprintf("g_language = %s\ng_languageAudio = english\n", folder)
	if err := file.WriteAtomic(filepath.Join(installPath, userConfigFile), []byte(content), 0o644); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "write user.cfg").WithContext("path", installPath)
	}
	return nil
}
