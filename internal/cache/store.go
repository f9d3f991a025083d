// Package cache keeps an offline copy of synchronized translation files:
// an index.json plus one <channel>_<source>.ini per entry.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/sources"
	"github.com/MimeLyc/startrad-companion/pkg/file"
	"github.com/MimeLyc/startrad-companion/pkg/log"
	"github.com/abadojack/whatlanggo"
	"github.com/dustin/go-humanize"
)

const indexFile = "index.json"

// Entry describes one cached translation.
type Entry struct {
	GameVersion string     `json:"game_version"`
	Source      sources.ID `json:"source"`
	OriginalURL string     `json:"original_url"`
	CachedAt    time.Time  `json:"cached_at"`
	FileSize    int64      `json:"file_size"`
	Language    string     `json:"language,omitempty"`
}

type index struct {
	Translations []Entry `json:"translations"`
}

// Info summarises the cache directory.
type Info struct {
	TotalFiles int    `json:"total_files"`
	TotalSize  int64  `json:"total_size"`
	HumanSize  string `json:"human_size"`
	CachePath  string `json:"cache_path"`
}

type Store struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

func (s *Store) Dir() string {
	return s.dir
}

// FileName is the content file for (channel, source), lowercased.
func FileName(channel string, source sources.ID) string {
	return strings.ToLower(channel) + "_" + strings.ToLower(string(source)) + ".ini"
}

// Put stores content for channel under the source detected from sourceURL,
// replacing any previous entry for the same pair.
func (s *Store) Put(channel, sourceURL, content string) error {
	_, err := s.PutEntry(channel, sourceURL, content)
	return err
}

func (s *Store) PutEntry(channel, sourceURL, content string) (Entry, error) {
	if strings.TrimSpace(channel) == "" {
		return Entry{}, apperror.New(apperror.KindInvalid, "channel is required")
	}
	source := sources.DetectFromURL(sourceURL)

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, FileName(channel, source))
	if err := file.WriteAtomic(path, file.PrependBOM([]byte(content)), 0o644); err != nil {
		return Entry{}, apperror.Wrap(err, apperror.KindIO, "write cache file").WithContext("path", path)
	}

	entry := Entry{
		GameVersion: channel,
		Source:      source,
		OriginalURL: sourceURL,
		CachedAt:    s.now().UTC(),
		FileSize:    int64(len(content)),
		Language:    detectLanguage(content),
	}

	idx, err := s.load()
	if err != nil {
		return Entry{}, err
	}
	idx.Translations = removeEntry(idx.Translations, channel, source)
	idx.Translations = append(idx.Translations, entry)
	if err := s.save(idx); err != nil {
		return Entry{}, err
	}

	log.Debug("[Cache] Stored %s (%s, %s)", FileName(channel, source), humanize.Bytes(uint64(entry.FileSize)), entry.Language)
	return entry, nil
}

// Get returns cached content without its BOM.
func (s *Store) Get(channel string, source sources.ID) (string, error) {
	path := filepath.Join(s.dir, FileName(channel, source))
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperror.Newf(apperror.KindNotFound, "translation %s (%s) not found in cache", channel, source)
		}
		return "", apperror.Wrap(err, apperror.KindIO, "read cache file").WithContext("path", path)
	}
	return string(file.StripBOM(data)), nil
}

func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, err := s.load()
	if err != nil {
		return nil, err
	}
	return idx.Translations, nil
}

func (s *Store) Delete(channel string, source sources.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, FileName(channel, source))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return apperror.Wrap(err, apperror.KindIO, "remove cache file").WithContext("path", path)
	}
	idx, err := s.load()
	if err != nil {
		return err
	}
	idx.Translations = removeEntry(idx.Translations, channel, source)
	return s.save(idx)
}

// Clear removes every cached file and returns how many entries were indexed.
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load()
	if err != nil {
		return 0, err
	}
	count := len(idx.Translations)

	entries, err := os.ReadDir(s.dir)
	if err != nil && !os.IsNotExist(err) {
		return 0, apperror.Wrap(err, apperror.KindIO, "read cache directory")
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".ini") {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
				log.Warn("[Cache] Could not remove %s: %v", e.Name(), err)
			}
		}
	}
	return count, s.save(index{Translations: []Entry{}})
}

func (s *Store) IsCached(channel string, source sources.ID) bool {
	return file.Exists(filepath.Join(s.dir, FileName(channel, source)))
}

// HasChannel reports whether any source is cached for channel.
func (s *Store) HasChannel(channel string) bool {
	entries, err := s.List()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if strings.EqualFold(e.GameVersion, channel) {
			return true
		}
	}
	return false
}

func (s *Store) Info() (Info, error) {
	entries, err := s.List()
	if err != nil {
		return Info{}, err
	}
	var total int64
	for _, e := range entries {
		total += e.FileSize
	}
	return Info{
		TotalFiles: len(entries),
		TotalSize:  total,
		HumanSize:  humanize.Bytes(uint64(total)),
		CachePath:  s.dir,
	}, nil
}

func (s *Store) load() (index, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return index{Translations: []Entry{}}, nil
		}
		return index{}, apperror.Wrap(err, apperror.KindIO, "read cache index")
	}
	var idx index
	if err := json.Unmarshal(data, &idx); err != nil {
		return index{}, apperror.Wrap(err, apperror.KindInvalid, "parse cache index")
	}
	if idx.Translations == nil {
		idx.Translations = []Entry{}
	}
	return idx, nil
}

func (s *Store) save(idx index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache index: %w", err)
	}
	if err := file.WriteAtomic(filepath.Join(s.dir, indexFile), data, 0o644); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "write cache index")
	}
	return nil
}

func removeEntry(entries []Entry, channel string, source sources.ID) []Entry {
	out := entries[:0]
	for _, e := range entries {
		if strings.EqualFold(e.GameVersion, channel) && e.Source == source {
			continue
		}
		out = append(out, e)
	}
	return out
}

// detectLanguage samples the values of an ini file and returns the ISO 639-1
// code of the dominant language, or "" when unsure.
func detectLanguage(content string) string {
	const sampleLimit = 64 << 10

	var b strings.Builder
	for _, line := range strings.Split(content, "\n") {
		if b.Len() >= sampleLimit {
			break
		}
		if _, value, ok := strings.Cut(line, "="); ok {
			b.WriteString(strings.TrimSpace(value))
			b.WriteByte(' ')
		}
	}
	if b.Len() == 0 {
		return ""
	}
	info := whatlanggo.Detect(b.String())
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}
