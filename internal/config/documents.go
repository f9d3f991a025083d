package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/MimeLyc/startrad-companion/pkg/file"
)

// Settings document names inside the config dir.
const (
	PollerSettingsFile = "background_service.json"
	SelectionFile      = "translations_selected.json"
	ThemeFile          = "theme_selected.json"
	CommitCacheFile    = "commit_cache.json"
	BackupDirFile      = "characters_backup_dir.txt"
)

// ErrNoDocument is returned when a settings document does not exist yet.
var ErrNoDocument = errors.New("settings document not found")

// LoadJSON decodes the document at path into v. A missing file yields
// ErrNoDocument so callers can fall back to defaults.
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoDocument
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid settings file %s: %w", path, err)
	}
	return nil
}

// WriteJSON encodes v with indentation and replaces path atomically.
func WriteJSON(path string, v any) error {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')
	return file.WriteAtomic(path, content, 0o600)
}
