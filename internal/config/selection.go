package config

import (
	"encoding/json"
	"os"
	"strings"
	"sync"

	"github.com/MimeLyc/startrad-companion/pkg/log"
)

// TranslationSetting is the source chosen for one game channel.
type TranslationSetting struct {
	Link       *string `json:"link"`
	SettingsEN bool    `json:"settingsEN"`
}

// URL returns the configured link or "".
func (t TranslationSetting) URL() string {
	if t.Link == nil {
		return ""
	}
	return *t.Link
}

// Selection maps channel labels (LIVE, PTU, ...) to their translation setting.
type Selection map[string]TranslationSetting

// SelectionStore persists the per-channel translation choice.
type SelectionStore struct {
	path string
	mu   sync.Mutex
}

func NewSelectionStore(path string) *SelectionStore {
	return &SelectionStore{path: path}
}

// Load returns the saved selection. Older documents that stored bare URL
// strings are converted and rewritten in the current shape.
func (s *SelectionStore) Load() (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Selection{}, nil
		}
		return nil, err
	}

	sel, migrated := parseSelection(data)
	if migrated {
		if err := WriteJSON(s.path, sel); err != nil {
			log.Warn("[Config] Failed to rewrite migrated selection: %v", err)
		} else {
			log.Info("[Config] Migrated %s to the current format", SelectionFile)
		}
	}
	return sel, nil
}

func (s *SelectionStore) Save(sel Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sel == nil {
		sel = Selection{}
	}
	return WriteJSON(s.path, sel)
}

func parseSelection(data []byte) (Selection, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		text := strings.Trim(strings.TrimSpace(string(data)), `"`)
		if !strings.HasPrefix(text, "{") && strings.Contains(text, "github") {
			return Selection{"LIVE": {Link: &text}}, true
		}
		return Selection{}, false
	}

	sel := make(Selection, len(raw))
	migrated := false
	for channel, value := range raw {
		var link string
		if err := json.Unmarshal(value, &link); err == nil {
			l := link
			sel[channel] = TranslationSetting{Link: &l}
			migrated = true
			continue
		}
		var setting TranslationSetting
		if err := json.Unmarshal(value, &setting); err == nil {
			sel[channel] = setting
			continue
		}
		migrated = true
	}
	return sel, migrated
}
