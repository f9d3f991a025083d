package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MimeLyc/startrad-companion/pkg/log"
)

// PollerSettings is the persisted background update configuration.
type PollerSettings struct {
	Enabled              bool   `json:"enabled"`
	CheckIntervalMinutes uint   `json:"check_interval_minutes"`
	Language             string `json:"language"`
}

func DefaultPollerSettings() PollerSettings {
	return PollerSettings{
		Enabled:              false,
		CheckIntervalMinutes: 5,
		Language:             "fr",
	}
}

func (s PollerSettings) Validate() error {
	if s.CheckIntervalMinutes == 0 {
		return fmt.Errorf("check_interval_minutes must be at least 1")
	}
	if strings.TrimSpace(s.Language) == "" {
		return fmt.Errorf("language is required")
	}
	return nil
}

func LoadPollerSettingsFile(path string) (PollerSettings, error) {
	settings := DefaultPollerSettings()
	if err := LoadJSON(path, &settings); err != nil {
		if errors.Is(err, ErrNoDocument) {
			return DefaultPollerSettings(), nil
		}
		return DefaultPollerSettings(), err
	}
	return settings, nil
}

func WritePollerSettingsFile(path string, settings PollerSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	return WriteJSON(path, settings)
}

// PollerSettingsStore guards the poller configuration. Readers always see
// the last successfully persisted value.
type PollerSettingsStore struct {
	path string

	mu      sync.RWMutex
	current PollerSettings
}

// OpenPollerSettingsStore loads the document at path, falling back to
// defaults when it is missing or unreadable.
func OpenPollerSettingsStore(path string) (*PollerSettingsStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("settings file path is required")
	}
	current, err := LoadPollerSettingsFile(path)
	if err != nil {
		log.Warn("[Config] Using default poller settings: %v", err)
	}
	if current.Validate() != nil {
		current = DefaultPollerSettings()
	}
	return &PollerSettingsStore{
		path:    path,
		current: current,
	}, nil
}

func (s *PollerSettingsStore) Get() PollerSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *PollerSettingsStore) Update(next PollerSettings) (PollerSettings, error) {
	if err := next.Validate(); err != nil {
		return PollerSettings{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := WritePollerSettingsFile(s.path, next); err != nil {
		return PollerSettings{}, err
	}
	s.current = next
	return next, nil
}
