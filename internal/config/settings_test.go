package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollerSettingsStore_DefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), PollerSettingsFile)

	store, err := OpenPollerSettingsStore(path)
	require.NoError(t, err)

	got := store.Get()
	assert.False(t, got.Enabled)
	assert.Equal(t, uint(5), got.CheckIntervalMinutes)
	assert.Equal(t, "fr", got.Language)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPollerSettingsStore_UpdatePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", PollerSettingsFile)
	store, err := OpenPollerSettingsStore(path)
	require.NoError(t, err)

	next := PollerSettings{Enabled: true, CheckIntervalMinutes: 15, Language: "fr"}
	_, err = store.Update(next)
	require.NoError(t, err)
	assert.Equal(t, next, store.Get())

	reopened, err := OpenPollerSettingsStore(path)
	require.NoError(t, err)
	assert.Equal(t, next, reopened.Get())

	_, err = store.Update(PollerSettings{Enabled: true, CheckIntervalMinutes: 0, Language: "fr"})
	require.Error(t, err)
	assert.Equal(t, next, store.Get())
}

func TestPollerSettingsStore_CorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), PollerSettingsFile)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := OpenPollerSettingsStore(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultPollerSettings(), store.Get())
}

func TestSelectionStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), SelectionFile)
	store := NewSelectionStore(path)

	empty, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, empty)

	link := "https://example.test/global.ini"
	require.NoError(t, store.Save(Selection{"LIVE": {Link: &link, SettingsEN: true}, "PTU": {}}))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, link, got["LIVE"].URL())
	assert.True(t, got["LIVE"].SettingsEN)
	assert.Equal(t, "", got["PTU"].URL())
}

func TestSelectionStore_MigratesLegacyShapes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		channel string
		link    string
	}{
		{
			name:    "bare url",
			content: `"https://raw.githubusercontent.com/SPEED0U/Scefra/main/french_(france)/global.ini"`,
			channel: "LIVE",
			link:    "https://raw.githubusercontent.com/SPEED0U/Scefra/main/french_(france)/global.ini",
		},
		{
			name:    "unquoted url",
			content: "https://github.com/acme/global.ini",
			channel: "LIVE",
			link:    "https://github.com/acme/global.ini",
		},
		{
			name:    "string values",
			content: `{"PTU":"https://traduction.circuspes.fr/download/global.ini"}`,
			channel: "PTU",
			link:    "https://traduction.circuspes.fr/download/global.ini",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), SelectionFile)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			sel, err := NewSelectionStore(path).Load()
			require.NoError(t, err)
			assert.Equal(t, tt.link, sel[tt.channel].URL())
			assert.False(t, sel[tt.channel].SettingsEN)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Contains(t, string(data), `"settingsEN": false`)
		})
	}
}

func TestTheme_DefaultsAndValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), ThemeFile)

	theme, err := LoadTheme(path)
	require.NoError(t, err)
	assert.Equal(t, "#6463b6", theme.PrimaryColor)

	require.Error(t, SaveTheme(path, Theme{PrimaryColor: "purple"}))
	require.NoError(t, SaveTheme(path, Theme{PrimaryColor: "#112233"}))

	theme, err = LoadTheme(path)
	require.NoError(t, err)
	assert.Equal(t, "#112233", theme.PrimaryColor)
}
