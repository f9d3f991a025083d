package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/backup"
	"github.com/MimeLyc/startrad-companion/internal/cache"
	"github.com/MimeLyc/startrad-companion/internal/config"
	"github.com/MimeLyc/startrad-companion/internal/events"
	"github.com/MimeLyc/startrad-companion/internal/gamepath"
	"github.com/MimeLyc/startrad-companion/internal/persistence"
	"github.com/MimeLyc/startrad-companion/internal/poller"
	"github.com/MimeLyc/startrad-companion/internal/sources"
)

const (
	livePath = `C:\Games\StarCitizen\LIVE`
	ptuPath  = `C:\Games\StarCitizen\PTU`
)

type fakeLocator struct {
	installs  gamepath.Installations
	launchErr error
}

func (f *fakeLocator) Discover() gamepath.Installations { return f.installs }
func (f *fakeLocator) FindLauncher() gamepath.LauncherStatus {
	return gamepath.LauncherStatus{Installed: true, Path: `C:\RSI\RSI Launcher.exe`}
}
func (f *fakeLocator) LaunchLauncher() error { return f.launchErr }

type fakeSynchronizer struct {
	mu         sync.Mutex
	translated bool

	// translatedPaths overrides translated when set
	translatedPaths map[string]bool
	upToDate        bool
	updateErr       error
	calls           []string
}

func (f *fakeSynchronizer) called(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeSynchronizer) IsTranslated(path, _ string) bool {
	if f.translatedPaths != nil {
		return f.translatedPaths[path]
	}
	return f.translated
}
func (f *fakeSynchronizer) IsUpToDate(context.Context, string, string, string) bool {
	f.called("is-up-to-date")
	return f.upToDate
}
func (f *fakeSynchronizer) Init(context.Context, string, string, string) error {
	f.called("init")
	return nil
}
func (f *fakeSynchronizer) Update(context.Context, string, string, string) error {
	f.called("update")
	return f.updateErr
}
func (f *fakeSynchronizer) Uninstall(string) error {
	f.called("uninstall")
	return nil
}
func (f *fakeSynchronizer) ApplyBrandingToLocalFile(string, string) (bool, error) {
	f.called("branding")
	return true, nil
}
func (f *fakeSynchronizer) InstallFromCache(string, string, string, sources.ID) error {
	f.called("install-from-cache")
	return nil
}

type fakeCatalog struct{}

func (fakeCatalog) Translations(context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"translations":[]}`), nil
}
func (fakeCatalog) BySetting(_ context.Context, settingType string) (json.RawMessage, error) {
	if settingType == "missing" {
		return nil, apperror.New(apperror.KindNotFound, "no link for setting")
	}
	return json.RawMessage(`{"link":"https://example.com/global.ini"}`), nil
}

type fakeResolver struct{}

func (fakeResolver) Resolve(context.Context, string) (string, error) { return "12/03/2025", nil }

type fakeChangelog struct {
	owner, repo string
}

func (f *fakeChangelog) Latest(_ context.Context, owner, repo string) ([]sources.Commit, error) {
	f.owner, f.repo = owner, repo
	return []sources.Commit{{Message: "Changelog 4.1"}}, nil
}

type fakePoller struct {
	mu       sync.Mutex
	running  bool
	starts   int
	checkErr error
}

func (f *fakePoller) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return poller.ErrAlreadyRunning
	}
	f.running = true
	f.starts++
	return nil
}

func (f *fakePoller) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return poller.ErrNotRunning
	}
	f.running = false
	return nil
}

func (f *fakePoller) Status() poller.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return poller.Status{Running: f.running}
}

func (f *fakePoller) CheckNow(context.Context) (int, error) { return 1, f.checkErr }

type fakeHistory struct {
	mu      sync.Mutex
	records []persistence.SyncRecord
}

func (f *fakeHistory) Record(_ context.Context, rec persistence.SyncRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return int64(len(f.records)), nil
}

func (f *fakeHistory) List(_ context.Context, filter persistence.HistoryFilter) ([]persistence.SyncRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.records
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeHistory) Totals(context.Context) (persistence.Totals, error) {
	return persistence.Totals{Updated: len(f.records)}, nil
}

type fakeCharacters struct {
	dir     string
	created []string
}

func (f *fakeCharacters) Dir() (string, error) { return f.dir, nil }
func (f *fakeCharacters) SetDir(root string) (string, error) {
	f.dir = filepath.Join(root, backup.SubfolderName)
	return f.dir, nil
}
func (f *fakeCharacters) List() ([]backup.Entry, error) { return nil, nil }
func (f *fakeCharacters) Create(channel string) (backup.Entry, error) {
	f.created = append(f.created, channel)
	return backup.Entry{Name: "backup_customcharacters_20250101_120000"}, nil
}
func (f *fakeCharacters) Restore(string, string) error { return nil }
func (f *fakeCharacters) Delete(string) error         { return nil }
func (f *fakeCharacters) Count() int                  { return len(f.created) }

type fakeProfiles struct{}

func (fakeProfiles) Create(string) (string, error) { return "", apperror.New(apperror.KindNotFound, "version LIVE not found") }
func (fakeProfiles) Restore(string, string) error  { return nil }

type fixture struct {
	locator  *fakeLocator
	sync     *fakeSynchronizer
	poller   *fakePoller
	history  *fakeHistory
	chars    *fakeCharacters
	log      *fakeChangelog
	cache    *cache.Store
	bus      *events.Bus
	settings *config.PollerSettingsStore
	registry *prometheus.Registry
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *fixture) {
	t.Helper()
	dir := t.TempDir()

	settings, err := config.OpenPollerSettingsStore(filepath.Join(dir, config.PollerSettingsFile))
	require.NoError(t, err)

	link := "https://raw.githubusercontent.com/SPEED0U/Scefra/main/french_(france)/global.ini"
	selection := config.NewSelectionStore(filepath.Join(dir, config.SelectionFile))
	require.NoError(t, selection.Save(config.Selection{"LIVE": {Link: &link}}))

	fx := &fixture{
		locator: &fakeLocator{installs: gamepath.Installations{
			"LIVE": {Channel: "LIVE", Path: livePath},
		}},
		sync:     &fakeSynchronizer{translated: true},
		poller:   &fakePoller{},
		history:  &fakeHistory{},
		chars:    &fakeCharacters{},
		log:      &fakeChangelog{},
		cache:    cache.NewStore(filepath.Join(dir, "cache")),
		bus:      events.NewBus(8),
		settings: settings,
		registry: prometheus.NewRegistry(),
	}

	srv := NewServer(Deps{
		Locator:        fx.locator,
		Synchronizer:   fx.sync,
		Catalog:        fakeCatalog{},
		LastUpdated:    fakeResolver{},
		Changelog:      fx.log,
		Poller:         fx.poller,
		Settings:       settings,
		Selection:      selection,
		Cache:          fx.cache,
		History:        fx.history,
		Characters:     fx.chars,
		Profiles:       fakeProfiles{},
		Events:         fx.bus,
		ThemePath:      filepath.Join(dir, config.ThemeFile),
		ChangelogOwner: "MimeLyc",
		ChangelogRepo:  "startrad",
		Minimized:      true,
		Gatherer:       fx.registry,
	}, opts...)
	return srv, fx
}

func do(t *testing.T, srv *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestServer_Versions(t *testing.T) {
	srv, fx := newTestServer(t)
	fx.sync.upToDate = true

	rec := do(t, srv, http.MethodGet, "/api/versions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var plain struct {
		Versions []versionView `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plain))
	require.Len(t, plain.Versions, 1)
	assert.Equal(t, "LIVE", plain.Versions[0].Channel)
	assert.True(t, plain.Versions[0].Translated)
	assert.Nil(t, plain.Versions[0].UpToDate)
	assert.Empty(t, fx.sync.calls)

	rec = do(t, srv, http.MethodGet, "/api/versions?check=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plain))
	require.NotNil(t, plain.Versions[0].UpToDate)
	assert.True(t, *plain.Versions[0].UpToDate)

	rec = do(t, srv, http.MethodPost, "/api/versions", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_LauncherAndMinimized(t *testing.T) {
	srv, fx := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/launcher", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["installed"])

	fx.locator.launchErr = apperror.New(apperror.KindNotFound, "launcher not found")
	rec = do(t, srv, http.MethodPost, "/api/launcher/launch", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/app/minimized", nil)
	assert.Equal(t, true, decode(t, rec)["minimized"])
}

func TestServer_TranslationActions(t *testing.T) {
	srv, fx := newTestServer(t)
	link := "https://example.com/global.ini"

	rec := do(t, srv, http.MethodPost, "/api/translations/update", map[string]any{"path": livePath, "link": link})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, fx.history.records, 1)
	assert.Equal(t, "LIVE", fx.history.records[0].Channel)
	assert.Equal(t, persistence.TriggerManual, fx.history.records[0].Trigger)
	assert.Equal(t, persistence.OutcomeUpdated, fx.history.records[0].Outcome)

	fx.sync.updateErr = apperror.New(apperror.KindNetwork, "download failed")
	rec = do(t, srv, http.MethodPost, "/api/translations/update", map[string]any{"path": livePath, "link": link})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.Len(t, fx.history.records, 2)
	assert.Equal(t, persistence.OutcomeFailed, fx.history.records[1].Outcome)
	assert.Contains(t, fx.history.records[1].Error, "download failed")

	rec = do(t, srv, http.MethodPost, "/api/translations/branding", map[string]any{"path": livePath})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["changed"])

	rec = do(t, srv, http.MethodPost, "/api/translations/init", map[string]any{"path": livePath})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/translations/install-from-cache", map[string]any{"path": livePath})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/translations/bogus", map[string]any{"path": livePath})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/translations/uninstall", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_TranslationStatus(t *testing.T) {
	srv, fx := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/translations/status?path=x&link=y", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "fr", body["language"])
	assert.Equal(t, false, body["up_to_date"])

	fx.sync.translated = false
	rec = do(t, srv, http.MethodGet, "/api/translations/status?path=x&link=y", nil)
	assert.Equal(t, false, decode(t, rec)["translated"])

	rec = do(t, srv, http.MethodGet, "/api/translations/status", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_SourcesAndChangelog(t *testing.T) {
	srv, fx := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/sources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"translations":[]}`, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/sources/setting/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/sources/last-updated?url=x", nil)
	assert.Equal(t, "12/03/2025", decode(t, rec)["last_updated"])

	rec = do(t, srv, http.MethodGet, "/api/changelog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "MimeLyc", fx.log.owner)
	assert.Equal(t, "startrad", fx.log.repo)
}

func TestServer_SelectionAndTheme(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/selection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Scefra")

	link := "https://traduction.circuspes.fr/download/global.ini"
	rec = do(t, srv, http.MethodPut, "/api/selection", config.Selection{"PTU": {Link: &link}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/selection", nil)
	assert.Contains(t, rec.Body.String(), "PTU")

	rec = do(t, srv, http.MethodGet, "/api/theme", nil)
	assert.Equal(t, config.DefaultTheme().PrimaryColor, decode(t, rec)["primary_color"])

	rec = do(t, srv, http.MethodPut, "/api/theme", map[string]string{"primary_color": "red"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPut, "/api/theme", map[string]string{"primary_color": "#123456"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, srv, http.MethodGet, "/api/theme", nil)
	assert.Equal(t, "#123456", decode(t, rec)["primary_color"])
}

func TestServer_PollerRoutes(t *testing.T) {
	srv, fx := newTestServer(t)

	rec := do(t, srv, http.MethodPut, "/api/poller/config", map[string]any{
		"enabled": true, "check_interval_minutes": 0, "language": "fr",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, fx.poller.starts)

	rec = do(t, srv, http.MethodPut, "/api/poller/config", map[string]any{
		"enabled": true, "check_interval_minutes": 10, "language": "fr",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, uint(10), fx.settings.Get().CheckIntervalMinutes)
	assert.Equal(t, 1, fx.poller.starts)

	rec = do(t, srv, http.MethodPost, "/api/poller/start", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/poller/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["running"])

	rec = do(t, srv, http.MethodPost, "/api/poller/stop", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/poller/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["updated"])

	rec = do(t, srv, http.MethodGet, "/api/poller/config", nil)
	assert.Equal(t, true, decode(t, rec)["enabled"])
}

func TestServer_History(t *testing.T) {
	srv, fx := newTestServer(t)
	for i := 0; i < 3; i++ {
		_, _ = fx.history.Record(context.Background(), persistence.SyncRecord{Channel: "LIVE"})
	}

	rec := do(t, srv, http.MethodGet, "/api/history?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = do(t, srv, http.MethodGet, "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fx.locator.installs["PTU"] = gamepath.Installation{Channel: "PTU", Path: ptuPath}
	fx.sync.translatedPaths = map[string]bool{livePath: true}
	rec = do(t, srv, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.EqualValues(t, 2, body["installations"])
	assert.EqualValues(t, 1, body["installed_translations"])
	assert.Equal(t, map[string]any{"LIVE": true, "PTU": false}, body["translated"])
	assert.Contains(t, body, "cache")
}

func TestServer_CacheRoutes(t *testing.T) {
	srv, fx := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/cache/LIVE/circuspes", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	entry, err := fx.cache.PutEntry("LIVE", "https://traduction.circuspes.fr/download/global.ini", "key=valeur\n")
	require.NoError(t, err)
	require.Equal(t, sources.Circuspes, entry.Source)

	rec = do(t, srv, http.MethodGet, "/api/cache", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = do(t, srv, http.MethodGet, "/api/cache/LIVE/circuspes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "key=valeur\n", rec.Body.String())

	rec = do(t, srv, http.MethodDelete, "/api/cache/LIVE/circuspes", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, srv, http.MethodGet, "/api/cache/LIVE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/cache/prefetch", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/cache/clear", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decode(t, rec)["removed"])
}

func TestServer_CharacterBackups(t *testing.T) {
	srv, fx := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/backups/characters", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{backup.DefaultChannel}, fx.chars.created)

	rec = do(t, srv, http.MethodPost, "/api/backups/characters", map[string]string{"version": "PTU"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "PTU", fx.chars.created[1])

	rec = do(t, srv, http.MethodPut, "/api/backups/characters/dir", map[string]string{"dir": "/tmp/saves"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, filepath.Join("/tmp/saves", backup.SubfolderName), decode(t, rec)["dir"])

	rec = do(t, srv, http.MethodDelete, "/api/backups/characters", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, srv, http.MethodPost, "/api/backups/user", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_OptionalFeaturesUnavailable(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/api/cloud/backups"},
		{http.MethodGet, "/api/cloud/preferences"},
		{http.MethodPost, "/api/oauth/start"},
		{http.MethodGet, "/api/update/check"},
	} {
		rec := do(t, srv, tc.method, tc.target, nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, tc.target)
	}
}

type fakeCloud struct {
	CloudStore
	token string
}

func (f *fakeCloud) LoadPreferences(_ context.Context, token string) (json.RawMessage, error) {
	f.token = token
	return json.RawMessage(`{"lang":"fr"}`), nil
}

func TestServer_CloudRequiresBearer(t *testing.T) {
	srv, _ := newTestServer(t)
	cloudStore := &fakeCloud{}
	srv.deps.Cloud = cloudStore

	rec := do(t, srv, http.MethodGet, "/api/cloud/preferences", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/cloud/preferences", nil)
	req.Header.Set("Authorization", "Bearer abc.def.ghi")
	out := httptest.NewRecorder()
	srv.Handler().ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)
	assert.Equal(t, "abc.def.ghi", cloudStore.token)
	assert.JSONEq(t, `{"preferences":{"lang":"fr"}}`, out.Body.String())
}

func TestServer_EventStream(t *testing.T) {
	srv, fx := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return fx.bus.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	fx.bus.Emit(events.TranslationUpdateDone, map[string]string{"channel": "LIVE"})

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	assert.Equal(t, "event: "+events.TranslationUpdateDone, lines[0])
	assert.Equal(t, `data: {"channel":"LIVE"}`, lines[1])
}

func TestServer_Metrics(t *testing.T) {
	srv, fx := newTestServer(t)
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "startrad_test_total", Help: "test"})
	fx.registry.MustRegister(counter)
	counter.Inc()

	rec := do(t, srv, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "startrad_test_total 1")
}

func TestWriteAppError_Status(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want int
	}{
		{apperror.New(apperror.KindInvalid, "bad"), http.StatusBadRequest},
		{apperror.New(apperror.KindIO, "disk"), http.StatusInternalServerError},
		{poller.ErrAlreadyRunning, http.StatusConflict},
		{errors.New("plain"), http.StatusInternalServerError},
	} {
		rec := httptest.NewRecorder()
		writeAppError(rec, tc.err)
		assert.Equal(t, tc.want, rec.Code, tc.err.Error())
	}
}
