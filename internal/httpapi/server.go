// Package httpapi serves the loopback JSON API used by the desktop web view.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/internal/backup"
	"github.com/MimeLyc/startrad-companion/internal/cache"
	"github.com/MimeLyc/startrad-companion/internal/cloud"
	"github.com/MimeLyc/startrad-companion/internal/config"
	"github.com/MimeLyc/startrad-companion/internal/events"
	"github.com/MimeLyc/startrad-companion/internal/gamecfg"
	"github.com/MimeLyc/startrad-companion/internal/gamepath"
	"github.com/MimeLyc/startrad-companion/internal/oauth"
	"github.com/MimeLyc/startrad-companion/internal/persistence"
	"github.com/MimeLyc/startrad-companion/internal/poller"
	"github.com/MimeLyc/startrad-companion/internal/service"
	"github.com/MimeLyc/startrad-companion/internal/sources"
	"github.com/MimeLyc/startrad-companion/internal/updater"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const maxBodyBytes = 1 << 20

type Locator interface {
	Discover() gamepath.Installations
	FindLauncher() gamepath.LauncherStatus
	LaunchLauncher() error
}

type Synchronizer interface {
	IsTranslated(installPath, lang string) bool
	IsUpToDate(ctx context.Context, installPath, url, lang string) bool
	Init(ctx context.Context, installPath, lang, url string) error
	Update(ctx context.Context, installPath, lang, url string) error
	Uninstall(installPath string) error
	ApplyBrandingToLocalFile(installPath, lang string) (bool, error)
	InstallFromCache(installPath, lang, channel string, source sources.ID) error
}

type Catalog interface {
	Translations(ctx context.Context) (json.RawMessage, error)
	BySetting(ctx context.Context, settingType string) (json.RawMessage, error)
}

type LastUpdatedResolver interface {
	Resolve(ctx context.Context, rawURL string) (string, error)
}

type Changelog interface {
	Latest(ctx context.Context, owner, repo string) ([]sources.Commit, error)
}

type Poller interface {
	Start(ctx context.Context) error
	Stop() error
	Status() poller.Status
	CheckNow(ctx context.Context) (int, error)
}

type PollerSettings interface {
	Get() config.PollerSettings
	Update(next config.PollerSettings) (config.PollerSettings, error)
}

type SelectionStore interface {
	Load() (config.Selection, error)
	Save(sel config.Selection) error
}

type Cache interface {
	List() ([]cache.Entry, error)
	Get(channel string, source sources.ID) (string, error)
	Delete(channel string, source sources.ID) error
	Clear() (int, error)
	Info() (cache.Info, error)
}

type Prefetcher interface {
	RunOnce(ctx context.Context, force bool) (int, error)
	Status(now time.Time) service.Status
}

type History interface {
	Record(ctx context.Context, rec persistence.SyncRecord) (int64, error)
	List(ctx context.Context, filter persistence.HistoryFilter) ([]persistence.SyncRecord, error)
	Totals(ctx context.Context) (persistence.Totals, error)
}

type CharacterBackups interface {
	Dir() (string, error)
	SetDir(root string) (string, error)
	List() ([]backup.Entry, error)
	Create(channel string) (backup.Entry, error)
	Restore(backupPath, channel string) error
	Delete(backupPath string) error
	Count() int
}

type ProfileBackups interface {
	Create(channel string) (string, error)
	Restore(zipPath, channel string) error
}

type CloudStore interface {
	UploadBackup(ctx context.Context, token, version, zipPath string) (string, error)
	ListBackups(ctx context.Context, token string) ([]cloud.Object, error)
	DownloadBackup(ctx context.Context, token, key, dir string) (string, error)
	DeleteBackup(ctx context.Context, token, key string) error
	SavePreferences(ctx context.Context, token string, prefs json.RawMessage) error
	LoadPreferences(ctx context.Context, token string) (json.RawMessage, error)
	DeletePreferences(ctx context.Context, token string) error
}

type OAuthListener interface {
	Start(ctx context.Context) (oauth.Flow, error)
}

type Updater interface {
	Check(ctx context.Context) (updater.Release, error)
	Download(ctx context.Context, rawURL string) (string, error)
}

type GraphicsSettings interface {
	Renderer(channel string) (int, error)
	SetRenderer(channel string, renderer int) error
	Resolution(channel string) (gamecfg.Resolution, error)
	SetResolution(channel string, res gamecfg.Resolution) error
	Advanced(channel string) (gamecfg.Advanced, error)
	SetAdvanced(channel string, settings gamecfg.Advanced) error
	ApplyPreset(channel, name string) (gamecfg.Advanced, error)
}

type Bindings interface {
	List(channel string) ([]gamecfg.BindingFile, error)
	Import(channel, src string) (gamecfg.BindingFile, error)
	Delete(channel, path string) error
}

type LocalCharacters interface {
	List(channel string) ([]gamecfg.LocalCharacter, error)
	Delete(path string) error
	Duplicate(path string) ([]string, error)
	Download(ctx context.Context, rawURL, title string) (gamecfg.LocalCharacter, error)
}

type ShaderCache interface {
	Folders() ([]gamecfg.ShaderFolder, error)
	Delete(path string) error
	Clear() (int, error)
}

type PlaytimeCounter interface {
	Playtime() gamecfg.Playtime
}

type Autostart interface {
	Enable() error
	Disable() error
	Enabled() (bool, error)
}

type EventSource interface {
	Subscribe() (<-chan events.Event, func())
}

// Deps are the components behind the API. Cloud, OAuth, Updater and the
// game file editors may be nil; their routes then answer 503.
type Deps struct {
	Locator      Locator
	Synchronizer Synchronizer
	Catalog      Catalog
	LastUpdated  LastUpdatedResolver
	Changelog    Changelog
	Poller       Poller
	Settings     PollerSettings
	Selection    SelectionStore
	Cache        Cache
	Prefetch     Prefetcher
	History      History
	Characters   CharacterBackups
	Profiles     ProfileBackups
	Cloud        CloudStore
	OAuth        OAuthListener
	Updater      Updater
	Events       EventSource

	Graphics        GraphicsSettings
	Bindings        Bindings
	LocalCharacters LocalCharacters
	ShaderCache     ShaderCache
	Playtime        PlaytimeCounter
	Autostart       Autostart

	ThemePath   string
	// ChangelogOwner and ChangelogRepo are used when the request omits them.
	ChangelogOwner string
	ChangelogRepo  string
	DownloadDir string
	Minimized   bool
	Gatherer    prometheus.Gatherer
}

type Server struct {
	deps Deps

	// base outlives requests; background work started by handlers uses it
	base context.Context

	uiEnabled   bool
	uiStaticDir string

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

// WithBaseContext sets the context handed to the poller and other work
// that continues after the request returns.
func WithBaseContext(ctx context.Context) Option {
	return func(s *Server) {
		s.base = ctx
	}
}

func NewServer(deps Deps, opts ...Option) *Server {
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.DownloadDir == "" {
		deps.DownloadDir = os.TempDir()
	}
	s := &Server{
		deps: deps,
		base: context.Background(),
		mux:  http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/versions", s.handleVersions)
	s.mux.HandleFunc("/api/launcher", s.handleLauncher)
	s.mux.HandleFunc("/api/launcher/launch", s.handleLaunchLauncher)
	s.mux.HandleFunc("/api/translations/status", s.handleTranslationStatus)
	s.mux.HandleFunc("/api/translations/", s.handleTranslationAction)
	s.mux.HandleFunc("/api/stats", s.handleStats)
	s.mux.HandleFunc("/api/app/minimized", s.handleMinimized)

	s.mux.HandleFunc("/api/sources", s.handleSources)
	s.mux.HandleFunc("/api/sources/setting/", s.handleSourceSetting)
	s.mux.HandleFunc("/api/sources/last-updated", s.handleLastUpdated)
	s.mux.HandleFunc("/api/selection", s.handleSelection)
	s.mux.HandleFunc("/api/theme", s.handleTheme)
	s.mux.HandleFunc("/api/changelog", s.handleChangelog)

	s.mux.HandleFunc("/api/poller/config", s.handlePollerConfig)
	s.mux.HandleFunc("/api/poller/status", s.handlePollerStatus)
	s.mux.HandleFunc("/api/poller/start", s.handlePollerStart)
	s.mux.HandleFunc("/api/poller/stop", s.handlePollerStop)
	s.mux.HandleFunc("/api/poller/check", s.handlePollerCheck)
	s.mux.HandleFunc("/api/history", s.handleHistory)

	s.mux.HandleFunc("/api/cache", s.handleCacheList)
	s.mux.HandleFunc("/api/cache/info", s.handleCacheInfo)
	s.mux.HandleFunc("/api/cache/clear", s.handleCacheClear)
	s.mux.HandleFunc("/api/cache/prefetch", s.handleCachePrefetch)
	s.mux.HandleFunc("/api/cache/", s.handleCacheEntry)

	s.mux.HandleFunc("/api/backups/characters", s.handleCharacterBackups)
	s.mux.HandleFunc("/api/backups/characters/dir", s.handleCharacterBackupDir)
	s.mux.HandleFunc("/api/backups/characters/restore", s.handleCharacterRestore)
	s.mux.HandleFunc("/api/backups/user", s.handleUserBackup)
	s.mux.HandleFunc("/api/backups/user/restore", s.handleUserRestore)

	s.mux.HandleFunc("/api/graphics/renderer", s.handleGraphicsRenderer)
	s.mux.HandleFunc("/api/graphics/resolution", s.handleGraphicsResolution)
	s.mux.HandleFunc("/api/graphics/advanced", s.handleGraphicsAdvanced)
	s.mux.HandleFunc("/api/graphics/presets", s.handleGraphicsPresets)
	s.mux.HandleFunc("/api/graphics/presets/apply", s.handleGraphicsPresetApply)
	s.mux.HandleFunc("/api/bindings", s.handleBindings)
	s.mux.HandleFunc("/api/characters/local", s.handleLocalCharacters)
	s.mux.HandleFunc("/api/characters/local/duplicate", s.handleLocalCharacterDuplicate)
	s.mux.HandleFunc("/api/characters/local/download", s.handleLocalCharacterDownload)
	s.mux.HandleFunc("/api/shader-cache", s.handleShaderCache)
	s.mux.HandleFunc("/api/shader-cache/clear", s.handleShaderCacheClear)
	s.mux.HandleFunc("/api/playtime", s.handlePlaytime)
	s.mux.HandleFunc("/api/autostart", s.handleAutostart)

	s.mux.HandleFunc("/api/cloud/backups", s.handleCloudBackups)
	s.mux.HandleFunc("/api/cloud/backups/download", s.handleCloudDownload)
	s.mux.HandleFunc("/api/cloud/preferences", s.handleCloudPreferences)
	s.mux.HandleFunc("/api/oauth/start", s.handleOAuthStart)
	s.mux.HandleFunc("/api/update/check", s.handleUpdateCheck)
	s.mux.HandleFunc("/api/update/download", s.handleUpdateDownload)

	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.Handle("/metrics", s.metricsHandler())
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}

func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

// writeAppError renders err with a status derived from its kind.
func writeAppError(w http.ResponseWriter, err error) {
	status := apperror.KindOf(err).HTTPStatus()
	switch {
	case errors.Is(err, poller.ErrAlreadyRunning), errors.Is(err, poller.ErrNotRunning), errors.Is(err, oauth.ErrInProgress):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		log.Error("[HTTP] %v", err)
	}
	writeError(w, status, err.Error())
}

func unavailable(w http.ResponseWriter, feature string) {
	writeError(w, http.StatusServiceUnavailable, feature+" is not configured")
}
