package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/startrad-companion/internal/backup"
	"github.com/MimeLyc/startrad-companion/internal/cache"
	"github.com/MimeLyc/startrad-companion/internal/cloud"
	"github.com/MimeLyc/startrad-companion/internal/config"
	"github.com/MimeLyc/startrad-companion/internal/events"
	"github.com/MimeLyc/startrad-companion/internal/gamecfg"
	"github.com/MimeLyc/startrad-companion/internal/gamepath"
	"github.com/MimeLyc/startrad-companion/internal/githubapi"
	"github.com/MimeLyc/startrad-companion/internal/httpapi"
	"github.com/MimeLyc/startrad-companion/internal/notify"
	"github.com/MimeLyc/startrad-companion/internal/oauth"
	"github.com/MimeLyc/startrad-companion/internal/persistence"
	"github.com/MimeLyc/startrad-companion/internal/poller"
	"github.com/MimeLyc/startrad-companion/internal/service"
	"github.com/MimeLyc/startrad-companion/internal/sources"
	"github.com/MimeLyc/startrad-companion/internal/translation"
	"github.com/MimeLyc/startrad-companion/internal/updater"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const (
	appName          = "StarTrad FR"
	minimizedFlag    = "--minimized"
	historyRetention = 90 * 24 * time.Hour
)

type scheduler interface {
	Schedule(ctx context.Context) error
}

type cronEngine interface {
	Start()
	Stop() context.Context
}

type httpServer interface {
	ListenAndServe(addr string) error
	Shutdown(ctx context.Context) error
}

type backgroundPoller interface {
	Start(ctx context.Context) error
	Stop() error
	Running() bool
}

func main() {
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	log.SetLogger(log.NewWriterLogger(os.Stdout, log.ParseLevel(cfg.Log.Level), cfg.Log.Format))
	defer func() { _ = log.GetLogger().Sync() }()

	if err := os.MkdirAll(cfg.Paths.ConfigDir, 0o755); err != nil {
		log.Fatal("Failed to create config dir %s: %v", cfg.Paths.ConfigDir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: cfg.HTTP.Timeout()}
	gh, err := githubapi.New(httpClient, cfg.Release.GitHubToken, "")
	if err != nil {
		log.Fatal("Failed to create GitHub client: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	bus := events.NewBus(32)
	notifier := notify.NewDesktop(appName)

	settings, err := config.OpenPollerSettingsStore(cfg.Path(config.PollerSettingsFile))
	if err != nil {
		log.Fatal("Failed to open poller settings: %v", err)
	}
	selection := config.NewSelectionStore(cfg.Path(config.SelectionFile))
	language := func() string { return settings.Get().Language }

	history, err := persistence.NewSQLiteStore(cfg.DBPath())
	if err != nil {
		log.Fatal("Failed to open sync history: %v", err)
	}
	defer func() {
		if err := history.Close(); err != nil {
			log.Warn("[Persistence] Close failed: %v", err)
		}
	}()
	if n, err := history.Prune(ctx, time.Now().Add(-historyRetention)); err != nil {
		log.Warn("[Persistence] Prune failed: %v", err)
	} else if n > 0 {
		log.Info("[Persistence] Pruned %d old sync records", n)
	}

	locator := gamepath.NewLocator(cfg.Paths.LauncherLogPath)
	store := cache.NewStore(cfg.Paths.CacheDir)
	fetcher := translation.NewHTTPFetcher(httpClient, cfg.HTTP.UserAgent)
	synchronizer := translation.NewSynchronizer(fetcher, translation.WithCache(store))

	bg := poller.New(settings, locator, selection, synchronizer,
		poller.WithEmitter(bus),
		poller.WithNotifier(notifier),
		poller.WithHistory(history),
		poller.WithMetrics(poller.NewMetrics(registry)),
	)

	cronEng := cron.New()
	prefetch := service.NewPrefetchService(
		cfg.Sources.PrefetchCron, cronEng, locator, cache.NewPrefetcher(store, fetcher), store, language,
	)

	deps := httpapi.Deps{
		Locator:      locator,
		Synchronizer: synchronizer,
		Catalog:      sources.NewCatalog(httpClient, cfg.HTTP.UserAgent, cfg.Sources.CatalogURL, cfg.Sources.SettingsAPIURL),
		LastUpdated:  sources.NewLastUpdatedResolver(gh, httpClient, cfg.HTTP.UserAgent),
		Changelog:    sources.NewChangelog(gh, cfg.Path(config.CommitCacheFile)),
		Poller:       bg,
		Settings:     settings,
		Selection:    selection,
		Cache:        store,
		Prefetch:     prefetch,
		History:      history,
		Characters:   backup.NewCharacters(cfg.Path(config.BackupDirFile), locator),
		Profiles:     backup.NewProfiles(locator, os.TempDir()),
		OAuth: oauth.NewListener(
			oauth.WithAddr(cfg.HTTP.OAuthAddr),
			oauth.WithEmitter(bus),
		),
		Events:      bus,

		Graphics:        gamecfg.NewGraphics(locator, cfg.Paths.GameDataDir),
		Bindings:        gamecfg.NewBindings(locator),
		LocalCharacters: gamecfg.NewLocalCharacters(locator, httpClient, cfg.HTTP.UserAgent),
		ShaderCache:     gamecfg.NewShaderCache(cfg.Paths.GameDataDir),
		Playtime:        gamecfg.NewPlaytimeCounter(locator),

		ThemePath:   cfg.Path(config.ThemeFile),
		DownloadDir: filepath.Join(cfg.Paths.ConfigDir, "downloads"),
		Minimized:   isMinimized(os.Args[1:]),
		Gatherer:    registry,
	}
	if owner, repo, ok := cfg.Release.Repo(); ok {
		deps.ChangelogOwner, deps.ChangelogRepo = owner, repo
		deps.Updater = updater.New(gh, httpClient, owner, repo, cfg.Release.AppVersion, updater.WithNotifier(notifier))
	}
	if autostart, err := gamecfg.NewAutostart(appName, minimizedFlag); err != nil {
		log.Warn("[Autostart] Disabled: %v", err)
	} else {
		deps.Autostart = autostart
	}
	if cfg.Cloud.Enabled() {
		client := cloud.NewClient(httpClient, cfg.Cloud.URL, cfg.Cloud.APIKey)
		deps.Cloud = cloud.NewStore(client, cfg.Cloud.BackupBucket, cfg.Cloud.PrefsBucket)
	} else {
		log.Info("[Cloud] CLOUD_URL or CLOUD_API_KEY not set, cloud sync disabled")
	}

	httpSrv := httpapi.NewServer(deps,
		httpapi.WithUI(cfg.HTTP.UIStaticDir, cfg.HTTP.UIStaticDir != ""),
		httpapi.WithBaseContext(ctx),
	)

	if added := store.CacheInstalled(locator.Discover(), language()); added > 0 {
		log.Info("[Cache] Cached %d installed translations at startup", added)
	}
	startPollerIfEnabled(ctx, settings.Get(), bg)

	if err := runWithComponents(ctx, cfg, prefetch, cronEng, httpSrv); err != nil {
		log.Error("Server exited: %v", err)
	}
	stopPoller(bg)
}

func isMinimized(args []string) bool {
	return slices.Contains(args, minimizedFlag)
}

// startPollerIfEnabled resumes background checks persisted as enabled.
func startPollerIfEnabled(ctx context.Context, settings config.PollerSettings, p backgroundPoller) {
	if !settings.Enabled {
		return
	}
	if err := p.Start(ctx); err != nil {
		log.Warn("[Poller] Auto-start failed: %v", err)
		return
	}
	log.Info("[Poller] Auto-started, checking every %d min", settings.CheckIntervalMinutes)
}

func stopPoller(p backgroundPoller) {
	if !p.Running() {
		return
	}
	if err := p.Stop(); err != nil && !errors.Is(err, poller.ErrNotRunning) {
		log.Warn("[Poller] Stop failed: %v", err)
	}
}

func runWithComponents(
	ctx context.Context,
	cfg *config.Config,
	sched scheduler,
	engine cronEngine,
	httpSrv httpServer,
) error {
	if err := sched.Schedule(ctx); err != nil {
		return err
	}
	engine.Start()
	defer func() {
		<-engine.Stop().Done()
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("Local API listening on %s", cfg.HTTP.Addr)
		errCh <- httpSrv.ListenAndServe(cfg.HTTP.Addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
