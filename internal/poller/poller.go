// Package poller runs the background translation update loop.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MimeLyc/startrad-companion/internal/config"
	"github.com/MimeLyc/startrad-companion/internal/events"
	"github.com/MimeLyc/startrad-companion/internal/gamepath"
	"github.com/MimeLyc/startrad-companion/internal/notify"
	"github.com/MimeLyc/startrad-companion/internal/persistence"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

var (
	ErrAlreadyRunning = errors.New("background service is already running")
	ErrNotRunning     = errors.New("background service is not running")
)

const notificationTitle = "Traduction mise à jour"

type Settings interface {
	Get() config.PollerSettings
}

type Locator interface {
	Discover() gamepath.Installations
}

type SelectionLoader interface {
	Load() (config.Selection, error)
}

type Synchronizer interface {
	IsTranslated(installPath, lang string) bool
	ApplyBrandingToLocalFile(installPath, lang string) (bool, error)
	IsUpToDate(ctx context.Context, installPath, url, lang string) bool
	Update(ctx context.Context, installPath, lang, url string) error
}

type Emitter interface {
	Emit(name string, payload any)
}

type History interface {
	Record(ctx context.Context, rec persistence.SyncRecord) (int64, error)
}

// run is the cancellation handle of one loop instance.
type run struct {
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time
}

type Poller struct {
	settings     Settings
	locator      Locator
	selection    SelectionLoader
	synchronizer Synchronizer
	emitter      Emitter
	notifier     notify.Notifier
	history      History
	metrics      *Metrics

	unit  time.Duration
	after func(time.Duration) <-chan time.Time

	mu      sync.Mutex
	current *run

	// serializes checks between the loop and CheckNow
	checkMu sync.Mutex

	statusMu    sync.RWMutex
	lastCheck   time.Time
	lastUpdates int
	checks      int
}

type Option func(*Poller)

func WithEmitter(e Emitter) Option {
	return func(p *Poller) {
		p.emitter = e
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(p *Poller) {
		p.notifier = n
	}
}

func WithHistory(h History) Option {
	return func(p *Poller) {
		p.history = h
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Poller) {
		p.metrics = m
	}
}

// WithIntervalUnit changes what one configured interval step lasts.
func WithIntervalUnit(unit time.Duration) Option {
	return func(p *Poller) {
		p.unit = unit
	}
}

// WithTimer replaces time.After for the sleep between checks.
func WithTimer(after func(time.Duration) <-chan time.Time) Option {
	return func(p *Poller) {
		p.after = after
	}
}

func New(settings Settings, locator Locator, selection SelectionLoader, synchronizer Synchronizer, opts ...Option) *Poller {
	p := &Poller{
		settings:     settings,
		locator:      locator,
		selection:    selection,
		synchronizer: synchronizer,
		notifier:     notify.Nop{},
		metrics:      NewMetrics(nil),
		unit:         time.Minute,
		after:        time.After,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the loop. It fails when a loop is already running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{}), started: time.Now()}
	p.current = r
	p.metrics.Running.Set(1)

	log.Info("[Poller] Starting background service")
	go p.loop(loopCtx, r)
	return nil
}

// Stop consumes the running loop's cancellation handle. A second Stop
// reports ErrNotRunning.
func (p *Poller) Stop() error {
	p.mu.Lock()
	r := p.current
	p.current = nil
	p.mu.Unlock()

	if r == nil {
		return ErrNotRunning
	}
	log.Info("[Poller] Stopping background service")
	r.cancel()
	p.metrics.Running.Set(0)
	return nil
}

// Wait blocks until the loop that was running when called has exited.
func (p *Poller) Wait() {
	p.mu.Lock()
	r := p.current
	p.mu.Unlock()
	if r != nil {
		<-r.done
	}
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current != nil
}

type Status struct {
	Running     bool                  `json:"running"`
	StartedAt   *time.Time            `json:"started_at,omitempty"`
	LastCheck   *time.Time            `json:"last_check,omitempty"`
	LastUpdates int                   `json:"last_updates"`
	Checks      int                   `json:"checks"`
	Config      config.PollerSettings `json:"config"`
}

func (p *Poller) Status() Status {
	st := Status{Config: p.settings.Get()}

	p.mu.Lock()
	if p.current != nil {
		st.Running = true
		started := p.current.started
		st.StartedAt = &started
	}
	p.mu.Unlock()

	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	if !p.lastCheck.IsZero() {
		last := p.lastCheck
		st.LastCheck = &last
	}
	st.LastUpdates = p.lastUpdates
	st.Checks = p.checks
	return st
}

func (p *Poller) loop(ctx context.Context, r *run) {
	defer func() {
		p.mu.Lock()
		// a Stop followed by a new Start owns current now
		if p.current == r {
			p.current = nil
			p.metrics.Running.Set(0)
		}
		p.mu.Unlock()
		r.cancel()
		close(r.done)
		log.Info("[Poller] Background service stopped")
	}()

	for {
		cfg := p.settings.Get()
		if !cfg.Enabled {
			log.Info("[Poller] Service disabled in configuration, exiting")
			return
		}

		if _, err := p.check(ctx, cfg.Language); err != nil {
			log.Error("[Poller] Check failed: %v", err)
		}

		interval := time.Duration(cfg.CheckIntervalMinutes) * p.unit
		log.Debug("[Poller] Waiting %s before next check", interval)
		select {
		case <-p.after(interval):
		case <-ctx.Done():
			return
		}
	}
}

// CheckNow runs one check outside the schedule, with the configured
// language, and returns how many channels were updated.
func (p *Poller) CheckNow(ctx context.Context) (int, error) {
	return p.check(ctx, p.settings.Get().Language)
}

func (p *Poller) check(ctx context.Context, lang string) (int, error) {
	p.checkMu.Lock()
	defer p.checkMu.Unlock()

	p.metrics.Checks.Inc()
	log.Info("[Poller] Checking translation updates")

	updates, err := p.checkInstallations(ctx, lang)

	p.statusMu.Lock()
	p.lastCheck = time.Now()
	p.lastUpdates = updates
	p.checks++
	p.statusMu.Unlock()

	return updates, err
}

func (p *Poller) checkInstallations(ctx context.Context, lang string) (int, error) {
	installs := p.locator.Discover()
	if len(installs) == 0 {
		log.Info("[Poller] No game installation found")
		return 0, nil
	}

	selection, err := p.selection.Load()
	if err != nil {
		return 0, fmt.Errorf("load translation selection: %w", err)
	}

	channels := make([]string, 0, len(installs))
	for ch := range installs {
		channels = append(channels, ch)
	}
	sort.Strings(channels)

	updates := 0
	for _, channel := range channels {
		if err := ctx.Err(); err != nil {
			return updates, err
		}
		setting, ok := selection[channel]
		if !ok || setting.URL() == "" {
			continue
		}
		if p.checkChannel(ctx, installs[channel], setting.URL(), lang) {
			updates++
		}
	}

	if updates > 0 {
		log.Info("[Poller] %d translation(s) updated", updates)
	} else {
		log.Info("[Poller] All translations are up to date")
	}
	return updates, nil
}

func (p *Poller) checkChannel(ctx context.Context, inst gamepath.Installation, url, lang string) bool {
	channel := inst.Channel
	if !p.synchronizer.IsTranslated(inst.Path, lang) {
		log.Debug("[Poller] Translation not installed for %s", channel)
		return false
	}

	if branded, err := p.synchronizer.ApplyBrandingToLocalFile(inst.Path, lang); err != nil {
		log.Warn("[Poller] Branding failed for %s: %v", channel, err)
	} else if branded {
		log.Info("[Poller] Branding applied for %s", channel)
	}

	if p.synchronizer.IsUpToDate(ctx, inst.Path, url, lang) {
		log.Debug("[Poller] %s is up to date", channel)
		return false
	}

	log.Info("[Poller] Update available for %s", channel)
	p.emit(events.TranslationUpdateStart, channel)

	started := time.Now()
	err := p.synchronizer.Update(ctx, inst.Path, lang, url)
	rec := persistence.SyncRecord{
		Channel:   channel,
		SourceURL: url,
		Trigger:   persistence.TriggerPoller,
		Duration:  time.Since(started),
	}

	if err != nil {
		log.Error("[Poller] Update failed for %s: %v", channel, err)
		p.metrics.Updates.WithLabelValues(channel, "error").Inc()
		p.emit(events.TranslationUpdateError, channel)
		rec.Outcome = persistence.OutcomeFailed
		rec.Error = err.Error()
		p.record(ctx, rec)
		return false
	}

	log.Info("[Poller] Translation updated for %s", channel)
	p.metrics.Updates.WithLabelValues(channel, "success").Inc()
	p.emit(events.TranslationUpdateDone, channel)
	rec.Outcome = persistence.OutcomeUpdated
	p.record(ctx, rec)

	notify.BestEffort(ctx, p.notifier, notificationTitle,
		fmt.Sprintf("La traduction %s a été mise à jour avec succès", channel))
	return true
}

func (p *Poller) emit(name, channel string) {
	if p.emitter != nil {
		p.emitter.Emit(name, channel)
	}
}

// record journals rec; failures are logged and dropped.
func (p *Poller) record(ctx context.Context, rec persistence.SyncRecord) {
	if p.history == nil {
		return
	}
	if _, err := p.history.Record(ctx, rec); err != nil {
		log.Warn("[Poller] Failed to record sync history: %v", err)
	}
}
