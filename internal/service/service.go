// Package service schedules the periodic offline-cache refresh.
package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/MimeLyc/startrad-companion/internal/gamepath"
	"github.com/MimeLyc/startrad-companion/pkg/icron"
	"github.com/MimeLyc/startrad-companion/pkg/log"
	"github.com/robfig/cron/v3"
)

type Locator interface {
	Discover() gamepath.Installations
}

type Prefetcher interface {
	Prefetch(ctx context.Context, channel string, force bool) (int, error)
}

type InstalledCacher interface {
	CacheInstalled(installs gamepath.Installations, lang string) int
}

type cronScheduler interface {
	AddFunc(spec string, cmd func()) (cron.EntryID, error)
}

// PrefetchService keeps the offline cache warm: it copies installed
// translations into the cache and downloads every source for each
// detected channel.
type PrefetchService struct {
	cronExpr   string
	cron       cronScheduler
	locator    Locator
	prefetcher Prefetcher
	installed  InstalledCacher
	language   func() string

	group singleflight.Group

	mu      sync.Mutex
	lastRun time.Time
	lastAdd int
}

func NewPrefetchService(
	cronExpr string,
	cron cronScheduler,
	locator Locator,
	prefetcher Prefetcher,
	installed InstalledCacher,
	language func() string,
) *PrefetchService {
	return &PrefetchService{
		cronExpr:   cronExpr,
		cron:       cron,
		locator:    locator,
		prefetcher: prefetcher,
		installed:  installed,
		language:   language,
	}
}

// Schedule registers the refresh with the cron engine.
func (s *PrefetchService) Schedule(ctx context.Context) error {
	log.Info("[Prefetch] Scheduling cache refresh with %q", s.cronExpr)

	_, err := s.cron.AddFunc(s.cronExpr, func() {
		if _, err := s.RunOnce(ctx, false); err != nil {
			log.Error("[Prefetch] Scheduled refresh failed: %v", err)
		}
	})
	return err
}

// RunOnce refreshes the cache now. Overlapping calls with the same force
// flag share one run. It returns how many entries were added.
func (s *PrefetchService) RunOnce(ctx context.Context, force bool) (int, error) {
	key := "run"
	if force {
		key = "run-force"
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.run(ctx, force)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *PrefetchService) run(ctx context.Context, force bool) (int, error) {
	installs := s.locator.Discover()
	if len(installs) == 0 {
		log.Info("[Prefetch] No game installation found")
	}

	added := s.installed.CacheInstalled(installs, s.language())
	for channel := range installs {
		if err := ctx.Err(); err != nil {
			return added, err
		}
		n, err := s.prefetcher.Prefetch(ctx, channel, force)
		if err != nil {
			log.Error("[Prefetch] %s: %v", channel, err)
			continue
		}
		added += n
	}

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastAdd = added
	s.mu.Unlock()

	log.Info("[Prefetch] Refresh done, %d entr(ies) added", added)
	return added, nil
}

// Status describes the schedule and the last completed run.
type Status struct {
	Schedule  *icron.TriggerInfo `json:"schedule,omitempty"`
	LastRun   time.Time          `json:"last_run"`
	LastAdded int                `json:"last_added"`
}

func (s *PrefetchService) Status(now time.Time) Status {
	s.mu.Lock()
	st := Status{LastRun: s.lastRun, LastAdded: s.lastAdd}
	s.mu.Unlock()

	info, err := icron.GetTriggerInfo(s.cronExpr, now)
	if err != nil {
		log.Warn("[Prefetch] Invalid schedule %q: %v", s.cronExpr, err)
		return st
	}
	st.Schedule = info
	return st
}
