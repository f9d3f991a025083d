package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MimeLyc/startrad-companion/internal/gamepath"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocator struct {
	installs gamepath.Installations
}

func (f fakeLocator) Discover() gamepath.Installations {
	return f.installs
}

type fakePrefetcher struct {
	mu     sync.Mutex
	calls  map[string]bool
	failOn string
	block  chan struct{}
}

func (f *fakePrefetcher) Prefetch(_ context.Context, channel string, force bool) (int, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[channel] = force
	if channel == f.failOn {
		return 0, errors.New("boom")
	}
	return 2, nil
}

type fakeInstalled struct {
	lang string
}

func (f *fakeInstalled) CacheInstalled(installs gamepath.Installations, lang string) int {
	f.lang = lang
	return 1
}

type fakeCron struct {
	spec string
	fn   func()
}

func (f *fakeCron) AddFunc(spec string, cmd func()) (cron.EntryID, error) {
	f.spec = spec
	f.fn = cmd
	return 1, nil
}

func newInstalls() gamepath.Installations {
	return gamepath.Installations{
		"LIVE": {Channel: "LIVE", Path: "/games/StarCitizen/LIVE"},
		"PTU":  {Channel: "PTU", Path: "/games/StarCitizen/PTU"},
	}
}

func TestRunOnce_CachesInstalledAndPrefetches(t *testing.T) {
	p := &fakePrefetcher{calls: map[string]bool{}, failOn: "PTU"}
	installed := &fakeInstalled{}
	svc := NewPrefetchService("0 */6 * * *", &fakeCron{}, fakeLocator{newInstalls()}, p, installed, func() string { return "fr" })

	added, err := svc.RunOnce(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, added)
	assert.Equal(t, "fr", installed.lang)
	assert.Equal(t, map[string]bool{"LIVE": true, "PTU": true}, p.calls)

	st := svc.Status(time.Now())
	assert.Equal(t, 3, st.LastAdded)
	assert.False(t, st.LastRun.IsZero())
	require.NotNil(t, st.Schedule)
	assert.Equal(t, "0 */6 * * *", st.Schedule.Expression)
}

func TestSchedule_RegistersCronFunc(t *testing.T) {
	p := &fakePrefetcher{calls: map[string]bool{}}
	c := &fakeCron{}
	svc := NewPrefetchService("*/30 * * * *", c, fakeLocator{newInstalls()}, p, &fakeInstalled{}, func() string { return "fr" })

	require.NoError(t, svc.Schedule(context.Background()))
	assert.Equal(t, "*/30 * * * *", c.spec)
	require.NotNil(t, c.fn)

	c.fn()
	assert.Equal(t, map[string]bool{"LIVE": false, "PTU": false}, p.calls)
}

func TestRunOnce_OverlappingCallsShareRun(t *testing.T) {
	p := &fakePrefetcher{calls: map[string]bool{}, block: make(chan struct{})}
	installed := &countingInstalled{}
	svc := NewPrefetchService("0 * * * *", &fakeCron{}, fakeLocator{gamepath.Installations{"LIVE": {Channel: "LIVE"}}}, p, installed, func() string { return "fr" })

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.RunOnce(context.Background(), false)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(p.block)
	wg.Wait()

	assert.Equal(t, 1, installed.count())
}

type countingInstalled struct {
	mu sync.Mutex
	n  int
}

func (c *countingInstalled) CacheInstalled(gamepath.Installations, string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return 0
}

func (c *countingInstalled) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestStatus_InvalidExpression(t *testing.T) {
	svc := NewPrefetchService("bogus", &fakeCron{}, fakeLocator{}, &fakePrefetcher{calls: map[string]bool{}}, &fakeInstalled{}, func() string { return "fr" })
	assert.Nil(t, svc.Status(time.Now()).Schedule)
}
