package cache

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/MimeLyc/startrad-companion/internal/sources"
	"github.com/MimeLyc/startrad-companion/internal/translation"
	"github.com/MimeLyc/startrad-companion/pkg/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const prefetchConcurrency = 3

// Prefetcher downloads every known source into the cache for a channel.
type Prefetcher struct {
	store   *Store
	fetcher translation.Fetcher
	group   singleflight.Group
}

func NewPrefetcher(store *Store, fetcher translation.Fetcher) *Prefetcher {
	return &Prefetcher{store: store, fetcher: fetcher}
}

// Prefetch caches all sources for channel. Sources already cached are
// skipped unless force is set. Concurrent calls for the same channel and
// force flag share one run. Individual download failures are logged and
// do not fail the batch; the count of newly cached sources is returned.
func (p *Prefetcher) Prefetch(ctx context.Context, channel string, force bool) (int, error) {
	key := fmt.Sprintf("%s|%t", channel, force)
	v, err, _ := p.group.Do(key, func() (any, error) {
		return p.prefetch(ctx, channel, force)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (p *Prefetcher) prefetch(ctx context.Context, channel string, force bool) (int, error) {
	var cached atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)

	for _, d := range sources.Descriptors {
		if !force && p.store.IsCached(channel, d.ID) {
			log.Debug("[Cache] %s (%s) already cached, skipping", channel, d.ID)
			continue
		}
		g.Go(func() error {
			content, err := p.fetcher.Fetch(gctx, d.RemoteURL)
			if err != nil {
				log.Warn("[Cache] Downloading %s for %s failed: %v", d.ID, channel, err)
				return nil
			}
			if err := p.store.Put(channel, d.RemoteURL, translation.ApplyBranding(content, d.RemoteURL)); err != nil {
				log.Warn("[Cache] Caching %s for %s failed: %v", d.ID, channel, err)
				return nil
			}
			cached.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(cached.Load()), err
	}
	if err := ctx.Err(); err != nil {
		return int(cached.Load()), err
	}
	log.Info("[Cache] Prefetch for %s done: %d source(s) cached", channel, cached.Load())
	return int(cached.Load()), nil
}
