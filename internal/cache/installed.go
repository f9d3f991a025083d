package cache

import (
	"os"
	"sort"

	"github.com/MimeLyc/startrad-companion/internal/gamepath"
	"github.com/MimeLyc/startrad-companion/internal/sources"
	"github.com/MimeLyc/startrad-companion/internal/translation"
	"github.com/MimeLyc/startrad-companion/pkg/file"
	"github.com/MimeLyc/startrad-companion/pkg/log"
)

// CacheInstalled copies translations already present in the given
// installations into the cache. Channels with any cached source are
// skipped. It returns how many entries were added.
func (s *Store) CacheInstalled(installs gamepath.Installations, lang string) int {
	channels := make([]string, 0, len(installs))
	for channel := range installs {
		channels = append(channels, channel)
	}
	sort.Strings(channels)

	added := 0
	for _, channel := range channels {
		inst := installs[channel]
		if s.HasChannel(channel) {
			log.Debug("[Cache] %s already cached, skipping", channel)
			continue
		}

		path, err := translation.GlobalIniPath(inst.Path, lang)
		if err != nil {
			return added
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn("[Cache] Reading installed translation for %s: %v", channel, err)
			}
			continue
		}

		content := string(file.StripBOM(data))
		source := sources.DetectFromContent(content)
		if err := s.Put(channel, sources.LocalURL(channel, source), content); err != nil {
			log.Warn("[Cache] Caching installed %s (%s) failed: %v", channel, source, err)
			continue
		}
		log.Info("[Cache] Cached installed translation %s (%s)", channel, source)
		added++
	}
	return added
}
