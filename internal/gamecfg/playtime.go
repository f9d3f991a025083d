package gamecfg

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/MimeLyc/startrad-companion/pkg/log"
)

const (
	logBackupsDir   = "logbackups"
	logStampLayout  = "2006-01-02T15:04:05"
	maxSessionSpan  = 24 * time.Hour
	maxLogLineBytes = 1 << 20
)

var logStamp = regexp.MustCompile(`^<(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2})`)

type VersionPlaytime struct {
	Version      string  `json:"version"`
	Hours        float64 `json:"hours"`
	Formatted    string  `json:"formatted"`
	SessionCount int     `json:"session_count"`
}

type Playtime struct {
	TotalHours   float64           `json:"total_hours"`
	Formatted    string            `json:"formatted"`
	SessionCount int               `json:"session_count"`
	ByVersion    []VersionPlaytime `json:"by_version"`
}

// PlaytimeCounter sums the sessions recorded in each installation's
// logbackups folder. A session spans the first to the last timestamped
// line of one archived log.
type PlaytimeCounter struct {
	locator Locator
}

func NewPlaytimeCounter(locator Locator) *PlaytimeCounter {
	return &PlaytimeCounter{locator: locator}
}

func (p *PlaytimeCounter) Playtime() Playtime {
	installs := p.locator.Discover()
	out := Playtime{ByVersion: []VersionPlaytime{}}
	var total time.Duration
	for _, ch := range sortedChannels(installs) {
		played, sessions := sessionsIn(filepath.Join(installs[ch].Path, logBackupsDir))
		if sessions == 0 {
			continue
		}
		out.ByVersion = append(out.ByVersion, VersionPlaytime{
			Version:      ch,
			Hours:        hours(played),
			Formatted:    formatPlaytime(played),
			SessionCount: sessions,
		})
		total += played
		out.SessionCount += sessions
	}
	out.TotalHours = hours(total)
	out.Formatted = formatPlaytime(total)
	return out
}

// sessionsIn counts whole minutes of every plausible session in dir.
func sessionsIn(dir string) (time.Duration, int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("[Playtime] Cannot list %s: %v", dir, err)
		}
		return 0, 0
	}
	var (
		total    time.Duration
		sessions int
	)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".log" {
			continue
		}
		span, ok := sessionSpan(filepath.Join(dir, e.Name()))
		if !ok {
			continue
		}
		span = span.Truncate(time.Minute)
		if span <= 0 || span >= maxSessionSpan {
			continue
		}
		total += span
		sessions++
	}
	return total, sessions
}

func sessionSpan(path string) (time.Duration, bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	var (
		first, last time.Time
		found       bool
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64<<10), maxLogLineBytes)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "<") {
			continue
		}
		m := logStamp.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		ts, err := time.Parse(logStampLayout, m[1])
		if err != nil {
			continue
		}
		if !found {
			first, found = ts, true
		}
		last = ts
	}
	if err := sc.Err(); err != nil {
		log.Debug("[Playtime] Stopped reading %s: %v", path, err)
	}
	return last.Sub(first), found
}

func hours(d time.Duration) float64 {
	return math.Round(d.Hours()*100) / 100
}

// formatPlaytime renders "12h 05min", or "42min" under an hour.
func formatPlaytime(d time.Duration) string {
	minutes := int(d / time.Minute)
	if h := minutes / 60; h > 0 {
		return fmt.Sprintf("%dh %02dmin", h, minutes%60)
	}
	return fmt.Sprintf("%dmin", minutes)
}
