// Package gamepath finds game installations and the launcher by scraping
// the launcher log.
package gamepath

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/MimeLyc/startrad-companion/pkg/log"
	"github.com/icza/backscanner"
)

// Installation is one detected game channel.
type Installation struct {
	Channel string `json:"channel"`
	Path    string `json:"path"`
}

// Installations is keyed by channel label.
type Installations map[string]Installation

var (
	// Drive-letter paths (single or JSON-escaped backslashes, or forward
	// slashes) and absolute POSIX paths ending in StarCitizen/<channel>.
	installPathRe = regexp.MustCompile(
		`[a-zA-Z]:(?:\\{1,2}|/)(?:[^\\/"'\r\n]+(?:\\{1,2}|/))*?StarCitizen(?:\\{1,2}|/)[A-Za-z0-9_.@-]+` +
			`|(?:/[^/\\"'\r\n]+)*?/StarCitizen/[A-Za-z0-9_.@-]+`)
	channelRe = regexp.MustCompile(`StarCitizen[\\/]+([A-Za-z0-9_.@-]+)[\\/]*$`)
)

const (
	maxLogLine = 4 << 20
	scanChunk  = 32 << 10
)

// Locator scans the launcher log for game installations.
type Locator struct {
	logPath string
	exists  func(path string) bool
	maxLine int
}

type Option func(*Locator)

// WithFileCheck replaces the existence check used to verify marker files.
func WithFileCheck(fn func(path string) bool) Option {
	return func(l *Locator) {
		l.exists = fn
	}
}

func NewLocator(logPath string, opts ...Option) *Locator {
	l := &Locator{
		logPath: logPath,
		exists:  fileExists,
		maxLine: maxLogLine,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Locator) LogPath() string {
	return l.logPath
}

// Discover returns one installation per channel, preferring the path
// mentioned last in the log. It never fails: an absent log yields an empty
// result and paths without the game files are skipped.
func (l *Locator) Discover() Installations {
	found := make(Installations)
	seenPaths := make(map[string]bool)

	err := scanLinesReverse(l.logPath, l.maxLine, func(line string) bool {
		for _, match := range installPathRe.FindAllString(line, -1) {
			path := normalizeInstallPath(match)
			if path == "" || seenPaths[path] {
				continue
			}
			seenPaths[path] = true

			if !l.verify(path) {
				log.Debug("[Locator] Skipping %s: game files missing", path)
				continue
			}
			channel := ChannelOf(path)
			if channel == "" {
				continue
			}
			if _, ok := found[channel]; !ok {
				found[channel] = Installation{Channel: channel, Path: path}
			}
		}
		return true
	})
	if err != nil && !os.IsNotExist(err) {
		log.Warn("[Locator] Reading launcher log %s: %v", l.logPath, err)
	}

	return found
}

func (l *Locator) verify(path string) bool {
	return l.exists(JoinInstallPath(path, "Bin64", "StarCitizen.exe")) &&
		l.exists(JoinInstallPath(path, "Data.p4k"))
}

// ChannelOf extracts the channel label following the StarCitizen folder.
func ChannelOf(path string) string {
	m := channelRe.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}

// JoinInstallPath joins elements using the separator style of base, so
// Windows paths keep backslashes on every platform.
func JoinInstallPath(base string, elem ...string) string {
	if strings.Contains(base, `\`) {
		return strings.TrimRight(base, `\`) + `\` + strings.Join(elem, `\`)
	}
	return filepath.Join(append([]string{base}, elem...)...)
}

func normalizeInstallPath(p string) string {
	p = strings.ReplaceAll(p, `\\`, `\`)
	return strings.TrimRight(p, `\/`)
}

// scanLinesReverse calls fn for every line of the file, last line first,
// until fn returns false. Lines longer than maxLine are skipped.
func scanLinesReverse(path string, maxLine int, fn func(line string) bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	opts := &backscanner.Options{ChunkSize: min(scanChunk, maxLine), MaxBufferSize: maxLine}
	// end bounds the unread part of the file, excluding the newline that
	// terminates its last line
	end := int(info.Size())
	scanner := backscanner.NewOptions(f, end, opts)
	for {
		line, pos, err := scanner.Line()
		switch {
		case err == io.EOF:
			return nil
		case errors.Is(err, backscanner.ErrLongLine):
			nl, err := lastNewline(f, end)
			if err != nil {
				return err
			}
			log.Debug("[Locator] Skipping log line longer than %d bytes", maxLine)
			if nl < 0 {
				return nil
			}
			end = nl
			scanner = backscanner.NewOptions(f, end, opts)
			continue
		case err != nil:
			return err
		}
		end = pos - 1
		if !fn(strings.TrimRight(line, "\r")) {
			return nil
		}
	}
}

// lastNewline returns the offset of the last '\n' before end, or -1.
func lastNewline(r io.ReaderAt, end int) (int, error) {
	buf := make([]byte, scanChunk)
	for end > 0 {
		start := max(0, end-scanChunk)
		chunk := buf[:end-start]
		if _, err := r.ReadAt(chunk, int64(start)); err != nil && err != io.EOF {
			return -1, err
		}
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			return start + i, nil
		}
		end = start
	}
	return -1, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
