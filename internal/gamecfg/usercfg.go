package gamecfg

import (
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/file"
)

// cfgLines is user.cfg split into lines without their terminators.
type cfgLines []string

// readUserCfg returns the lines of path; a missing file reads as empty.
func readUserCfg(path string) (cfgLines, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperror.Wrap(err, apperror.KindIO, "failed to read user.cfg").WithContext("path", path)
	}
	text := strings.ReplaceAll(string(file.StripBOM(data)), "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func (c cfgLines) write(path string) error {
	if err := file.WriteAtomic(path, []byte(strings.Join(c, "\n")), 0o644); err != nil {
		return apperror.Wrap(err, apperror.KindIO, "failed to write user.cfg").WithContext("path", path)
	}
	return nil
}

// cfgKey returns the lowercased key of an assignment, or "" for blank
// lines, comments and lines without '='.
func cfgKey(line string) string {
	t := strings.TrimSpace(line)
	if t == "" || strings.HasPrefix(t, "--") || strings.HasPrefix(t, "//") {
		return ""
	}
	key, _, ok := strings.Cut(t, "=")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(key))
}

// value returns the last assignment of key.
func (c cfgLines) value(key string) (string, bool) {
	var (
		out   string
		found bool
	)
	for _, line := range c {
		if cfgKey(line) != key {
			continue
		}
		_, v, _ := strings.Cut(line, "=")
		out, found = strings.TrimSpace(v), true
	}
	return out, found
}

func (c cfgLines) intValue(key string) *int {
	v, ok := c.value(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

// line returns the first line assigning key.
func (c cfgLines) line(key string) (string, bool) {
	for _, line := range c {
		if cfgKey(line) == key {
			return line, true
		}
	}
	return "", false
}

// without drops every assignment of the given lowercase keys.
func (c cfgLines) without(keys ...string) cfgLines {
	out := make(cfgLines, 0, len(c))
	for _, line := range c {
		if k := cfgKey(line); k != "" && slices.Contains(keys, k) {
			continue
		}
		out = append(out, line)
	}
	return out
}

// capBlankLines keeps at most limit blank lines once there are more.
func (c cfgLines) capBlankLines(limit int) cfgLines {
	blanks := 0
	for _, line := range c {
		if strings.TrimSpace(line) == "" {
			blanks++
		}
	}
	if blanks <= limit {
		return c
	}
	out := make(cfgLines, 0, len(c))
	kept := 0
	for _, line := range c {
		if strings.TrimSpace(line) == "" {
			if kept >= limit {
				continue
			}
			kept++
		}
		out = append(out, line)
	}
	return out
}

// lastContent returns the index after the last non-blank line.
func (c cfgLines) lastContent() int {
	for i := len(c) - 1; i >= 0; i-- {
		if strings.TrimSpace(c[i]) != "" {
			return i + 1
		}
	}
	return len(c)
}
