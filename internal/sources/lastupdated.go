package sources

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/MimeLyc/startrad-companion/internal/apperror"
	"github.com/MimeLyc/startrad-companion/pkg/log"
	"github.com/google/go-github/v66/github"
)

// LastUpdatedResolver finds when a translation file last changed upstream.
type LastUpdatedResolver struct {
	gh        *github.Client
	client    *http.Client
	userAgent string
}

func NewLastUpdatedResolver(gh *github.Client, client *http.Client, userAgent string) *LastUpdatedResolver {
	return &LastUpdatedResolver{gh: gh, client: client, userAgent: userAgent}
}

// Resolve returns an ISO 8601 timestamp, or "" when the source publishes
// no date.
func (r *LastUpdatedResolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	switch {
	case strings.Contains(rawURL, "raw.githubusercontent.com"):
		return r.fromGitHub(ctx, rawURL)
	case strings.Contains(rawURL, "traduction.circuspes.fr"):
		return r.fromCircuspesHeader(ctx, rawURL)
	default:
		return "", nil
	}
}

// RawFile is a file addressed through raw.githubusercontent.com.
type RawFile struct {
	Owner  string
	Repo   string
	Branch string
	Path   string
}

var (
	rawRefsRe = regexp.MustCompile(`raw\.githubusercontent\.com/([^/]+)/([^/]+)/refs/heads/([^/]+)/(.+)`)
	rawRe     = regexp.MustCompile(`raw\.githubusercontent\.com/([^/]+)/([^/]+)/([^/]+)/(.+)`)
)

// ParseRawURL splits a raw GitHub URL, handling both the plain branch form
// and the refs/heads form.
func ParseRawURL(rawURL string) (RawFile, bool) {
	re := rawRe
	if strings.Contains(rawURL, "/refs/heads/") {
		re = rawRefsRe
	}
	m := re.FindStringSubmatch(rawURL)
	if m == nil {
		return RawFile{}, false
	}
	return RawFile{Owner: m[1], Repo: m[2], Branch: m[3], Path: m[4]}, true
}

func (r *LastUpdatedResolver) fromGitHub(ctx context.Context, rawURL string) (string, error) {
	file, ok := ParseRawURL(rawURL)
	if !ok {
		return "", apperror.New(apperror.KindInvalid, "invalid GitHub raw url").WithContext("url", rawURL)
	}

	commits, _, err := r.gh.Repositories.ListCommits(ctx, file.Owner, file.Repo, &github.CommitsListOptions{
		SHA:         file.Branch,
		Path:        file.Path,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		var errResp *github.ErrorResponse
		var rateErr *github.RateLimitError
		if errors.As(err, &errResp) || errors.As(err, &rateErr) {
			log.Debug("[Sources] No commit date for %s: %v", rawURL, err)
			return "", nil
		}
		return "", apperror.Wrap(err, apperror.KindNetwork, "list commits").WithContext("url", rawURL)
	}
	if len(commits) == 0 {
		return "", nil
	}
	date := commits[0].GetCommit().GetCommitter().GetDate()
	if date.IsZero() {
		return "", nil
	}
	return date.UTC().Format(time.RFC3339), nil
}

const headerProbeBytes = 500

func (r *LastUpdatedResolver) fromCircuspesHeader(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindInvalid, "build request").WithContext("url", rawURL)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", headerProbeBytes))

	resp, err := r.client.Do(req)
	if err != nil {
		return "", apperror.Wrap(err, apperror.KindNetwork, "request failed").WithContext("url", rawURL)
	}
	defer resp.Body.Close()

	// servers ignoring Range still only get read up to a few KB
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, 8*headerProbeBytes))
	for line := 1; scanner.Scan(); line++ {
		if line == 4 {
			if date, ok := ParseFrenchDate(scanner.Text()); ok {
				return date, nil
			}
			break
		}
	}
	return "", nil
}

var (
	frenchDateRe = regexp.MustCompile(`le \pL+ (\d+) (\pL+) (\d{4}) à (\d{2}):(\d{2})`)
	frenchMonths = map[string]int{
		"janvier": 1, "février": 2, "mars": 3, "avril": 4,
		"mai": 5, "juin": 6, "juillet": 7, "août": 8,
		"septembre": 9, "octobre": 10, "novembre": 11, "décembre": 12,
	}
)

// ParseFrenchDate extracts "le jeudi 18 décembre 2025 à 09:27" style dates
// as YYYY-MM-DDTHH:MM:00Z.
func ParseFrenchDate(line string) (string, bool) {
	m := frenchDateRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	day, _ := strconv.Atoi(m[1])
	month, ok := frenchMonths[strings.ToLower(m[2])]
	if !ok {
		return "", false
	}
	year, _ := strconv.Atoi(m[3])
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])

	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:00Z", year, month, day, hour, minute), true
}
