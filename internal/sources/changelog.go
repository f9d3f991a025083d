package sources

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/MimeLyc/startrad-companion/internal/config"
	"github.com/MimeLyc/startrad-companion/pkg/log"
	"github.com/google/go-github/v66/github"
)

// Commit is one changelog entry.
type Commit struct {
	Message     string  `json:"message"`
	Description *string `json:"description"`
	Date        string  `json:"date"`
}

var changelogKeywords = []string{"Feat :", "Bugfix :", "Release :", "Refactoring :"}

const changelogDateLayout = "2006-01-02 | 15:04:05"

// Changelog lists notable commits of a repository. The last successful
// result is cached on disk and served whenever the API is unavailable.
type Changelog struct {
	gh        *github.Client
	cachePath string
	mu        sync.Mutex
}

func NewChangelog(gh *github.Client, cachePath string) *Changelog {
	return &Changelog{gh: gh, cachePath: cachePath}
}

func (c *Changelog) Latest(ctx context.Context, owner, repo string) ([]Commit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, _, err := c.gh.Repositories.ListCommits(ctx, owner, repo, &github.CommitsListOptions{})
	if err != nil {
		log.Warn("[Changelog] Fetching commits for %s/%s failed, serving cache: %v", owner, repo, err)
		return c.loadCache(), nil
	}

	commits := make([]Commit, 0, len(raw))
	for _, rc := range raw {
		full := rc.GetCommit().GetMessage()
		if !hasChangelogKeyword(full) {
			continue
		}
		commits = append(commits, toCommit(full, rc.GetCommit().GetCommitter().GetDate()))
	}

	if err := config.WriteJSON(c.cachePath, commits); err != nil {
		log.Warn("[Changelog] Saving commit cache failed: %v", err)
	}
	return commits, nil
}

func hasChangelogKeyword(message string) bool {
	for _, kw := range changelogKeywords {
		if strings.Contains(message, kw) {
			return true
		}
	}
	return false
}

func toCommit(full string, date github.Timestamp) Commit {
	c := Commit{Message: full}
	if head, body, ok := strings.Cut(full, "\n\n"); ok {
		c.Message = head
		c.Description = &body
	}
	if !date.IsZero() {
		c.Date = date.UTC().Format(changelogDateLayout)
	}
	return c
}

func (c *Changelog) loadCache() []Commit {
	var commits []Commit
	err := config.LoadJSON(c.cachePath, &commits)
	switch {
	case err == nil:
		return commits
	case errors.Is(err, config.ErrNoDocument):
		return []Commit{}
	default:
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
			log.Warn("[Changelog] Invalid commit cache, removing: %v", err)
			if rmErr := os.Remove(c.cachePath); rmErr != nil {
				log.Warn("[Changelog] Could not remove invalid cache: %v", rmErr)
			}
		} else {
			log.Warn("[Changelog] Reading commit cache: %v", err)
		}
		return []Commit{}
	}
}
