// Package githubapi builds the GitHub REST client shared by the changelog,
// last-updated lookup and self-update check.
package githubapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"
)

// New returns a client using httpClient. token is optional; baseURL
// overrides the API root and is mainly used by tests.
func New(httpClient *http.Client, token, baseURL string) (*github.Client, error) {
	client := github.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API url: %w", err)
		}
		client.BaseURL = u
	}
	return client, nil
}
